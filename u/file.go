package u

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// ReadLines reads file as lines, without line endings.
// Unlike bufio.Scanner there's no limit on line length.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLinesFrom(f)
}

// ReadLinesFrom is like ReadLines but reads from r
func ReadLinesFrom(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	var res []string
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			res = append(res, line)
		}
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
