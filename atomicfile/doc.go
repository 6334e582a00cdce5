/*
Package atomicfile writes a file so that it appears at its destination
only if it was written completely.

Data goes to a temporary file in the destination directory. Close() syncs
it and renames it over the destination. If any Write() failed, or the
file was abandoned with Abandon(), the temporary file is removed and the
destination is left untouched.

	func writeIndex(path string, lines []string) error {
		f, err := atomicfile.New(path)
		if err != nil {
			return err
		}
		// a no-op after Close()
		defer f.Abandon()

		for _, l := range lines {
			if _, err = f.WriteString(l); err != nil {
				return err
			}
		}
		return f.Close()
	}

Output of a failed operation is never visible under its final name, which
is what the record store relies on to not leave half-written stores behind.
*/
package atomicfile
