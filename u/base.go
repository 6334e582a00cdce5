package u

import (
	"fmt"
)

func fmtPanicArgs(defaultMsg string, args ...any) string {
	if len(args) == 0 {
		return defaultMsg
	}
	s := fmt.Sprintf("%s", args[0])
	if len(args) > 1 {
		s = fmt.Sprintf(s, args[1:]...)
	}
	return s
}

// PanicIf panics if cond is true. Used for asserting invariants that
// can only break because of a bug.
func PanicIf(cond bool, args ...any) {
	if cond {
		panic(fmtPanicArgs("condition failed", args...))
	}
}
