package core

import "fmt"

// Assert reports a violated caller contract. The message is logged and the
// call panics with an error wrapping ErrPrecondition.
func Assert(cond bool, msg string, args ...interface{}) {
	if cond {
		return
	}
	err := fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(msg, args...))
	LogError(err.Error())
	panic(err)
}
