package core

import "fmt"

// Assert reports a programmer error when cond is false. Builds tagged
// `debug` panic, other builds log the message and carry on so the caller
// can return its own error.
func Assert(cond bool, msg string, args ...interface{}) bool {
	if cond {
		return true
	}
	reportAssert(fmt.Sprintf(msg, args...))
	return false
}
