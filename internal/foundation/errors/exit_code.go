package errors

import stderrors "errors"

// asExitCoder finds an error in the chain that dictates its own exit code, such
// as the result of a re-executed child process.
func asExitCoder(err error, target *interface{ ExitCode() int }) bool {
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if c, ok := e.(interface{ ExitCode() int }); ok {
			*target = c
			return true
		}
	}
	return false
}
