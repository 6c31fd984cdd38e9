// Package errors provides error handling conventions for the cofre CLI.
//
// This package defines an ExitError type for CLI exit code handling, exit
// code constants following standard Unix conventions, and thin re-exports
// of the cockroachdb/errors constructors so command code can depend on a
// single errors package.
//
// Domain failure conditions live as sentinel errors in the packages that
// raise them (for example compress.ErrSourceNotFound or
// crypt.ErrInvalidPassword) and are checked with [Is]:
//
//	if errors.Is(err, crypt.ErrInvalidPassword) {
//	    // prompt again
//	}
//
// # Exit Codes
//
//   - ExitSuccess (0): Command completed successfully
//   - ExitUser (1): User-related error (invalid input, wrong password, etc.)
//   - ExitSystem (2): System-related error (I/O, network, permissions, etc.)
//
// # ExitError
//
// [ExitError] wraps an underlying error with an exit code and optional
// suggestion for CLI applications. It supports error unwrapping via
// [errors.Unwrap] and [errors.As]:
//
//	err := errors.NewUserError(err, "Check the password and retry")
//	var exitErr *errors.ExitError
//	if errors.As(err, &exitErr) {
//	    os.Exit(exitErr.Code)
//	}
package errors
