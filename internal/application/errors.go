package application

import "errors"

// Errors returned by the application services. The HTTP adapter maps each to
// an API error code.
var (
	ErrDoesNotExist     = errors.New("object does not exist")
	ErrPermissionDenied = errors.New("you don't have permission for this")
	ErrNotLoggedIn      = errors.New("you are not logged in")
	ErrLoginFailed      = errors.New("the username or password was not correct")
)
