package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Session errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrSessionExpired   = fmt.Errorf("session expired")
	ErrTokenDecode      = fmt.Errorf("token decode failed")
	ErrAuthFailed       = fmt.Errorf("authentication failed")

	// API and transport errors
	ErrAPIRequest   = fmt.Errorf("API request failed")
	ErrUnauthorized = fmt.Errorf("authorization rejected")
	ErrBlobUpload   = fmt.Errorf("blob upload failed")

	// Input validation errors
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrMissingArgument  = fmt.Errorf("missing required argument")
	ErrMissingExtension = fmt.Errorf("could not detect file extension")
	ErrNoFileSelected   = fmt.Errorf("no file selected")
)
