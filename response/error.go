package response

import "fmt"

// Error is the error body returned to callers. It renders as {"error": Message, "details": Messages}
type Error struct {
	StatusCode int
	Message    string
	Messages   []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

func (e *Error) AddMessages(msgs ...string) *Error {
	e.Messages = append(e.Messages, msgs...)
	return e
}

func makeError(status int) *Error {
	return &Error{
		StatusCode: status,
		Messages:   make([]string, 0),
	}
}

// -----------------------------------------------

func ErrUnexpected() *Error {
	return makeError(500).
		WithMessage("An unexpected error has occured")
}

func ErrBadRequest() *Error {
	return makeError(400).
		WithMessage("Bad request")
}

func ErrUnauthorized() *Error {
	return makeError(401).
		WithMessage("Unauthorized")
}

func ErrForbidden() *Error {
	return makeError(403).
		WithMessage("Forbidden")
}

func ErrUnsupportedMediaType() *Error {
	return makeError(415).
		WithMessage("Unsupported media type")
}

func ErrNotFound() *Error {
	return makeError(404).
		WithMessage("Requested resources not found")
}

func ErrMethodNotAllowed() *Error {
	return makeError(405).
		WithMessage("Method Not Allowed")
}

func ErrInvalidJson() *Error {
	return ErrBadRequest().AddMessages("Invalid JSON body")
}

func ErrNoBearer() *Error {
	return ErrUnauthorized().AddMessages("No valid Bearer token found in header")
}

func ErrInvalidPrice() *Error {
	return ErrBadRequest().
		WithMessage("Invalid price. Please try again or contact support.")
}

func ErrWebhookSignature(reason string) *Error {
	return ErrBadRequest().
		WithMessage("Webhook Error: " + reason)
}

func ErrReleaseConfig() *Error {
	return ErrUnexpected().
		WithMessage("GitHub configuration missing. Please set GITHUB_OWNER, GITHUB_REPO, and GITHUB_TOKEN environment variables.")
}

func ErrNoAssets() *Error {
	return ErrNotFound().
		WithMessage("No downloadable files found in the latest release")
}
