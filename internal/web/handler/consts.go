package handler

const (
	// BaseLayout is the default path for layout templates.
	BaseLayout = "layouts/base"

	// RootPath is the root path the route group.
	RootPath = "/"

	// ErrNilContextFatalLogMsg is used if the app or the handler context is nil.
	ErrNilContextFatalLogMsg = "app or handler context is nil"

	// MsgInternalError is the uniform non-leaking message for unexpected faults.
	MsgInternalError = "Internal server error"

	// MsgCSRFRejected tells the user how to recover from a CSRF failure.
	MsgCSRFRejected = "Your form session expired, please refresh the page and retry"
)
