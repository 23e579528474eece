package peering

// Code is the stable result code returned with every operation. Values
// match the wire protocol the agents and frontend already speak.
type Code int

const (
	CodeOK                    Code = 0
	CodeServerError           Code = 1
	CodeUnauthorized          Code = 2
	CodeBadRequest            Code = 3
	CodeMethodNotAllowed      Code = 4
	CodeRouterOperationFailed Code = 5
	CodeRouterNotAvailable    Code = 6
	CodeNotFound              Code = 7
	CodeServiceUnavailable    Code = 8
)

// Message returns the stable human-readable message for a code. No raw
// internal error text crosses this boundary.
func (c Code) Message() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeServerError:
		return "server error"
	case CodeUnauthorized:
		return "unauthorized"
	case CodeBadRequest:
		return "bad request"
	case CodeMethodNotAllowed:
		return "method not allowed"
	case CodeRouterOperationFailed:
		return "router operation failed"
	case CodeRouterNotAvailable:
		return "router not available"
	case CodeNotFound:
		return "not found"
	case CodeServiceUnavailable:
		return "service unavailable"
	default:
		return "unknown"
	}
}

// Error carries a result code through the orchestration core
type Error struct {
	Code Code
}

func (e *Error) Error() string {
	return e.Code.Message()
}

func errOf(code Code) *Error {
	return &Error{Code: code}
}

var (
	errServerError           = errOf(CodeServerError)
	errBadRequest            = errOf(CodeBadRequest)
	errRouterOperationFailed = errOf(CodeRouterOperationFailed)
	errRouterNotAvailable    = errOf(CodeRouterNotAvailable)
	errNotFound              = errOf(CodeNotFound)
)
