package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/iedon/peerapi/peering"
)

// Response is the envelope every endpoint replies with
type Response struct {
	Code    peering.Code `json:"code"`
	Message string       `json:"message"`
	Data    any          `json:"data"`
}

// httpStatus maps a result code to the HTTP status it travels with.
// Router-side failures are application results, not transport errors, so
// they stay 200.
func httpStatus(code peering.Code) int {
	switch code {
	case peering.CodeServerError:
		return http.StatusInternalServerError
	case peering.CodeUnauthorized:
		return http.StatusUnauthorized
	case peering.CodeBadRequest:
		return http.StatusBadRequest
	case peering.CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case peering.CodeNotFound:
		return http.StatusNotFound
	case peering.CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

// SendResponse writes the JSON envelope for a result code
func SendResponse(w http.ResponseWriter, code peering.Code, data any) {
	w.Header().Set("Content-Type", "application/json")
	if data == nil {
		data = ""
	}
	w.WriteHeader(httpStatus(code))
	json.NewEncoder(w).Encode(Response{
		Code:    code,
		Message: code.Message(),
		Data:    data,
	})
}

// SendError writes the envelope for a failed operation
func SendError(w http.ResponseWriter, err *peering.Error) {
	SendResponse(w, err.Code, nil)
}
