package response

import (
	"net/http"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
)

// StatusFor maps a leave result code onto an HTTP status.
func StatusFor(code string) int {
	switch code {
	case leave.CodeValidation:
		return http.StatusUnprocessableEntity
	case leave.CodeConflict, leave.CodeInsufficientBalance, leave.CodeAlreadyProcessed:
		return http.StatusConflict
	case leave.CodeNotFound:
		return http.StatusNotFound
	case leave.CodeForbidden:
		return http.StatusForbidden
	case leave.CodePersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromResult writes a leave.Result using the standard envelope. Successful
// results use successStatus; failures carry the result code and data as
// error details.
func FromResult(w http.ResponseWriter, successStatus int, result leave.Result) {
	if result.Success {
		writeJSON(w, successStatus, Response{
			Success: true,
			Message: result.Message,
			Data:    result.Data,
		})
		return
	}
	Error(w, StatusFor(result.Code), result.Code, result.Message, result.Data)
}
