package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
	"github.com/cloudincsa/leave-plugin-sub004/internal/handler/http/middleware"
	"github.com/cloudincsa/leave-plugin-sub004/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type LeaveHandler interface {
	SubmitRequest(w http.ResponseWriter, r *http.Request)
	GetMyRequests(w http.ResponseWriter, r *http.Request)
	ListPendingRequests(w http.ResponseWriter, r *http.Request)
	ApproveRequest(w http.ResponseWriter, r *http.Request)
	RejectRequest(w http.ResponseWriter, r *http.Request)
	CancelRequest(w http.ResponseWriter, r *http.Request)
	CancelApprovedRequest(w http.ResponseWriter, r *http.Request)

	GetMyBalances(w http.ResponseWriter, r *http.Request)
	SetBalance(w http.ResponseWriter, r *http.Request)
	PreviewDays(w http.ResponseWriter, r *http.Request)
}

type LeaveHandlerImpl struct {
	leaveService leave.LeaveService
	now          func() time.Time
}

func NewLeaveHandler(leaveService leave.LeaveService) LeaveHandler {
	return &LeaveHandlerImpl{
		leaveService: leaveService,
		now:          time.Now,
	}
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		slog.Debug("Request body decode error", "path", r.URL.Path, "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return false
	}
	return true
}

// SubmitRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req leave.SubmitLeaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// The requester is always the caller.
	req.UserID = middleware.UserID(r.Context())

	response.FromResult(w, http.StatusCreated, l.leaveService.Submit(r.Context(), req))
}

// GetMyRequests implements LeaveHandler.
func (l *LeaveHandlerImpl) GetMyRequests(w http.ResponseWriter, r *http.Request) {
	req := leave.ListLeaveRequestsRequest{UserID: middleware.UserID(r.Context())}
	if status := r.URL.Query().Get("status"); status != "" {
		req.Status = &status
	}

	response.FromResult(w, http.StatusOK, l.leaveService.ListForUser(r.Context(), req))
}

// ListPendingRequests implements LeaveHandler.
func (l *LeaveHandlerImpl) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	response.FromResult(w, http.StatusOK, l.leaveService.ListPendingForApprover(r.Context(), middleware.UserID(r.Context())))
}

// ApproveRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	req := leave.ApproveLeaveRequest{
		RequestID:  chi.URLParam(r, "id"),
		ApproverID: middleware.UserID(r.Context()),
	}

	response.FromResult(w, http.StatusOK, l.leaveService.Approve(r.Context(), req))
}

type rejectBody struct {
	Reason string `json:"reason"`
}

// RejectRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) RejectRequest(w http.ResponseWriter, r *http.Request) {
	var body rejectBody
	if r.ContentLength != 0 && !decodeJSON(w, r, &body) {
		return
	}

	req := leave.RejectLeaveRequest{
		RequestID:  chi.URLParam(r, "id"),
		ApproverID: middleware.UserID(r.Context()),
		Reason:     body.Reason,
	}

	response.FromResult(w, http.StatusOK, l.leaveService.Reject(r.Context(), req))
}

// CancelRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) CancelRequest(w http.ResponseWriter, r *http.Request) {
	req := leave.CancelLeaveRequest{
		RequestID: chi.URLParam(r, "id"),
		ActorID:   middleware.UserID(r.Context()),
	}

	response.FromResult(w, http.StatusOK, l.leaveService.Cancel(r.Context(), req))
}

// CancelApprovedRequest implements LeaveHandler.
func (l *LeaveHandlerImpl) CancelApprovedRequest(w http.ResponseWriter, r *http.Request) {
	req := leave.CancelLeaveRequest{
		RequestID: chi.URLParam(r, "id"),
		ActorID:   middleware.UserID(r.Context()),
	}

	response.FromResult(w, http.StatusOK, l.leaveService.CancelApproved(r.Context(), req))
}

// GetMyBalances implements LeaveHandler.
func (l *LeaveHandlerImpl) GetMyBalances(w http.ResponseWriter, r *http.Request) {
	year := l.now().UTC().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2000 || parsed > 2100 {
			response.BadRequest(w, "Invalid year", map[string]string{"year": "year must be between 2000 and 2100"})
			return
		}
		year = parsed
	}

	response.FromResult(w, http.StatusOK, l.leaveService.GetBalances(r.Context(), middleware.UserID(r.Context()), year))
}

// SetBalance implements LeaveHandler.
func (l *LeaveHandlerImpl) SetBalance(w http.ResponseWriter, r *http.Request) {
	var req leave.SetBalanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	response.FromResult(w, http.StatusOK, l.leaveService.SetBalance(r.Context(), req))
}

// PreviewDays implements LeaveHandler.
func (l *LeaveHandlerImpl) PreviewDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := leave.DayPreviewRequest{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
	if raw := q.Get("half_day"); raw != "" {
		halfDay, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(w, "Invalid half_day", map[string]string{"half_day": "half_day must be true or false"})
			return
		}
		req.HalfDay = halfDay
	}

	response.FromResult(w, http.StatusOK, l.leaveService.PreviewDays(r.Context(), req))
}
