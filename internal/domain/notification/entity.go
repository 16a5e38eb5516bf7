package notification

import (
	"time"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
)

// EventType represents the type of leave status notification
type EventType string

const (
	TypeLeaveApproved  EventType = "leave_approved"
	TypeLeaveRejected  EventType = "leave_rejected"
	TypeLeaveCancelled EventType = "leave_cancelled"
)

// TypeFor maps a request status to the notification emitted for it.
func TypeFor(status leave.Status) EventType {
	switch status {
	case leave.StatusApproved:
		return TypeLeaveApproved
	case leave.StatusRejected:
		return TypeLeaveRejected
	default:
		return TypeLeaveCancelled
	}
}

// Event is sent to the request owner after a committed status change.
type Event struct {
	Type       EventType                  `json:"type"`
	UserID     string                     `json:"user_id"`
	Status     leave.Status               `json:"status"`
	Reason     string                     `json:"reason,omitempty"`
	ActorID    string                     `json:"actor_id"`
	Request    leave.LeaveRequestResponse `json:"request"`
	OccurredAt time.Time                  `json:"occurred_at"`
}

func NewEvent(request leave.LeaveRequest, actorID, reason string, at time.Time) Event {
	return Event{
		Type:       TypeFor(request.Status),
		UserID:     request.UserID,
		Status:     request.Status,
		Reason:     reason,
		ActorID:    actorID,
		Request:    leave.NewLeaveRequestResponse(request),
		OccurredAt: at,
	}
}
