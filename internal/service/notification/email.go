package notification

import (
	"context"
	"fmt"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/notification"
	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/user"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/email"
)

// EmailSink mails the request owner. Owners without an address are skipped.
type EmailSink struct {
	users  user.UserRepository
	mailer email.Mailer
}

func NewEmailSink(users user.UserRepository, mailer email.Mailer) *EmailSink {
	return &EmailSink{users: users, mailer: mailer}
}

func (e *EmailSink) Name() string { return "email" }

func (e *EmailSink) Deliver(ctx context.Context, event notification.Event) error {
	owner, err := e.users.GetByID(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("lookup owner %s: %w", event.UserID, err)
	}
	if owner.Email == "" {
		return nil
	}

	reason := event.Reason
	if reason == "" && event.Request.RejectionReason != nil {
		reason = *event.Request.RejectionReason
	}

	return e.mailer.SendLeaveStatus(ctx, owner.Email, email.LeaveStatusData{
		Name:      owner.Name,
		LeaveType: event.Request.LeaveType,
		StartDate: event.Request.StartDate,
		EndDate:   event.Request.EndDate,
		Days:      event.Request.DaysRequested,
		Status:    string(event.Status),
		Reason:    reason,
		RequestID: event.Request.ID,
	})
}
