package email

import (
	"context"
	"log/slog"

	"github.com/ticketwell/helpdesk-core/internal/core/ports"
)

// MockSMTPNotifier is a secondary adapter that mocks sending emails. Entry
// hooks such as notify_requester use it to reach the ticket requester.
// It implements the ports.Notifier interface.
type MockSMTPNotifier struct {
	logger *slog.Logger
}

// NewMockSMTPNotifier creates a new mock notifier.
func NewMockSMTPNotifier(logger *slog.Logger) ports.Notifier {
	return &MockSMTPNotifier{
		logger: logger.With("component", "email_notifier"),
	}
}

// Notify logs the notification to the console instead of sending an email.
// It may be invoked from a request-scoped goroutine and should handle its
// own errors.
func (n *MockSMTPNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	n.logger.Info("mock email sent",
		"recipient_id", params.RecipientID,
		"subject", params.Subject,
		"ticket_id", params.TicketID,
	)
}
