package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// dryRunNotifier stands in for the real Notifier during a dry run.
// It logs what would be sent and reports success with a fake message ID.
type dryRunNotifier struct {
	logger  *slog.Logger
	counter uint64
}

// newDryRunNotifier creates a notifier that never sends.
func newDryRunNotifier(logger *slog.Logger) *dryRunNotifier {
	return &dryRunNotifier{logger: logger}
}

// SendEmail logs the email that would be sent.
func (d *dryRunNotifier) SendEmail(_ context.Context, msg Message) (SendResult, error) {
	id := d.nextFakeID("email")

	d.logger.Info("[DRY-RUN] would send email",
		"fake_id", id,
		"to", msg.To,
		"template", msg.Template,
		"subject", msg.Subject)

	return SendResult{Success: true, MessageID: id}, nil
}

// SendSMS logs the text message that would be sent.
func (d *dryRunNotifier) SendSMS(_ context.Context, msg Message) (SendResult, error) {
	id := d.nextFakeID("sms")

	d.logger.Info("[DRY-RUN] would send sms",
		"fake_id", id,
		"to", msg.To,
		"template", msg.Template)

	return SendResult{Success: true, MessageID: id}, nil
}

// nextFakeID generates a unique fake ID for dry-run sends.
func (d *dryRunNotifier) nextFakeID(prefix string) string {
	n := atomic.AddUint64(&d.counter, 1)
	return fmt.Sprintf("dry-run-%s-%d", prefix, n)
}

// dryRunTaskSink logs tasks instead of creating them.
type dryRunTaskSink struct {
	logger *slog.Logger
}

// CreateTask logs the task that would be created.
func (d *dryRunTaskSink) CreateTask(_ context.Context, task Task) error {
	d.logger.Info("[DRY-RUN] would create task",
		"person_id", task.PersonID,
		"title", task.Title,
		"due_date", task.DueDate,
		"assigned_to", task.AssignedTo)
	return nil
}
