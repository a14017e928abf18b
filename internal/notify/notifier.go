package notify

import (
	"context"
	"sync"

	"github.com/olonts/salein-reminders/internal/domain"
	"go.uber.org/zap"
)

// Outcome names the terminal transition being announced.
type Outcome string

const (
	OutcomeSent   Outcome = "sent"
	OutcomeFailed Outcome = "failed"
)

// Notifier is the user-facing notification surface. Announcements are
// advisory; durable state lives in the reminder store.
type Notifier interface {
	ReminderSent(ctx context.Context, reminder domain.Reminder)
	ReminderFailed(ctx context.Context, reminder domain.Reminder, cause error)
}

// Deduper remembers reminder id/outcome pairs already announced, so repeated
// poll cycles observing the same terminal transition stay silent.
type Deduper interface {
	// FirstSeen records the pair and reports whether this call was the first.
	FirstSeen(ctx context.Context, reminderID string, outcome Outcome) (bool, error)
}

// MemoryDeduper is an in-process Deduper for single-replica deployments
// and tests.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, reminderID string, outcome Outcome) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := reminderID + ":" + string(outcome)
	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = struct{}{}
	return true, nil
}

// LogNotifier announces reminder outcomes through the structured log,
// standing in for the toast surface of the invoice UI.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) ReminderSent(_ context.Context, reminder domain.Reminder) {
	n.logger.Info("payment reminder sent",
		zap.String("reminderId", reminder.ID),
		zap.String("invoiceId", reminder.InvoiceID),
		zap.String("recipient", reminder.RecipientEmail),
	)
}

func (n *LogNotifier) ReminderFailed(_ context.Context, reminder domain.Reminder, cause error) {
	n.logger.Warn("payment reminder failed",
		zap.String("reminderId", reminder.ID),
		zap.String("invoiceId", reminder.InvoiceID),
		zap.String("recipient", reminder.RecipientEmail),
		zap.Error(cause),
	)
}

// DedupNotifier suppresses repeat announcements per reminder id and outcome.
// A dedup store failure suppresses the announcement rather than risking a
// duplicate; the at-most-once contract wins over delivery of the toast.
type DedupNotifier struct {
	next    Notifier
	deduper Deduper
	logger  *zap.Logger
}

func NewDedupNotifier(next Notifier, deduper Deduper, logger *zap.Logger) *DedupNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DedupNotifier{next: next, deduper: deduper, logger: logger}
}

func (n *DedupNotifier) ReminderSent(ctx context.Context, reminder domain.Reminder) {
	if !n.shouldAnnounce(ctx, reminder.ID, OutcomeSent) {
		return
	}
	n.next.ReminderSent(ctx, reminder)
}

func (n *DedupNotifier) ReminderFailed(ctx context.Context, reminder domain.Reminder, cause error) {
	if !n.shouldAnnounce(ctx, reminder.ID, OutcomeFailed) {
		return
	}
	n.next.ReminderFailed(ctx, reminder, cause)
}

func (n *DedupNotifier) shouldAnnounce(ctx context.Context, reminderID string, outcome Outcome) bool {
	first, err := n.deduper.FirstSeen(ctx, reminderID, outcome)
	if err != nil {
		n.logger.Warn("notification dedup check failed, suppressing announcement",
			zap.String("reminderId", reminderID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
		return false
	}
	return first
}
