package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/olonts/salein-reminders/internal/domain"
	"github.com/olonts/salein-reminders/internal/notify"
	"github.com/olonts/salein-reminders/internal/observability"
	"github.com/olonts/salein-reminders/internal/provider"
	"github.com/olonts/salein-reminders/internal/ratelimit"
	"github.com/olonts/salein-reminders/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPollInterval        = time.Minute
	defaultPollLimit           = 100
	defaultDispatchConcurrency = 8
	defaultDispatchSendTimeout = 15 * time.Second
	// Advisory only; eligibility is gated by retryCount and sendDate.
	advisoryRetryDelay = 30 * time.Minute

	emailRateBucket = "email"
)

// DispatcherConfig tunes the poll loop.
type DispatcherConfig struct {
	Interval    time.Duration
	Limit       int
	Concurrency int
	MaxRetries  int
	SendTimeout time.Duration
	EmailFrom   string
}

// Dispatcher polls the reminder store for due reminders and drives each one
// through its status transitions: delivery success moves it to sent, repeated
// failure through the bounded retry counter moves it to failed. It is the
// only writer of reminder status and retry state.
//
// If a status write fails after a successful send, the reminder stays
// pending and a later cycle may send again. The guarantee is at most
// maxRetries+1 attempts, not exactly-once.
type Dispatcher struct {
	reminders   repository.ReminderRepository
	attempts    repository.AttemptRepository
	sender      provider.EmailSender
	rateLimiter ratelimit.RateLimiter
	notifier    notify.Notifier
	logger      *zap.Logger
	metrics     *observability.Metrics

	interval    time.Duration
	limit       int
	concurrency int
	maxRetries  int
	sendTimeout time.Duration
	emailFrom   string
	now         func() time.Time
}

func NewDispatcher(
	reminders repository.ReminderRepository,
	attempts repository.AttemptRepository,
	sender provider.EmailSender,
	rateLimiter ratelimit.RateLimiter,
	notifier notify.Notifier,
	cfg DispatcherConfig,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if reminders == nil {
		return nil, fmt.Errorf("reminder repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("email sender is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Interval <= 0 {
		cfg.Interval = defaultPollInterval
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultPollLimit
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultDispatchConcurrency
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = domain.DefaultMaxRetries
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultDispatchSendTimeout
	}

	return &Dispatcher{
		reminders:   reminders,
		attempts:    attempts,
		sender:      sender,
		rateLimiter: rateLimiter,
		notifier:    notifier,
		logger:      logger,
		interval:    cfg.Interval,
		limit:       cfg.Limit,
		concurrency: cfg.Concurrency,
		maxRetries:  cfg.MaxRetries,
		sendTimeout: cfg.SendTimeout,
		emailFrom:   cfg.EmailFrom,
		now:         time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Start runs poll cycles until context cancellation.
func (d *Dispatcher) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial cycle so already-due reminders do not wait for the
	// first ticker edge.
	if err := d.runCycle(ctx); err != nil && ctx.Err() == nil {
		d.logger.Error("dispatcher initial poll failed", zap.Error(err))
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.runCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				d.logger.Error("dispatcher poll failed", zap.Error(err))
			}
		}
	}
}

// runCycle fetches due reminders and processes them concurrently. A failure
// inside one reminder never aborts the others; only the due-list fetch can
// fail the cycle.
func (d *Dispatcher) runCycle(ctx context.Context) error {
	cycleStart := d.now()

	due, err := d.reminders.ListDue(ctx, d.now(), d.maxRetries, d.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due reminders: %w", err)
	}
	d.metrics.SetDueBacklog(len(due))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i := range due {
		reminder := due[i]
		g.Go(func() error {
			d.process(groupCtx, reminder)
			return nil
		})
	}
	_ = g.Wait()

	d.metrics.ObservePollCycleDuration(d.now().Sub(cycleStart))
	return nil
}

func (d *Dispatcher) process(ctx context.Context, reminder domain.Reminder) {
	d.metrics.IncDispatchInFlight()
	defer d.metrics.DecDispatchInFlight()

	if d.rateLimiter != nil {
		if err := d.rateLimiter.Wait(ctx, emailRateBucket); err != nil {
			// Not a delivery failure; the reminder stays pending for the
			// next cycle without consuming a retry.
			d.logger.Warn("rate limiter wait failed, deferring reminder",
				zap.String("reminderId", reminder.ID),
				zap.Error(err),
			)
			return
		}
	}

	attemptNumber := reminder.RetryCount + 1
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	sendStart := d.now()
	resp, sendErr := d.sender.Send(sendCtx, reminderEmail(d.emailFrom, reminder))
	d.metrics.ObserveReminderSendDuration(d.now().Sub(sendStart))

	d.recordAttempt(ctx, reminder.ID, attemptNumber, resp, sendErr)

	if sendErr == nil {
		d.completeDelivery(ctx, reminder)
		return
	}

	d.handleDeliveryFailure(ctx, reminder, sendErr)
}

func (d *Dispatcher) completeDelivery(ctx context.Context, reminder domain.Reminder) {
	if err := d.reminders.UpdateStatus(ctx, reminder.ID, domain.StatusSent); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.logger.Warn("reminder vanished before status update",
				zap.String("reminderId", reminder.ID),
			)
			return
		}
		// The email went out but the store write failed; the reminder stays
		// pending and a later cycle may send again.
		d.logger.Error("failed to mark reminder as sent",
			zap.String("reminderId", reminder.ID),
			zap.Error(err),
		)
		return
	}

	d.metrics.IncReminderSent()
	d.notifier.ReminderSent(ctx, reminder)
}

func (d *Dispatcher) handleDeliveryFailure(ctx context.Context, reminder domain.Reminder, sendErr error) {
	deliveryErr := fmt.Errorf("%w: %v", domain.ErrDelivery, sendErr)
	newRetryCount := reminder.RetryCount + 1

	if newRetryCount >= d.maxRetries {
		if err := d.reminders.UpdateStatus(ctx, reminder.ID, domain.StatusFailed); err != nil {
			d.logger.Error("failed to mark reminder as failed",
				zap.String("reminderId", reminder.ID),
				zap.Error(err),
			)
			return
		}
		d.metrics.IncReminderFailed("retry_exhausted")
		d.notifier.ReminderFailed(ctx, reminder, deliveryErr)
		return
	}

	nextRetryAt := d.now().Add(advisoryRetryDelay)
	if err := d.reminders.UpdateRetryCount(ctx, reminder.ID, newRetryCount, nextRetryAt); err != nil {
		d.logger.Error("failed to bump reminder retry count",
			zap.String("reminderId", reminder.ID),
			zap.Error(err),
		)
		return
	}

	d.metrics.IncRetryScheduled()
	// The notifier dedups per reminder id and outcome, so later failures of
	// the same reminder stay silent.
	d.notifier.ReminderFailed(ctx, reminder, deliveryErr)
	d.logger.Warn("reminder delivery failed, will retry on a later cycle",
		zap.String("reminderId", reminder.ID),
		zap.Int("retryCount", newRetryCount),
		zap.Error(deliveryErr),
	)
}

// recordAttempt persists the delivery audit row. Audit is best-effort; a
// write failure must not change the reminder's fate.
func (d *Dispatcher) recordAttempt(
	ctx context.Context,
	reminderID string,
	attemptNumber int,
	resp *provider.SendResponse,
	sendErr error,
) {
	if d.attempts == nil {
		return
	}

	var statusCode *int
	var messageID *string
	var attemptErr *string

	if resp != nil {
		if resp.StatusCode > 0 {
			value := resp.StatusCode
			statusCode = &value
		}
		if resp.MessageID != "" {
			value := resp.MessageID
			messageID = &value
		}
	}

	if sendErr != nil {
		value := sendErr.Error()
		attemptErr = &value

		var providerErr *provider.ProviderError
		if errors.As(sendErr, &providerErr) && providerErr.StatusCode > 0 && statusCode == nil {
			value := providerErr.StatusCode
			statusCode = &value
		}
	}

	attempt := &domain.DeliveryAttempt{
		ID:            uuid.NewString(),
		ReminderID:    reminderID,
		AttemptNumber: attemptNumber,
		StatusCode:    statusCode,
		MessageID:     messageID,
		Error:         attemptErr,
		CreatedAt:     d.now().UTC(),
	}

	if err := d.attempts.Create(ctx, attempt); err != nil {
		d.logger.Warn("failed to record delivery attempt",
			zap.String("reminderId", reminderID),
			zap.Error(err),
		)
	}
}
