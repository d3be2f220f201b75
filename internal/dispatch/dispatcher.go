// Package dispatch drives the engine: a cron timer ticks once per minute,
// each tick finds due items, resolves their audiences, persists notification
// records and hands send tasks to the retry queue.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hrplatform/go-notification-engine/internal/delivery"
	"github.com/hrplatform/go-notification-engine/internal/domain"
	"github.com/hrplatform/go-notification-engine/internal/events"
	"github.com/hrplatform/go-notification-engine/internal/metrics"
	"github.com/hrplatform/go-notification-engine/internal/recurrence"
)

// ErrEmptyAudience is returned by ad-hoc dispatch when nobody matches the target
var ErrEmptyAudience = errors.New("no users found matching criteria")

// emptyAudienceMessage is the terminal error recorded on scheduled items that
// resolve to nobody.
const emptyAudienceMessage = "No users found matching criteria"

// ScheduledStore is the dispatcher's view of scheduled item persistence
type ScheduledStore interface {
	FindDue(ctx context.Context, now time.Time) ([]*domain.ScheduledItem, error)
	MarkSent(ctx context.Context, id primitive.ObjectID, sentAt time.Time, recipientCount, successCount int) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, errMsg string) error
}

// RecurringStore is the dispatcher's view of recurring item persistence
type RecurringStore interface {
	FindDue(ctx context.Context, now time.Time) ([]*domain.RecurringItem, error)
	RecordFiring(ctx context.Context, id primitive.ObjectID, firedAt time.Time, nextFireAt *time.Time, succeeded bool) error
}

// RecordStore persists per-recipient notification records
type RecordStore interface {
	InsertMany(ctx context.Context, records []*domain.NotificationRecord) error
}

// AudienceResolver resolves a target spec to recipient user IDs
type AudienceResolver interface {
	Resolve(ctx context.Context, spec domain.TargetSpec) ([]string, error)
}

// SendQueue accepts send tasks for asynchronous delivery
type SendQueue interface {
	Enqueue(task *delivery.Task)
	Shutdown()
}

// Dispatcher runs the dispatch loop. One instance per process; due-item
// claims are plain read-then-write, so running two processes with dispatch
// enabled double-sends.
type Dispatcher struct {
	scheduled ScheduledStore
	recurring RecurringStore
	records   RecordStore
	resolver  AudienceResolver
	queue     SendQueue
	publisher events.Publisher
	log       zerolog.Logger

	gate Gate
	cron *cron.Cron
	now  func() time.Time
}

// NewDispatcher creates a dispatcher. The publisher may be a NopPublisher
// when no broker is configured.
func NewDispatcher(
	scheduled ScheduledStore,
	recurring RecurringStore,
	records RecordStore,
	resolver AudienceResolver,
	queue SendQueue,
	publisher events.Publisher,
	log zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		scheduled: scheduled,
		recurring: recurring,
		records:   records,
		resolver:  resolver,
		queue:     queue,
		publisher: publisher,
		log:       log.With().Str("component", "dispatcher").Logger(),
		now:       time.Now,
	}
}

// Start begins ticking on the given cron spec (normally every minute)
func (d *Dispatcher) Start(cronSpec string) error {
	d.cron = cron.New()
	if _, err := d.cron.AddFunc(cronSpec, d.Tick); err != nil {
		return err
	}
	d.cron.Start()
	d.log.Info().Str("cron_spec", cronSpec).Msg("dispatch loop started")
	return nil
}

// Stop cancels the timer, waits for a running tick to finish, then shuts the
// send queue down, discarding any queued tasks.
func (d *Dispatcher) Stop() {
	if d.cron != nil {
		<-d.cron.Stop().Done()
	}
	d.queue.Shutdown()
	d.log.Info().Msg("dispatch loop stopped")
}

// Tick runs one dispatch pass. If the previous tick is still running, this
// one is dropped entirely. Safe to call concurrently with the timer, e.g.
// from an admin endpoint.
func (d *Dispatcher) Tick() {
	if !d.gate.TryAcquire() {
		metrics.DispatchTicks.WithLabelValues("skipped").Inc()
		d.log.Warn().Msg("previous dispatch tick still running, skipping")
		return
	}
	defer d.gate.Release()

	start := time.Now()
	d.run(context.Background(), d.now())
	metrics.DispatchTickDuration.Observe(time.Since(start).Seconds())
	metrics.DispatchTicks.WithLabelValues("run").Inc()
}

// run processes everything due at now. Errors are handled per item; the tick
// always completes.
func (d *Dispatcher) run(ctx context.Context, now time.Time) {
	scheduled, err := d.scheduled.FindDue(ctx, now)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to query due scheduled items")
	} else {
		for _, item := range scheduled {
			d.dispatchScheduled(ctx, item, now)
		}
	}

	recurring, err := d.recurring.FindDue(ctx, now)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to query due recurring items")
		return
	}
	for _, item := range recurring {
		d.dispatchRecurring(ctx, item, now)
	}
}

func (d *Dispatcher) dispatchScheduled(ctx context.Context, item *domain.ScheduledItem, now time.Time) {
	log := d.log.With().Str("item_id", item.ID.Hex()).Str("kind", "scheduled").Logger()

	recipients, err := d.resolver.Resolve(ctx, item.Target)
	if err != nil {
		log.Error().Err(err).Msg("audience resolution failed")
		d.markScheduledFailed(ctx, item.ID, err.Error(), log)
		metrics.ItemsDispatched.WithLabelValues("scheduled", "failed").Inc()
		return
	}
	if len(recipients) == 0 {
		log.Warn().Msg("no recipients matched target")
		d.markScheduledFailed(ctx, item.ID, emptyAudienceMessage, log)
		metrics.ItemsDispatched.WithLabelValues("scheduled", "empty").Inc()
		return
	}

	source := &domain.SourceRef{Kind: domain.SourceScheduled, ID: item.ID}
	records := buildRecords(item.Title, item.Message, item.URL, source, recipients)
	if err := d.records.InsertMany(ctx, records); err != nil {
		log.Error().Err(err).Msg("failed to persist notification records")
		d.markScheduledFailed(ctx, item.ID, err.Error(), log)
		metrics.ItemsDispatched.WithLabelValues("scheduled", "failed").Inc()
		return
	}

	if err := d.scheduled.MarkSent(ctx, item.ID, now, len(recipients), len(recipients)); err != nil {
		// Not pending anymore: another writer got here first, so the records
		// are persisted but the send belongs to whoever won.
		log.Error().Err(err).Msg("failed to mark item sent, skipping enqueue")
		metrics.ItemsDispatched.WithLabelValues("scheduled", "failed").Inc()
		return
	}

	d.enqueueAndPublish(item.Title, item.Message, item.URL, domain.SourceScheduled, item.ID, records)
	metrics.ItemsDispatched.WithLabelValues("scheduled", "sent").Inc()
	log.Info().Int("recipients", len(recipients)).Msg("scheduled notification dispatched")
}

func (d *Dispatcher) dispatchRecurring(ctx context.Context, item *domain.RecurringItem, now time.Time) {
	log := d.log.With().Str("item_id", item.ID.Hex()).Str("kind", "recurring").Logger()

	// The next fire time is computed up front: every outcome of this firing,
	// including failure, advances the rule.
	var nextFireAt *time.Time
	if next, ok := recurrence.Next(item.Schedule, now); ok {
		nextFireAt = &next
	}

	recipients, err := d.resolver.Resolve(ctx, item.Target)
	if err != nil {
		log.Error().Err(err).Msg("audience resolution failed")
		d.recordRecurringFiring(ctx, item.ID, now, nextFireAt, false, log)
		metrics.ItemsDispatched.WithLabelValues("recurring", "failed").Inc()
		return
	}
	if len(recipients) == 0 {
		log.Warn().Msg("no recipients matched target, skipping this occurrence")
		d.recordRecurringFiring(ctx, item.ID, now, nextFireAt, false, log)
		metrics.ItemsDispatched.WithLabelValues("recurring", "empty").Inc()
		return
	}

	source := &domain.SourceRef{Kind: domain.SourceRecurring, ID: item.ID}
	records := buildRecords(item.Title, item.Message, item.URL, source, recipients)
	if err := d.records.InsertMany(ctx, records); err != nil {
		log.Error().Err(err).Msg("failed to persist notification records")
		d.recordRecurringFiring(ctx, item.ID, now, nextFireAt, false, log)
		metrics.ItemsDispatched.WithLabelValues("recurring", "failed").Inc()
		return
	}

	d.recordRecurringFiring(ctx, item.ID, now, nextFireAt, true, log)
	d.enqueueAndPublish(item.Title, item.Message, item.URL, domain.SourceRecurring, item.ID, records)
	metrics.ItemsDispatched.WithLabelValues("recurring", "sent").Inc()

	if nextFireAt == nil {
		log.Info().Int("recipients", len(recipients)).Msg("recurring notification fired for the last time, deactivated")
	} else {
		log.Info().Int("recipients", len(recipients)).Time("next_fire_at", *nextFireAt).Msg("recurring notification fired")
	}
}

// DispatchAdHoc sends a notification immediately, outside any schedule,
// through the same resolve, record, enqueue path as the dispatch loop.
// Ad-hoc records carry no source reference.
func (d *Dispatcher) DispatchAdHoc(ctx context.Context, title, message, url string, target domain.TargetSpec) (int, error) {
	recipients, err := d.resolver.Resolve(ctx, target)
	if err != nil {
		return 0, err
	}
	if len(recipients) == 0 {
		return 0, ErrEmptyAudience
	}

	records := buildRecords(title, message, url, nil, recipients)
	if err := d.records.InsertMany(ctx, records); err != nil {
		return 0, err
	}

	d.enqueueAndPublish(title, message, url, "adhoc", primitive.NilObjectID, records)
	d.log.Info().Int("recipients", len(recipients)).Msg("ad-hoc notification dispatched")
	return len(recipients), nil
}

func (d *Dispatcher) markScheduledFailed(ctx context.Context, id primitive.ObjectID, errMsg string, log zerolog.Logger) {
	if err := d.scheduled.MarkFailed(ctx, id, errMsg); err != nil {
		log.Error().Err(err).Msg("failed to mark item failed")
	}
}

func (d *Dispatcher) recordRecurringFiring(ctx context.Context, id primitive.ObjectID, firedAt time.Time, nextFireAt *time.Time, succeeded bool, log zerolog.Logger) {
	if err := d.recurring.RecordFiring(ctx, id, firedAt, nextFireAt, succeeded); err != nil {
		log.Error().Err(err).Msg("failed to record firing outcome")
	}
}

// enqueueAndPublish hands persisted records to the retry queue and emits one
// realtime event per recipient. Records must already be in the store.
func (d *Dispatcher) enqueueAndPublish(title, message, url string, sourceKind domain.SourceKind, sourceID primitive.ObjectID, records []*domain.NotificationRecord) {
	taskRecipients := make([]delivery.Recipient, len(records))
	for i, rec := range records {
		taskRecipients[i] = delivery.Recipient{UserID: rec.RecipientID, RecordID: rec.ID}
	}

	metadata := map[string]string{"source_kind": string(sourceKind)}
	if !sourceID.IsZero() {
		metadata["source_id"] = sourceID.Hex()
	}

	d.queue.Enqueue(&delivery.Task{
		ID:         uuid.NewString(),
		Title:      title,
		Message:    message,
		URL:        url,
		Metadata:   metadata,
		Recipients: taskRecipients,
	})

	for _, rec := range records {
		d.publisher.PublishNotificationCreated(events.NotificationCreated{
			RecordID:    rec.ID.Hex(),
			RecipientID: rec.RecipientID,
			Title:       rec.Title,
			Message:     rec.Message,
			URL:         rec.URL,
			CreatedAt:   rec.CreatedAt,
		})
	}
}

func buildRecords(title, message, url string, source *domain.SourceRef, recipients []string) []*domain.NotificationRecord {
	records := make([]*domain.NotificationRecord, len(recipients))
	for i, userID := range recipients {
		records[i] = &domain.NotificationRecord{
			RecipientID: userID,
			Title:       title,
			Message:     message,
			URL:         url,
			Source:      source,
		}
	}
	return records
}
