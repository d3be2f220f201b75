package delivery

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hrplatform/go-notification-engine/internal/channel"
	"github.com/hrplatform/go-notification-engine/internal/domain"
	"github.com/hrplatform/go-notification-engine/internal/metrics"
)

// RecordStore is what the deliverer needs to write per-recipient channel
// outcomes back to notification records.
type RecordStore interface {
	SetPushOutcome(ctx context.Context, ids []primitive.ObjectID, succeeded bool, at time.Time) error
	SetEmailOutcome(ctx context.Context, id primitive.ObjectID, succeeded bool, at time.Time) error
}

// RecipientDirectory resolves recipient user IDs to accounts, used to find
// email addresses for the fallback channel.
type RecipientDirectory interface {
	FindUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error)
}

// Deliverer sends a task through the push channel and falls back to email on
// a hard push failure, recording per-recipient outcomes as it goes. Errors it
// returns are always classified transient or terminal so the retry queue can
// decide without inspecting channel internals.
type Deliverer struct {
	push      channel.PushSender
	email     channel.EmailSender
	directory RecipientDirectory
	records   RecordStore
	log       zerolog.Logger
}

// NewDeliverer wires the two channel adapters, the directory and the record store
func NewDeliverer(push channel.PushSender, email channel.EmailSender, directory RecipientDirectory, records RecordStore, log zerolog.Logger) *Deliverer {
	return &Deliverer{
		push:      push,
		email:     email,
		directory: directory,
		records:   records,
		log:       log.With().Str("component", "deliverer").Logger(),
	}
}

// Deliver implements TaskDeliverer
func (d *Deliverer) Deliver(ctx context.Context, task *Task) error {
	if len(task.Recipients) == 0 {
		return fmt.Errorf("task %s has no recipients", task.ID)
	}

	userIDs := make([]string, len(task.Recipients))
	recordIDs := make([]primitive.ObjectID, len(task.Recipients))
	for i, r := range task.Recipients {
		userIDs[i] = r.UserID
		recordIDs[i] = r.RecordID
	}

	now := time.Now()
	result, pushErr := d.push.SendPush(ctx, userIDs, task.Title, task.Message, task.URL, task.Metadata)
	if pushErr == nil {
		metrics.DeliveryAttempts.WithLabelValues("push", "success").Inc()
		if err := d.records.SetPushOutcome(ctx, recordIDs, result.Success, now); err != nil {
			d.log.Error().Err(err).Str("task_id", task.ID).Msg("failed to record push outcome")
		}
		d.log.Info().Str("task_id", task.ID).Int("recipients", len(userIDs)).
			Int("delivered", result.DeliveredCount).Msg("push delivered")
		return nil
	}

	// Hard push failure: record it and fall back to email.
	metrics.DeliveryAttempts.WithLabelValues("push", "failure").Inc()
	if err := d.records.SetPushOutcome(ctx, recordIDs, false, now); err != nil {
		d.log.Error().Err(err).Str("task_id", task.ID).Msg("failed to record push outcome")
	}
	d.log.Warn().Err(pushErr).Str("task_id", task.ID).Msg("push delivery failed, falling back to email")

	return d.deliverEmailFallback(ctx, task, pushErr)
}

func (d *Deliverer) deliverEmailFallback(ctx context.Context, task *Task, pushErr error) error {
	userIDs := make([]string, len(task.Recipients))
	for i, r := range task.Recipients {
		userIDs[i] = r.UserID
	}

	users, err := d.directory.FindUsersByIDs(ctx, userIDs)
	if err != nil {
		return Transient(fmt.Errorf("looking up recipient emails: %w", err))
	}
	emailByUser := make(map[string]string, len(users))
	for _, u := range users {
		emailByUser[u.ID.Hex()] = u.Email
	}

	htmlBody, textBody := emailBodies(task.Title, task.Message, task.URL)

	sent := 0
	var lastErr error
	for _, rcp := range task.Recipients {
		addr := emailByUser[rcp.UserID]
		if !validEmail(addr) {
			continue
		}

		now := time.Now()
		if err := d.email.SendEmail(ctx, addr, task.Title, htmlBody, textBody); err != nil {
			metrics.DeliveryAttempts.WithLabelValues("email", "failure").Inc()
			lastErr = err
			if rerr := d.records.SetEmailOutcome(ctx, rcp.RecordID, false, now); rerr != nil {
				d.log.Error().Err(rerr).Str("record_id", rcp.RecordID.Hex()).Msg("failed to record email outcome")
			}
			continue
		}

		metrics.DeliveryAttempts.WithLabelValues("email", "success").Inc()
		sent++
		if rerr := d.records.SetEmailOutcome(ctx, rcp.RecordID, true, now); rerr != nil {
			d.log.Error().Err(rerr).Str("record_id", rcp.RecordID.Hex()).Msg("failed to record email outcome")
		}
	}

	if sent > 0 {
		d.log.Info().Str("task_id", task.ID).Int("emails_sent", sent).Msg("email fallback delivered")
		return nil
	}
	if lastErr != nil {
		return Transient(fmt.Errorf("push failed (%v), email fallback failed: %w", pushErr, lastErr))
	}
	// No recipient has a usable address; retrying cannot help.
	return fmt.Errorf("push failed and no recipients have a valid email address: %w", pushErr)
}

func validEmail(addr string) bool {
	return addr != "" && strings.Contains(addr, "@")
}

// emailBodies renders the transactional fallback email: the notification
// title, message and a deep link built from the click-through URL.
func emailBodies(title, message, url string) (htmlBody, textBody string) {
	var b strings.Builder
	b.WriteString("<h2>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</h2><p>")
	b.WriteString(html.EscapeString(message))
	b.WriteString("</p>")
	if url != "" {
		b.WriteString(`<p><a href="`)
		b.WriteString(html.EscapeString(url))
		b.WriteString(`">View in HR portal</a></p>`)
	}
	htmlBody = b.String()

	textBody = title + "\n\n" + message
	if url != "" {
		textBody += "\n\n" + url
	}
	return htmlBody, textBody
}
