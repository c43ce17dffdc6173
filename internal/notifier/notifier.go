// Package notifier turns a run with dead links into alerts and dispatches them through
// the configured channels. Channels are independent: one failing never blocks or fails
// another, and every attempt is reported back as a structured result.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dandantas/linkpatrol/internal/metrics"
	"github.com/dandantas/linkpatrol/internal/model"
)

// CSVAttachmentName is the file name of the full dead link list attached to emails
const CSVAttachmentName = "dead-links.csv"

// EmailSender delivers an email
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// WebhookSender delivers a payload to a webhook URL
type WebhookSender interface {
	SendWebhook(ctx context.Context, url string, payload model.NotificationPayload) (*model.DeliveryLog, error)
}

// DeliveryRecorder stores delivery logs for audit
type DeliveryRecorder interface {
	Record(ctx context.Context, log *model.DeliveryLog) error
}

// EmailChannel configures email alerts
type EmailChannel struct {
	Enabled bool
	To      []string
}

// WebhookChannel configures webhook alerts
type WebhookChannel struct {
	Enabled bool
	URL     string
}

// Channels is the set of configured notification channels
type Channels struct {
	Email   EmailChannel
	Webhook WebhookChannel
}

// Notifier dispatches dead link alerts
type Notifier struct {
	channels     Channels
	email        EmailSender
	webhook      WebhookSender
	recorder     DeliveryRecorder
	metrics      *metrics.Metrics
	previewLimit int
}

// Option configures a Notifier
type Option func(*Notifier)

// WithEmailSender sets the email transport
func WithEmailSender(sender EmailSender) Option {
	return func(n *Notifier) { n.email = sender }
}

// WithWebhookSender sets the webhook transport
func WithWebhookSender(sender WebhookSender) Option {
	return func(n *Notifier) { n.webhook = sender }
}

// WithRecorder stores a delivery log for every channel result
func WithRecorder(recorder DeliveryRecorder) Option {
	return func(n *Notifier) { n.recorder = recorder }
}

// WithMetrics records dispatch metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Notifier) { n.metrics = m }
}

// WithPreviewLimit sets how many dead links are listed in rendered content
func WithPreviewLimit(limit int) Option {
	return func(n *Notifier) {
		if limit > 0 {
			n.previewLimit = limit
		}
	}
}

// New creates a notifier for channels
func New(channels Channels, opts ...Option) *Notifier {
	n := &Notifier{
		channels:     channels,
		previewLimit: DefaultPreviewLimit,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Enabled lists the channels that are switched on and have a transport
func (n *Notifier) Enabled() []string {
	var enabled []string
	if n.channels.Email.Enabled && n.email != nil {
		enabled = append(enabled, model.ChannelEmail)
	}
	if n.channels.Webhook.Enabled && n.webhook != nil {
		enabled = append(enabled, model.ChannelWebhook)
	}
	return enabled
}

// Notify dispatches payload to every enabled channel concurrently and waits for all of
// them. Payloads without dead links are not dispatched.
func (n *Notifier) Notify(ctx context.Context, payload model.NotificationPayload) model.NotificationReport {
	if payload.TotalDeadLinks == 0 || len(payload.Details) == 0 {
		return model.NotificationReport{Dispatched: false}
	}

	channels := n.Enabled()
	if len(channels) == 0 {
		slog.Info("No notification channels enabled", "check_id", payload.SourceRunID)
		return model.NotificationReport{Dispatched: false}
	}

	results := make([]model.ChannelResult, len(channels))

	var g errgroup.Group
	for i, channel := range channels {
		i, channel := i, channel
		g.Go(func() error {
			results[i] = n.dispatch(ctx, channel, payload)
			return nil
		})
	}
	_ = g.Wait()

	report := model.NotificationReport{Dispatched: true, Channels: results}

	slog.Info("Notifications dispatched",
		"check_id", payload.SourceRunID,
		"channels", len(results),
		"succeeded", report.Succeeded(),
	)

	return report
}

// dispatch sends through one channel, converting errors and panics into a failed result
func (n *Notifier) dispatch(ctx context.Context, channel string, payload model.NotificationPayload) (result model.ChannelResult) {
	start := time.Now()
	result = model.ChannelResult{Channel: channel}

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("panic: %v", r)
		}
		result.DurationMs = time.Since(start).Milliseconds()

		n.metrics.ObserveNotification(channel, result.Success)
		if result.Success {
			slog.Info("Notification delivered",
				"check_id", payload.SourceRunID,
				"channel", channel,
				"target", result.Target,
				"duration_ms", result.DurationMs,
			)
		} else {
			slog.Error("Notification failed",
				"check_id", payload.SourceRunID,
				"channel", channel,
				"target", result.Target,
				"error", result.Error,
			)
		}
	}()

	var (
		log *model.DeliveryLog
		err error
	)
	switch channel {
	case model.ChannelEmail:
		result.Target = strings.Join(n.channels.Email.To, ",")
		log, err = n.sendEmail(ctx, payload)
	case model.ChannelWebhook:
		result.Target = n.channels.Webhook.URL
		log, err = n.webhook.SendWebhook(ctx, n.channels.Webhook.URL, payload)
	default:
		err = fmt.Errorf("unknown channel %q", channel)
	}

	if err != nil {
		result.Error = err.Error()
	} else {
		result.Success = true
	}

	n.record(ctx, log)
	return result
}

func (n *Notifier) sendEmail(ctx context.Context, payload model.NotificationPayload) (*model.DeliveryLog, error) {
	started := time.Now().UTC()
	log := &model.DeliveryLog{
		CheckID:   payload.SourceRunID,
		Channel:   model.ChannelEmail,
		Target:    strings.Join(n.channels.Email.To, ","),
		DeadLinks: payload.TotalDeadLinks,
		CreatedAt: started,
	}

	msg, err := n.buildEmail(payload)
	if err == nil {
		err = n.email.SendEmail(ctx, msg)
	}

	attempt := model.DeliveryAttempt{
		AttemptNumber: 1,
		Timestamp:     started,
		DurationMs:    time.Since(started).Milliseconds(),
	}
	log.CompletedAt = time.Now().UTC()
	if err != nil {
		attempt.Error = err.Error()
		log.FinalStatus = model.DeliveryFailed
		log.Error = err.Error()
	} else {
		log.FinalStatus = model.DeliveryDelivered
	}
	log.Attempts = []model.DeliveryAttempt{attempt}

	return log, err
}

func (n *Notifier) buildEmail(payload model.NotificationPayload) (EmailMessage, error) {
	if len(n.channels.Email.To) == 0 {
		return EmailMessage{}, errors.New("no email recipients configured")
	}

	text, err := RenderText(payload, n.previewLimit)
	if err != nil {
		return EmailMessage{}, err
	}
	html, err := RenderHTML(payload, n.previewLimit)
	if err != nil {
		return EmailMessage{}, err
	}
	csv, err := RenderCSV(payload)
	if err != nil {
		return EmailMessage{}, err
	}

	return EmailMessage{
		To:          n.channels.Email.To,
		Subject:     Subject(payload),
		HTML:        html,
		Text:        text,
		Attachments: []Attachment{{Name: CSVAttachmentName, Data: csv}},
	}, nil
}

func (n *Notifier) record(ctx context.Context, log *model.DeliveryLog) {
	if n.recorder == nil || log == nil {
		return
	}
	if err := n.recorder.Record(ctx, log); err != nil {
		slog.Warn("Failed to record delivery log",
			"check_id", log.CheckID,
			"channel", log.Channel,
			"error", err,
		)
	}
}
