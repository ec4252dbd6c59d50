package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jecrcuniv/nodues-api/internal/models"
	"github.com/jecrcuniv/nodues-api/pkg/jobs"
)

type outboxStore interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	ListPending(ctx context.Context, limit int) ([]models.Notification, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string, terminal bool) error
}

// Sender delivers one notification to its recipient. Implementations decide
// the transport; delivery must be safe to retry.
type Sender interface {
	Send(ctx context.Context, n *models.Notification) error
}

// LogSender is the default transport: it writes the notification to the log.
// Deployments plug a real transport behind the Sender interface.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs the logging transport.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, n *models.Notification) error {
	s.logger.Info("notification dispatched",
		zap.String("notification_id", n.ID),
		zap.String("application_id", n.ApplicationID),
		zap.String("event", string(n.Event)),
		zap.String("recipient", n.Recipient))
	return nil
}

// NotificationService persists outbox rows and drains them through a worker
// queue. Persist-then-enqueue: a crash between the two is recovered by
// RecoverPending on startup.
type NotificationService struct {
	outbox  outboxStore
	sender  Sender
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	enabled bool
}

// NewNotificationService constructs the service and its worker queue.
func NewNotificationService(outbox outboxStore, sender Sender, metrics *MetricsService, logger *zap.Logger, queueCfg jobs.QueueConfig, enabled bool) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = NewLogSender(logger)
	}
	s := &NotificationService{
		outbox:  outbox,
		sender:  sender,
		metrics: metrics,
		logger:  logger,
		enabled: enabled,
	}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.handleJob, queueCfg)
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if !s.enabled {
		s.logger.Info("notification delivery disabled")
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	if !s.enabled {
		return
	}
	s.queue.Stop()
}

// NewApplication notifies departments that a fresh application arrived.
func (s *NotificationService) NewApplication(ctx context.Context, app *models.Application) error {
	return s.dispatch(ctx, app, models.EventNewApplication, map[string]interface{}{
		"registration_no": app.RegistrationNo,
		"student_name":    app.StudentName,
	})
}

// ApplicationRejected notifies the student that a department rejected.
func (s *NotificationService) ApplicationRejected(ctx context.Context, app *models.Application, department, comment string) error {
	return s.dispatch(ctx, app, models.EventApplicationRejected, map[string]interface{}{
		"registration_no": app.RegistrationNo,
		"department":      department,
		"comment":         comment,
	})
}

// CertificateReady notifies the student that the certificate is available.
func (s *NotificationService) CertificateReady(ctx context.Context, app *models.Application, downloadURL string) error {
	return s.dispatch(ctx, app, models.EventCertificateReady, map[string]interface{}{
		"registration_no": app.RegistrationNo,
		"download_url":    downloadURL,
	})
}

// DepartmentReminder nudges a department about an application still waiting
// in its queue. When the department has no mailbox on record the student
// contact is used instead.
func (s *NotificationService) DepartmentReminder(ctx context.Context, app *models.Application, department, recipient string) error {
	if recipient == "" {
		recipient = recipientFor(app)
	}
	return s.dispatchTo(ctx, app, models.EventReminder, recipient, map[string]interface{}{
		"registration_no": app.RegistrationNo,
		"department":      department,
	})
}

func (s *NotificationService) dispatch(ctx context.Context, app *models.Application, event models.NotificationEvent, payload map[string]interface{}) error {
	return s.dispatchTo(ctx, app, event, recipientFor(app), payload)
}

func (s *NotificationService) dispatchTo(ctx context.Context, app *models.Application, event models.NotificationEvent, recipient string, payload map[string]interface{}) error {
	if !s.enabled {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	n := &models.Notification{
		ApplicationID: app.ID,
		Event:         event,
		Recipient:     recipient,
		Payload:       raw,
	}
	if err := s.outbox.Create(ctx, n); err != nil {
		return err
	}

	if err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: string(event)}); err != nil {
		// Row is persisted; startup recovery will pick it up.
		s.logger.Warn("failed to enqueue notification", zap.String("notification_id", n.ID), zap.Error(err))
	}
	return nil
}

// RecoverPending re-enqueues undelivered outbox rows, called once on startup.
func (s *NotificationService) RecoverPending(ctx context.Context) error {
	if !s.enabled {
		return nil
	}
	pending, err := s.outbox.ListPending(ctx, 200)
	if err != nil {
		return err
	}
	for _, n := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: string(n.Event)}); err != nil {
			return err
		}
	}
	if len(pending) > 0 {
		s.logger.Info("recovered pending notifications", zap.Int("count", len(pending)))
	}
	return nil
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	n, err := s.outbox.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load notification %s: %w", job.ID, err)
	}
	if n.Status == models.NotificationSent {
		return nil
	}

	if err := s.sender.Send(ctx, n); err != nil {
		if s.metrics != nil {
			s.metrics.RecordDelivery(false)
		}
		if markErr := s.outbox.MarkFailed(ctx, n.ID, err.Error(), false); markErr != nil {
			s.logger.Error("failed to record delivery failure",
				zap.String("notification_id", n.ID), zap.Error(markErr))
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordDelivery(true)
	}
	return s.outbox.MarkSent(ctx, n.ID)
}

func recipientFor(app *models.Application) string {
	if app.PersonalEmail != nil && *app.PersonalEmail != "" {
		return *app.PersonalEmail
	}
	if app.CollegeEmail != nil && *app.CollegeEmail != "" {
		return *app.CollegeEmail
	}
	return app.ContactNo
}
