package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jecrcuniv/nodues-api/internal/models"
	"github.com/jecrcuniv/nodues-api/pkg/jobs"
)

type outboxStoreStub struct {
	mu   sync.Mutex
	rows map[string]*models.Notification
}

func newOutboxStoreStub() *outboxStoreStub {
	return &outboxStoreStub{rows: make(map[string]*models.Notification)}
}

func (s *outboxStoreStub) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = fmt.Sprintf("n-%d", len(s.rows)+1)
	}
	if n.Status == "" {
		n.Status = models.NotificationPending
	}
	clone := *n
	s.rows[n.ID] = &clone
	return nil
}

func (s *outboxStoreStub) GetByID(_ context.Context, id string) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.rows[id]; ok {
		clone := *n
		return &clone, nil
	}
	return nil, fmt.Errorf("notification %s not found", id)
}

func (s *outboxStoreStub) ListPending(_ context.Context, _ int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []models.Notification
	for _, n := range s.rows {
		if n.Status == models.NotificationPending {
			pending = append(pending, *n)
		}
	}
	return pending, nil
}

func (s *outboxStoreStub) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.rows[id]; ok {
		n.Status = models.NotificationSent
		n.Attempts++
	}
	return nil
}

func (s *outboxStoreStub) MarkFailed(_ context.Context, id string, reason string, terminal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.rows[id]; ok {
		n.Attempts++
		n.LastError = &reason
		if terminal {
			n.Status = models.NotificationFailed
		}
	}
	return nil
}

func (s *outboxStoreStub) status(id string) models.NotificationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.rows[id]; ok {
		return n.Status
	}
	return ""
}

type senderStub struct {
	mu       sync.Mutex
	failures int
	sent     []string
}

func (s *senderStub) Send(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return fmt.Errorf("transport unavailable")
	}
	s.sent = append(s.sent, n.ID)
	return nil
}

func (s *senderStub) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func sampleApp() *models.Application {
	email := "asha@example.com"
	return &models.Application{
		ID:             "app-1",
		RegistrationNo: "21BCON1234",
		StudentName:    "Asha Verma",
		ContactNo:      "9876543210",
		PersonalEmail:  &email,
	}
}

func TestNotificationDeliveredThroughOutbox(t *testing.T) {
	outbox := newOutboxStoreStub()
	sender := &senderStub{}
	svc := NewNotificationService(outbox, sender, nil, nil,
		jobs.QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 10 * time.Millisecond}, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	require.NoError(t, svc.ApplicationRejected(ctx, sampleApp(), "library", "late fine"))

	waitFor(t, func() bool { return sender.sentCount() == 1 })
	waitFor(t, func() bool { return outbox.status("n-1") == models.NotificationSent })
}

func TestNotificationRetriesTransientFailure(t *testing.T) {
	outbox := newOutboxStoreStub()
	sender := &senderStub{failures: 1}
	svc := NewNotificationService(outbox, sender, nil, nil,
		jobs.QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 10 * time.Millisecond}, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	require.NoError(t, svc.CertificateReady(ctx, sampleApp(), "token"))

	waitFor(t, func() bool { return sender.sentCount() == 1 })
	waitFor(t, func() bool { return outbox.status("n-1") == models.NotificationSent })
}

func TestNotificationRecoverPending(t *testing.T) {
	outbox := newOutboxStoreStub()
	require.NoError(t, outbox.Create(context.Background(), &models.Notification{
		ApplicationID: "app-1",
		Event:         models.EventApplicationRejected,
		Recipient:     "asha@example.com",
	}))

	sender := &senderStub{}
	svc := NewNotificationService(outbox, sender, nil, nil,
		jobs.QueueConfig{Workers: 1, RetryDelay: 10 * time.Millisecond}, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	require.NoError(t, svc.RecoverPending(ctx))
	waitFor(t, func() bool { return sender.sentCount() == 1 })
}

func TestNotificationDisabledIsNoop(t *testing.T) {
	outbox := newOutboxStoreStub()
	svc := NewNotificationService(outbox, &senderStub{}, nil, nil, jobs.QueueConfig{}, false)

	require.NoError(t, svc.NewApplication(context.Background(), sampleApp()))
	require.Empty(t, outbox.rows)
}

func TestNotificationReminderAddressesDepartment(t *testing.T) {
	outbox := newOutboxStoreStub()
	svc := NewNotificationService(outbox, &senderStub{}, nil, nil, jobs.QueueConfig{}, true)

	// The queue is left stopped so the rows stay pending for inspection.
	ctx := context.Background()

	require.NoError(t, svc.DepartmentReminder(ctx, sampleApp(), "library", "library@jecrcu.edu.in"))
	require.Equal(t, models.EventReminder, outbox.rows["n-1"].Event)
	require.Equal(t, "library@jecrcu.edu.in", outbox.rows["n-1"].Recipient)

	// No mailbox on record falls back to the student contact.
	require.NoError(t, svc.DepartmentReminder(ctx, sampleApp(), "hostel", ""))
	require.Equal(t, "asha@example.com", outbox.rows["n-2"].Recipient)
}
