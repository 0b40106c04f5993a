// Package events publishes domain events after a mutation has been stored.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"classhub/internal/models"
	"classhub/internal/store"
)

const (
	RolePermissionsAssigned = "rbac.permissions_assigned"
	UserRegistered          = "user.registered"
	CourseCreated           = "course.created"
	SessionCreated          = "session.created"
	SessionStatusChanged    = "session.status_changed"
	EnrollmentCreated       = "enrollment.created"
	EnrollmentStatusChanged = "enrollment.status_changed"
	AttendanceRecorded      = "attendance.recorded"
	PaymentCreated          = "payment.created"
	PaymentStatusChanged    = "payment.status_changed"
)

type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	ActorID    uint           `json:"actor_id,omitempty"`
	Subject    string         `json:"subject"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func New(typ string, actorID uint, subject string, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		ActorID:    actorID,
		Subject:    subject,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AuditPublisher persists every event as an audit log row.
type AuditPublisher struct {
	logs store.AuditLogs
}

func NewAuditPublisher(logs store.AuditLogs) *AuditPublisher {
	return &AuditPublisher{logs: logs}
}

func (a *AuditPublisher) Publish(ctx context.Context, ev Event) error {
	row := models.AuditLog{
		Action:    ev.Type,
		Subject:   ev.Subject,
		Metadata:  models.NewJSONB(ev.Data),
		CreatedAt: ev.OccurredAt,
	}
	if ev.ActorID != 0 {
		actor := ev.ActorID
		row.UserID = &actor
	}
	return a.logs.CreateAuditLog(ctx, &row)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
