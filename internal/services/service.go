// Package services holds the business rules of classhub: lifecycle guards,
// conflict checks and the aggregations behind the stats endpoints.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"classhub/internal/apperr"
	"classhub/internal/events"
	"classhub/internal/models"
	"classhub/internal/store"
)

// Options carries the dependencies shared by every service.
type Options struct {
	Store     store.Store
	Publisher events.Publisher
	Logger    *zap.SugaredLogger
	// Now defaults to time.Now; tests pin it.
	Now     func() time.Time
	TaxRate float64
}

// Actor is the authenticated caller of a mutation. Manage is set when the
// caller may act on records owned by other users.
type Actor struct {
	UserID uint
	Manage bool
}

type base struct {
	store store.Store
	pub   events.Publisher
	lg    *zap.SugaredLogger
	now   func() time.Time
}

func newBase(o Options) base {
	b := base{store: o.Store, pub: o.Publisher, lg: o.Logger, now: o.Now}
	if b.pub == nil {
		b.pub = events.Nop{}
	}
	if b.lg == nil {
		b.lg = zap.NewNop().Sugar()
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// emit publishes after the mutation is stored; failures are only logged.
func (b base) emit(ctx context.Context, typ string, actorID uint, subject string, data map[string]any) {
	ev := events.New(typ, actorID, subject, data)
	if err := b.pub.Publish(ctx, ev); err != nil {
		b.lg.Warnw("event publish failed", "type", typ, "subject", subject, "error", err)
	}
}

// storeErr maps store sentinels onto apperr kinds.
func storeErr(err error, notFound, duplicate string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound) && notFound != "":
		return apperr.NotFound(notFound)
	case errors.Is(err, store.ErrDuplicate) && duplicate != "":
		return apperr.Conflict(duplicate)
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Conflict(apperr.MsgDuplicate)
	default:
		return apperr.Server(err)
	}
}

func subject(kind string, id uint) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// countPage is used where only the listing total matters.
var countPage = store.Page{Limit: 1}

func (b base) courseExists(ctx context.Context, id uint) (models.Course, error) {
	c, err := b.store.GetCourse(ctx, id)
	return c, storeErr(err, apperr.MsgCourseNotFound, "")
}

func (b base) userExists(ctx context.Context, id uint) (models.User, error) {
	u, err := b.store.GetUser(ctx, id)
	return u, storeErr(err, apperr.MsgUserNotFound, "")
}

// lookupUser reports a missing user as ok=false; other store errors are returned.
func (b base) lookupUser(ctx context.Context, id uint) (models.User, bool, error) {
	u, err := b.store.GetUser(ctx, id)
	switch {
	case err == nil:
		return u, true, nil
	case errors.Is(err, store.ErrNotFound):
		return models.User{}, false, nil
	default:
		return models.User{}, false, apperr.Server(err)
	}
}

// AttendanceStats is recomputed from records on every read.
type AttendanceStats struct {
	Total          int     `json:"total"`
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Late           int     `json:"late_count"`
	EarlyDeparture int     `json:"early_departure_count"`
	Rate           float64 `json:"attendance_rate"`
}

func summarizeAttendance(records []models.Attendance) AttendanceStats {
	var st AttendanceStats
	for _, a := range records {
		st.Total++
		if a.Present {
			st.Present++
		} else {
			st.Absent++
		}
		if a.LateMinutes > 0 {
			st.Late++
		}
		if a.EarlyDepartureMinutes > 0 {
			st.EarlyDeparture++
		}
	}
	if st.Total > 0 {
		st.Rate = round2(float64(st.Present) / float64(st.Total) * 100)
	}
	return st
}

func (b base) attendanceFor(ctx context.Context, f store.AttendanceFilter) ([]models.Attendance, AttendanceStats, error) {
	f.Page = store.Page{}
	records, _, err := b.store.ListAttendance(ctx, f)
	if err != nil {
		return nil, AttendanceStats{}, apperr.Server(err)
	}
	return records, summarizeAttendance(records), nil
}
