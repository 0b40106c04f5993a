package services

import (
	"context"
	"strings"
	"time"

	"classhub/internal/apperr"
	"classhub/internal/events"
	"classhub/internal/models"
	"classhub/internal/store"
	"classhub/internal/validation"
)

const defaultSessionDuration = 90

type SessionService struct {
	base
}

func NewSessionService(o Options) *SessionService {
	return &SessionService{base: newBase(o)}
}

type SessionInput struct {
	CourseID    uint      `json:"course_id" validate:"required"`
	Title       string    `json:"title" validate:"required,min=3,max=100"`
	Description string    `json:"description" validate:"max=500"`
	Date        time.Time `json:"date" validate:"required"`
	Duration    int       `json:"duration" validate:"omitempty,min=15,max=480"`
	Location    string    `json:"location" validate:"max=100"`
	MaxStudents *int      `json:"max_students" validate:"omitempty,min=1"`
}

type SessionUpdate struct {
	Title       *string               `json:"title" validate:"omitempty,min=3,max=100"`
	Description *string               `json:"description" validate:"omitempty,max=500"`
	Date        *time.Time            `json:"date"`
	Duration    *int                  `json:"duration" validate:"omitempty,min=15,max=480"`
	Location    *string               `json:"location" validate:"omitempty,max=100"`
	MaxStudents *int                  `json:"max_students" validate:"omitempty,min=1"`
	Status      *models.SessionStatus `json:"status" validate:"omitempty,oneof=scheduled in_progress completed cancelled"`
}

type SessionStatusInput struct {
	Status models.SessionStatus `json:"status" validate:"required,oneof=scheduled in_progress completed cancelled"`
}

type SessionDetail struct {
	models.Session
	Attendance AttendanceStats `json:"attendance_stats"`
}

type SessionStats struct {
	ByStatus map[models.SessionStatus]int64 `json:"by_status"`
	Total    int64                          `json:"total_sessions"`
	Upcoming int64                          `json:"upcoming_sessions"`
}

// checkStatusChange locks completed and cancelled sessions.
func checkStatusChange(from, to models.SessionStatus) error {
	if from == to || !from.Terminal() {
		return nil
	}
	if from == models.SessionCompleted {
		return apperr.Conflict(apperr.MsgSessionCompletedLocked)
	}
	return apperr.Conflict(apperr.MsgSessionCancelledLocked)
}

// checkWindow rejects a session whose date lies within duration minutes of
// another scheduled or in progress session of the same course.
func (s *SessionService) checkWindow(ctx context.Context, courseID, excludeID uint, date time.Time, duration int) error {
	span := time.Duration(duration) * time.Minute
	from, to := date.Add(-span), date.Add(span)
	_, n, err := s.store.ListSessions(ctx, store.SessionFilter{
		CourseID:  courseID,
		Statuses:  []models.SessionStatus{models.SessionScheduled, models.SessionInProgress},
		From:      &from,
		To:        &to,
		ExcludeID: excludeID,
		Page:      countPage,
	})
	if err != nil {
		return apperr.Server(err)
	}
	if n > 0 {
		return apperr.Conflict(apperr.MsgSessionOverlap)
	}
	return nil
}

func (s *SessionService) Create(ctx context.Context, actorID uint, in SessionInput) (models.Session, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return models.Session{}, err
	}
	if !in.Date.After(s.now()) {
		return models.Session{}, apperr.InvalidInput(apperr.MsgSessionPastDate)
	}
	if in.Duration == 0 {
		in.Duration = defaultSessionDuration
	}
	if _, err := s.courseExists(ctx, in.CourseID); err != nil {
		return models.Session{}, err
	}
	if err := s.checkWindow(ctx, in.CourseID, 0, in.Date, in.Duration); err != nil {
		return models.Session{}, err
	}
	sess := models.Session{
		CourseID:    in.CourseID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
		Duration:    in.Duration,
		Status:      models.SessionScheduled,
		Location:    strings.TrimSpace(in.Location),
		MaxStudents: in.MaxStudents,
	}
	if err := s.store.CreateSession(ctx, &sess); err != nil {
		return models.Session{}, apperr.Server(err)
	}
	s.emit(ctx, events.SessionCreated, actorID, subject("session", sess.ID), map[string]any{
		"course_id": sess.CourseID,
		"date":      sess.Date,
	})
	return sess, nil
}

func (s *SessionService) sessionExists(ctx context.Context, id uint) (models.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	return sess, storeErr(err, apperr.MsgSessionNotFound, "")
}

func (s *SessionService) Get(ctx context.Context, id uint) (SessionDetail, error) {
	sess, err := s.sessionExists(ctx, id)
	if err != nil {
		return SessionDetail{}, err
	}
	_, st, err := s.attendanceFor(ctx, store.AttendanceFilter{SessionID: id})
	if err != nil {
		return SessionDetail{}, err
	}
	return SessionDetail{Session: sess, Attendance: st}, nil
}

func (s *SessionService) List(ctx context.Context, f store.SessionFilter) ([]models.Session, int64, error) {
	sessions, total, err := s.store.ListSessions(ctx, f)
	if err != nil {
		return nil, 0, apperr.Server(err)
	}
	return sessions, total, nil
}

func (s *SessionService) Update(ctx context.Context, actorID, id uint, in SessionUpdate) (models.Session, error) {
	if err := validation.Struct(in); err != nil {
		return models.Session{}, err
	}
	if in.Date != nil && !in.Date.After(s.now()) {
		return models.Session{}, apperr.InvalidInput(apperr.MsgSessionPastDate)
	}
	sess, err := s.sessionExists(ctx, id)
	if err != nil {
		return models.Session{}, err
	}
	prev := sess.Status
	if in.Status != nil {
		if err := checkStatusChange(sess.Status, *in.Status); err != nil {
			return models.Session{}, err
		}
		sess.Status = *in.Status
	}
	if in.Title != nil {
		sess.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		sess.Description = strings.TrimSpace(*in.Description)
	}
	if in.Location != nil {
		sess.Location = strings.TrimSpace(*in.Location)
	}
	if in.MaxStudents != nil {
		sess.MaxStudents = in.MaxStudents
	}
	reschedule := false
	if in.Date != nil && !in.Date.Equal(sess.Date) {
		sess.Date = *in.Date
		reschedule = true
	}
	if in.Duration != nil && *in.Duration != sess.Duration {
		sess.Duration = *in.Duration
		reschedule = true
	}
	if reschedule && !sess.Status.Terminal() {
		if err := s.checkWindow(ctx, sess.CourseID, sess.ID, sess.Date, sess.Duration); err != nil {
			return models.Session{}, err
		}
	}
	if err := s.store.UpdateSession(ctx, &sess); err != nil {
		return models.Session{}, storeErr(err, apperr.MsgSessionNotFound, "")
	}
	if prev != sess.Status {
		s.emitStatus(ctx, actorID, sess, prev)
	}
	return sess, nil
}

func (s *SessionService) ChangeStatus(ctx context.Context, actorID, id uint, in SessionStatusInput) (models.Session, error) {
	if err := validation.Struct(in); err != nil {
		return models.Session{}, err
	}
	sess, err := s.sessionExists(ctx, id)
	if err != nil {
		return models.Session{}, err
	}
	if err := checkStatusChange(sess.Status, in.Status); err != nil {
		return models.Session{}, err
	}
	if sess.Status == in.Status {
		return sess, nil
	}
	prev := sess.Status
	sess.Status = in.Status
	if err := s.store.UpdateSession(ctx, &sess); err != nil {
		return models.Session{}, storeErr(err, apperr.MsgSessionNotFound, "")
	}
	s.emitStatus(ctx, actorID, sess, prev)
	return sess, nil
}

func (s *SessionService) emitStatus(ctx context.Context, actorID uint, sess models.Session, prev models.SessionStatus) {
	s.emit(ctx, events.SessionStatusChanged, actorID, subject("session", sess.ID), map[string]any{
		"course_id": sess.CourseID,
		"from":      prev,
		"to":        sess.Status,
	})
}

// Delete refuses sessions with recorded attendance.
func (s *SessionService) Delete(ctx context.Context, id uint) error {
	if _, err := s.sessionExists(ctx, id); err != nil {
		return err
	}
	_, n, err := s.store.ListAttendance(ctx, store.AttendanceFilter{SessionID: id, Page: countPage})
	if err != nil {
		return apperr.Server(err)
	}
	if n > 0 {
		return apperr.Conflict(apperr.MsgSessionHasAttendance)
	}
	return storeErr(s.store.DeleteSession(ctx, id), apperr.MsgSessionNotFound, "")
}

// Stats counts sessions per status, optionally for one course.
func (s *SessionService) Stats(ctx context.Context, courseID uint) (SessionStats, error) {
	st := SessionStats{ByStatus: make(map[models.SessionStatus]int64, len(models.SessionStatuses))}
	for _, status := range models.SessionStatuses {
		_, n, err := s.store.ListSessions(ctx, store.SessionFilter{
			CourseID: courseID,
			Statuses: []models.SessionStatus{status},
			Page:     countPage,
		})
		if err != nil {
			return SessionStats{}, apperr.Server(err)
		}
		st.ByStatus[status] = n
		st.Total += n
	}
	now := s.now()
	_, upcoming, err := s.store.ListSessions(ctx, store.SessionFilter{
		CourseID: courseID,
		Statuses: []models.SessionStatus{models.SessionScheduled},
		From:     &now,
		Page:     countPage,
	})
	if err != nil {
		return SessionStats{}, apperr.Server(err)
	}
	st.Upcoming = upcoming
	return st, nil
}
