package services

import (
	"context"
	"errors"
	"strings"

	"classhub/internal/apperr"
	"classhub/internal/events"
	"classhub/internal/models"
	"classhub/internal/store"
	"classhub/internal/validation"
)

type AttendanceService struct {
	base
}

func NewAttendanceService(o Options) *AttendanceService {
	return &AttendanceService{base: newBase(o)}
}

// AttendanceEntry is one enrollment's record within a session.
type AttendanceEntry struct {
	EnrollmentID          uint                   `json:"enrollment_id" validate:"required"`
	Present               *bool                  `json:"present" validate:"required"`
	ArrivalTime           *string                `json:"arrival_time" validate:"omitempty,clock"`
	DepartureTime         *string                `json:"departure_time" validate:"omitempty,clock"`
	LateMinutes           int                    `json:"late_minutes" validate:"gte=0"`
	EarlyDepartureMinutes int                    `json:"early_departure_minutes" validate:"gte=0"`
	Notes                 string                 `json:"notes" validate:"max=200"`
	RecordingMethod       models.RecordingMethod `json:"recording_method" validate:"omitempty,oneof=manual automatic qr_code face_recognition"`
}

// AttendanceInput records a single entry; the entry fields are validated by record.
type AttendanceInput struct {
	SessionID uint `json:"session_id"`
	AttendanceEntry
}

type BulkAttendanceInput struct {
	SessionID uint              `json:"session_id" validate:"required"`
	Entries   []AttendanceEntry `json:"attendance_data" validate:"required,min=1"`
}

type AttendanceUpdate struct {
	Present               *bool   `json:"present"`
	ArrivalTime           *string `json:"arrival_time" validate:"omitempty,clock"`
	DepartureTime         *string `json:"departure_time" validate:"omitempty,clock"`
	LateMinutes           *int    `json:"late_minutes" validate:"omitempty,gte=0"`
	EarlyDepartureMinutes *int    `json:"early_departure_minutes" validate:"omitempty,gte=0"`
	Notes                 *string `json:"notes" validate:"omitempty,max=200"`
}

type BulkItemError struct {
	EnrollmentID uint   `json:"enrollment_id"`
	Error        string `json:"error"`
}

// BulkResult reports a partially applied batch.
type BulkResult struct {
	Created int                 `json:"created"`
	Errors  int                 `json:"errors"`
	Results []models.Attendance `json:"results"`
	Details []BulkItemError     `json:"error_details"`
}

type AttendanceReport struct {
	Records []models.Attendance `json:"attendance"`
	Stats   AttendanceStats     `json:"stats"`
}

func (s *AttendanceService) sessionExists(ctx context.Context, id uint) (models.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	return sess, storeErr(err, apperr.MsgSessionNotFound, "")
}

// record stores a single entry for sess. The unique index on
// (enrollment_id, session_id) keeps records write-once.
func (s *AttendanceService) record(ctx context.Context, actorID uint, sess models.Session, in AttendanceEntry) (models.Attendance, error) {
	if err := validation.Struct(in); err != nil {
		return models.Attendance{}, err
	}
	e, err := s.store.GetEnrollment(ctx, in.EnrollmentID)
	if err != nil {
		return models.Attendance{}, storeErr(err, apperr.MsgEnrollmentNotFound, "")
	}
	if e.CourseID != sess.CourseID {
		return models.Attendance{}, apperr.InvalidInput(apperr.MsgAttendanceMismatch)
	}
	_, n, err := s.store.ListAttendance(ctx, store.AttendanceFilter{EnrollmentID: e.ID, SessionID: sess.ID, Page: countPage})
	if err != nil {
		return models.Attendance{}, apperr.Server(err)
	}
	if n > 0 {
		return models.Attendance{}, apperr.Conflict(apperr.MsgAttendanceExists)
	}
	method := in.RecordingMethod
	if method == "" {
		method = models.RecordingManual
	}
	a := models.Attendance{
		EnrollmentID:          e.ID,
		SessionID:             sess.ID,
		Present:               *in.Present,
		ArrivalTime:           in.ArrivalTime,
		DepartureTime:         in.DepartureTime,
		LateMinutes:           in.LateMinutes,
		EarlyDepartureMinutes: in.EarlyDepartureMinutes,
		Notes:                 strings.TrimSpace(in.Notes),
		RecordedBy:            actorID,
		RecordingMethod:       method,
	}
	if err := s.store.CreateAttendance(ctx, &a); err != nil {
		return models.Attendance{}, storeErr(err, "", apperr.MsgAttendanceExists)
	}
	return a, nil
}

func (s *AttendanceService) Record(ctx context.Context, actorID uint, in AttendanceInput) (models.Attendance, error) {
	if in.SessionID == 0 {
		return models.Attendance{}, apperr.InvalidInput(apperr.MsgIncompleteData)
	}
	sess, err := s.sessionExists(ctx, in.SessionID)
	if err != nil {
		return models.Attendance{}, err
	}
	a, err := s.record(ctx, actorID, sess, in.AttendanceEntry)
	if err != nil {
		return models.Attendance{}, err
	}
	s.emit(ctx, events.AttendanceRecorded, actorID, subject("session", sess.ID), map[string]any{
		"created":        1,
		"enrollment_ids": []uint{a.EnrollmentID},
	})
	return a, nil
}

// RecordBulk applies each entry independently. Failed entries are reported
// in the result and do not stop the rest of the batch.
func (s *AttendanceService) RecordBulk(ctx context.Context, actorID uint, in BulkAttendanceInput) (BulkResult, error) {
	if in.SessionID == 0 || in.Entries == nil {
		return BulkResult{}, apperr.InvalidInput(apperr.MsgIncompleteData)
	}
	if err := validation.Struct(in); err != nil {
		return BulkResult{}, err
	}
	sess, err := s.sessionExists(ctx, in.SessionID)
	if err != nil {
		return BulkResult{}, err
	}
	res := BulkResult{Results: []models.Attendance{}, Details: []BulkItemError{}}
	ids := make([]uint, 0, len(in.Entries))
	for _, entry := range in.Entries {
		a, err := s.record(ctx, actorID, sess, entry)
		if err != nil {
			res.Details = append(res.Details, BulkItemError{EnrollmentID: entry.EnrollmentID, Error: itemMessage(err)})
			if apperr.KindOf(err) == apperr.KindServer {
				s.lg.Errorw("bulk attendance item failed", "session_id", sess.ID, "enrollment_id", entry.EnrollmentID, "error", err)
			}
			continue
		}
		res.Results = append(res.Results, a)
		ids = append(ids, a.EnrollmentID)
	}
	res.Created = len(res.Results)
	res.Errors = len(res.Details)
	if res.Created > 0 {
		s.emit(ctx, events.AttendanceRecorded, actorID, subject("session", sess.ID), map[string]any{
			"created":        res.Created,
			"enrollment_ids": ids,
		})
	}
	return res, nil
}

func itemMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return apperr.MsgUnknown
}

func (s *AttendanceService) attendanceExists(ctx context.Context, id uint) (models.Attendance, error) {
	a, err := s.store.GetAttendance(ctx, id)
	return a, storeErr(err, apperr.MsgAttendanceNotFound, "")
}

func (s *AttendanceService) Get(ctx context.Context, id uint) (models.Attendance, error) {
	return s.attendanceExists(ctx, id)
}

func (s *AttendanceService) List(ctx context.Context, f store.AttendanceFilter) ([]models.Attendance, int64, error) {
	items, total, err := s.store.ListAttendance(ctx, f)
	if err != nil {
		return nil, 0, apperr.Server(err)
	}
	return items, total, nil
}

// Update corrects an existing record; the enrollment and session never change.
func (s *AttendanceService) Update(ctx context.Context, id uint, in AttendanceUpdate) (models.Attendance, error) {
	if err := validation.Struct(in); err != nil {
		return models.Attendance{}, err
	}
	a, err := s.attendanceExists(ctx, id)
	if err != nil {
		return models.Attendance{}, err
	}
	if in.Present != nil {
		a.Present = *in.Present
	}
	if in.ArrivalTime != nil {
		a.ArrivalTime = in.ArrivalTime
	}
	if in.DepartureTime != nil {
		a.DepartureTime = in.DepartureTime
	}
	if in.LateMinutes != nil {
		a.LateMinutes = *in.LateMinutes
	}
	if in.EarlyDepartureMinutes != nil {
		a.EarlyDepartureMinutes = *in.EarlyDepartureMinutes
	}
	if in.Notes != nil {
		a.Notes = strings.TrimSpace(*in.Notes)
	}
	if err := s.store.UpdateAttendance(ctx, &a); err != nil {
		return models.Attendance{}, storeErr(err, apperr.MsgAttendanceNotFound, "")
	}
	return a, nil
}

func (s *AttendanceService) Delete(ctx context.Context, id uint) error {
	return storeErr(s.store.DeleteAttendance(ctx, id), apperr.MsgAttendanceNotFound, "")
}

// Report scans every matching record and recomputes the counters.
func (s *AttendanceService) Report(ctx context.Context, f store.AttendanceFilter) (AttendanceReport, error) {
	records, st, err := s.attendanceFor(ctx, f)
	if err != nil {
		return AttendanceReport{}, err
	}
	return AttendanceReport{Records: records, Stats: st}, nil
}
