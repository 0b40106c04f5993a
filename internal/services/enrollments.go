package services

import (
	"context"
	"time"

	"classhub/internal/apperr"
	"classhub/internal/events"
	"classhub/internal/models"
	"classhub/internal/store"
	"classhub/internal/validation"
)

type EnrollmentService struct {
	base
}

func NewEnrollmentService(o Options) *EnrollmentService {
	return &EnrollmentService{base: newBase(o)}
}

// EnrollmentInput enrolls the actor unless UserID names someone else, which
// requires Actor.Manage.
type EnrollmentInput struct {
	CourseID uint   `json:"course_id" validate:"required"`
	UserID   uint   `json:"user_id"`
	Notes    string `json:"notes" validate:"max=500"`
}

type EnrollmentUpdate struct {
	Status            *models.EnrollmentStatus `json:"status" validate:"omitempty,oneof=pending accepted rejected completed cancelled"`
	Grade             *float64                 `json:"grade" validate:"omitempty,gte=0,lte=100"`
	Notes             *string                  `json:"notes" validate:"omitempty,max=500"`
	CompletionDate    *time.Time               `json:"completion_date"`
	CertificateIssued *bool                    `json:"certificate_issued"`
}

type EnrollmentStatusInput struct {
	Status models.EnrollmentStatus `json:"status" validate:"required,oneof=pending accepted rejected completed cancelled"`
}

type PaymentSummary struct {
	ID        uint                 `json:"id"`
	Amount    float64              `json:"amount"`
	Total     float64              `json:"total_amount"`
	Status    models.PaymentStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
}

type EnrollmentDetail struct {
	models.Enrollment
	Attendance AttendanceStats  `json:"attendance_stats"`
	Payments   []PaymentSummary `json:"payments"`
}

type EnrollmentStats struct {
	ByStatus map[models.EnrollmentStatus]int64 `json:"by_status"`
	Total    int64                             `json:"total_enrollments"`
	Active   int64                             `json:"active_enrollments"`
}

func (s *EnrollmentService) Create(ctx context.Context, actor Actor, in EnrollmentInput) (models.Enrollment, error) {
	if err := validation.Struct(in); err != nil {
		return models.Enrollment{}, err
	}
	userID := actor.UserID
	if in.UserID != 0 && in.UserID != actor.UserID {
		if !actor.Manage {
			return models.Enrollment{}, apperr.Forbidden(apperr.MsgAccessDenied)
		}
		userID = in.UserID
	}
	if _, err := s.userExists(ctx, userID); err != nil {
		return models.Enrollment{}, err
	}
	course, err := s.courseExists(ctx, in.CourseID)
	if err != nil {
		return models.Enrollment{}, err
	}
	_, n, err := s.store.ListEnrollments(ctx, store.EnrollmentFilter{UserID: userID, CourseID: in.CourseID, Page: countPage})
	if err != nil {
		return models.Enrollment{}, apperr.Server(err)
	}
	if n > 0 {
		return models.Enrollment{}, apperr.Conflict(apperr.MsgEnrollmentExists)
	}
	if course.MaxStudents != nil {
		active, err := s.activeEnrollments(ctx, course.ID)
		if err != nil {
			return models.Enrollment{}, err
		}
		if active >= int64(*course.MaxStudents) {
			return models.Enrollment{}, apperr.Conflict(apperr.MsgCourseFull)
		}
	}
	e := models.Enrollment{
		UserID:         userID,
		CourseID:       in.CourseID,
		Status:         models.EnrollmentPending,
		EnrollmentDate: s.now(),
		Notes:          in.Notes,
	}
	// The unique index on (user_id, course_id) settles concurrent creates.
	if err := s.store.CreateEnrollment(ctx, &e); err != nil {
		return models.Enrollment{}, storeErr(err, "", apperr.MsgEnrollmentExists)
	}
	s.emit(ctx, events.EnrollmentCreated, actor.UserID, subject("enrollment", e.ID), map[string]any{
		"user_id":   e.UserID,
		"course_id": e.CourseID,
	})
	return e, nil
}

func (s *EnrollmentService) enrollmentExists(ctx context.Context, id uint) (models.Enrollment, error) {
	e, err := s.store.GetEnrollment(ctx, id)
	return e, storeErr(err, apperr.MsgEnrollmentNotFound, "")
}

func (s *EnrollmentService) Get(ctx context.Context, id uint) (EnrollmentDetail, error) {
	e, err := s.enrollmentExists(ctx, id)
	if err != nil {
		return EnrollmentDetail{}, err
	}
	_, st, err := s.attendanceFor(ctx, store.AttendanceFilter{EnrollmentID: id})
	if err != nil {
		return EnrollmentDetail{}, err
	}
	payments, _, err := s.store.ListPayments(ctx, store.PaymentFilter{UserID: e.UserID, CourseID: e.CourseID})
	if err != nil {
		return EnrollmentDetail{}, apperr.Server(err)
	}
	d := EnrollmentDetail{Enrollment: e, Attendance: st, Payments: make([]PaymentSummary, 0, len(payments))}
	for _, p := range payments {
		d.Payments = append(d.Payments, PaymentSummary{
			ID:        p.ID,
			Amount:    p.Amount,
			Total:     p.TotalAmount,
			Status:    p.Status,
			CreatedAt: p.CreatedAt,
		})
	}
	return d, nil
}

func (s *EnrollmentService) List(ctx context.Context, f store.EnrollmentFilter) ([]models.Enrollment, int64, error) {
	items, total, err := s.store.ListEnrollments(ctx, f)
	if err != nil {
		return nil, 0, apperr.Server(err)
	}
	return items, total, nil
}

// Update applies partial changes. Issuing a certificate stamps its date and
// completing an enrollment stamps the completion date when none is given.
func (s *EnrollmentService) Update(ctx context.Context, actorID, id uint, in EnrollmentUpdate) (models.Enrollment, error) {
	if err := validation.Struct(in); err != nil {
		return models.Enrollment{}, err
	}
	e, err := s.enrollmentExists(ctx, id)
	if err != nil {
		return models.Enrollment{}, err
	}
	now := s.now()
	prev := e.Status
	if in.Status != nil {
		e.Status = *in.Status
	}
	if in.Grade != nil {
		g := *in.Grade
		e.Grade = &g
	}
	if in.Notes != nil {
		e.Notes = *in.Notes
	}
	if in.CompletionDate != nil {
		d := *in.CompletionDate
		e.CompletionDate = &d
	}
	if e.Status == models.EnrollmentCompleted && e.CompletionDate == nil {
		e.CompletionDate = &now
	}
	if in.CertificateIssued != nil {
		// Re-issuing an issued certificate keeps its first issue date.
		switch {
		case *in.CertificateIssued && !e.CertificateIssued:
			e.CertificateIssued = true
			e.CertificateIssueDate = &now
		case !*in.CertificateIssued:
			e.CertificateIssued = false
			e.CertificateIssueDate = nil
		}
	}
	if err := s.store.UpdateEnrollment(ctx, &e); err != nil {
		return models.Enrollment{}, storeErr(err, apperr.MsgEnrollmentNotFound, "")
	}
	if prev != e.Status {
		s.emitStatus(ctx, actorID, e, prev)
	}
	return e, nil
}

func (s *EnrollmentService) ChangeStatus(ctx context.Context, actorID, id uint, in EnrollmentStatusInput) (models.Enrollment, error) {
	status := in.Status
	return s.Update(ctx, actorID, id, EnrollmentUpdate{Status: &status})
}

func (s *EnrollmentService) emitStatus(ctx context.Context, actorID uint, e models.Enrollment, prev models.EnrollmentStatus) {
	s.emit(ctx, events.EnrollmentStatusChanged, actorID, subject("enrollment", e.ID), map[string]any{
		"user_id":   e.UserID,
		"course_id": e.CourseID,
		"from":      prev,
		"to":        e.Status,
	})
}

// Delete refuses enrollments with recorded attendance.
func (s *EnrollmentService) Delete(ctx context.Context, id uint) error {
	if _, err := s.enrollmentExists(ctx, id); err != nil {
		return err
	}
	_, n, err := s.store.ListAttendance(ctx, store.AttendanceFilter{EnrollmentID: id, Page: countPage})
	if err != nil {
		return apperr.Server(err)
	}
	if n > 0 {
		return apperr.Conflict(apperr.MsgEnrollmentHasAttendance)
	}
	return storeErr(s.store.DeleteEnrollment(ctx, id), apperr.MsgEnrollmentNotFound, "")
}

func (s *EnrollmentService) Stats(ctx context.Context, courseID uint) (EnrollmentStats, error) {
	st := EnrollmentStats{ByStatus: make(map[models.EnrollmentStatus]int64, len(models.EnrollmentStatuses))}
	for _, status := range models.EnrollmentStatuses {
		_, n, err := s.store.ListEnrollments(ctx, store.EnrollmentFilter{
			CourseID: courseID,
			Statuses: []models.EnrollmentStatus{status},
			Page:     countPage,
		})
		if err != nil {
			return EnrollmentStats{}, apperr.Server(err)
		}
		st.ByStatus[status] = n
		st.Total += n
		if status.Active() {
			st.Active += n
		}
	}
	return st, nil
}
