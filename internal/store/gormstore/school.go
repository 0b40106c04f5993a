package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"classhub/internal/models"
	"classhub/internal/store"
)

func (s *Store) CreateCourse(ctx context.Context, c *models.Course) error {
	return translate("create course", s.db.WithContext(ctx).Create(c).Error)
}

func (s *Store) GetCourse(ctx context.Context, id uint) (models.Course, error) {
	return getByID[models.Course](ctx, s.db, id, "get course")
}

func (s *Store) ListCourses(ctx context.Context, f store.CourseFilter) ([]models.Course, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Course{})
	if f.TeacherID != 0 {
		q = q.Where("teacher_id = ?", f.TeacherID)
	}
	if f.Search != "" {
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like(f.Search), like(f.Search))
	}
	return list[models.Course](q, f.Page, "id desc", "list courses")
}

func (s *Store) UpdateCourse(ctx context.Context, c *models.Course) error {
	return save(ctx, s.db, c, c.ID, "update course")
}

func (s *Store) DeleteCourse(ctx context.Context, id uint) error {
	return deleteByID(ctx, s.db, &models.Course{}, id, "delete course")
}

func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	return translate("create session", s.db.WithContext(ctx).Create(sess).Error)
}

func (s *Store) GetSession(ctx context.Context, id uint) (models.Session, error) {
	return getByID[models.Session](ctx, s.db, id, "get session")
}

func (s *Store) ListSessions(ctx context.Context, f store.SessionFilter) ([]models.Session, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Session{})
	if f.CourseID != 0 {
		q = q.Where("course_id = ?", f.CourseID)
	}
	if f.ExcludeID != 0 {
		q = q.Where("id <> ?", f.ExcludeID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date <= ?", *f.To)
	}
	return list[models.Session](q, f.Page, "date asc, id asc", "list sessions")
}

func (s *Store) UpdateSession(ctx context.Context, sess *models.Session) error {
	return save(ctx, s.db, sess, sess.ID, "update session")
}

func (s *Store) DeleteSession(ctx context.Context, id uint) error {
	return deleteByID(ctx, s.db, &models.Session{}, id, "delete session")
}

func (s *Store) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	return translate("create enrollment", s.db.WithContext(ctx).Create(e).Error)
}

func (s *Store) GetEnrollment(ctx context.Context, id uint) (models.Enrollment, error) {
	return getByID[models.Enrollment](ctx, s.db, id, "get enrollment")
}

func (s *Store) ListEnrollments(ctx context.Context, f store.EnrollmentFilter) ([]models.Enrollment, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Enrollment{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.CourseID != 0 {
		q = q.Where("course_id = ?", f.CourseID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	return list[models.Enrollment](q, f.Page, "id desc", "list enrollments")
}

func (s *Store) UpdateEnrollment(ctx context.Context, e *models.Enrollment) error {
	return save(ctx, s.db, e, e.ID, "update enrollment")
}

func (s *Store) DeleteEnrollment(ctx context.Context, id uint) error {
	return deleteByID(ctx, s.db, &models.Enrollment{}, id, "delete enrollment")
}

func (s *Store) CreateAttendance(ctx context.Context, a *models.Attendance) error {
	return translate("create attendance", s.db.WithContext(ctx).Create(a).Error)
}

func (s *Store) GetAttendance(ctx context.Context, id uint) (models.Attendance, error) {
	return getByID[models.Attendance](ctx, s.db, id, "get attendance")
}

func (s *Store) ListAttendance(ctx context.Context, f store.AttendanceFilter) ([]models.Attendance, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Attendance{})
	if f.EnrollmentID != 0 {
		q = q.Where("attendances.enrollment_id = ?", f.EnrollmentID)
	}
	if f.SessionID != 0 {
		q = q.Where("attendances.session_id = ?", f.SessionID)
	}
	if f.UserID != 0 || f.CourseID != 0 {
		q = q.Joins("JOIN enrollments e ON e.id = attendances.enrollment_id")
		if f.UserID != 0 {
			q = q.Where("e.user_id = ?", f.UserID)
		}
		if f.CourseID != 0 {
			q = q.Where("e.course_id = ?", f.CourseID)
		}
	}
	if f.Present != nil {
		q = q.Where("attendances.present = ?", *f.Present)
	}
	q = createdBetween(q, "attendances.created_at", f.From, f.To)
	return list[models.Attendance](q, f.Page, "attendances.id desc", "list attendance")
}

func (s *Store) UpdateAttendance(ctx context.Context, a *models.Attendance) error {
	return save(ctx, s.db, a, a.ID, "update attendance")
}

func (s *Store) DeleteAttendance(ctx context.Context, id uint) error {
	return deleteByID(ctx, s.db, &models.Attendance{}, id, "delete attendance")
}

func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	return translate("create payment", s.db.WithContext(ctx).Create(p).Error)
}

func (s *Store) GetPayment(ctx context.Context, id uint) (models.Payment, error) {
	return getByID[models.Payment](ctx, s.db, id, "get payment")
}

func (s *Store) ListPayments(ctx context.Context, f store.PaymentFilter) ([]models.Payment, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Payment{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.CourseID != 0 {
		q = q.Where("course_id = ?", f.CourseID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentMethod != "" {
		q = q.Where("payment_method = ?", f.PaymentMethod)
	}
	q = createdBetween(q, "created_at", f.From, f.To)
	return list[models.Payment](q, f.Page, "id desc", "list payments")
}

func (s *Store) UpdatePayment(ctx context.Context, p *models.Payment) error {
	return save(ctx, s.db, p, p.ID, "update payment")
}

func (s *Store) DeletePayment(ctx context.Context, id uint) error {
	return deleteByID(ctx, s.db, &models.Payment{}, id, "delete payment")
}

func createdBetween(q *gorm.DB, column string, from, to *time.Time) *gorm.DB {
	if from != nil {
		q = q.Where(column+" >= ?", *from)
	}
	if to != nil {
		q = q.Where(column+" <= ?", *to)
	}
	return q
}
