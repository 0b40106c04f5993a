package memstore

import (
	"context"
	"slices"
	"sort"

	"classhub/internal/models"
	"classhub/internal/store"
)

// Courses

func (s *Store) CreateCourse(_ context.Context, c *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	c.ID = s.next("courses")
	stamp(&c.CreatedAt, &c.UpdatedAt)
	s.courses[c.ID] = *c
	return nil
}

func (s *Store) GetCourse(_ context.Context, id uint) (models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return models.Course{}, s.FailWith
	}
	c, ok := s.courses[id]
	if !ok {
		return models.Course{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCourses(_ context.Context, f store.CourseFilter) ([]models.Course, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, 0, s.FailWith
	}
	out := []models.Course{}
	for _, c := range s.courses {
		if f.TeacherID != 0 && c.TeacherID != f.TeacherID {
			continue
		}
		if f.Search != "" && !contains(c.Title, f.Search) && !contains(c.Description, f.Search) {
			continue
		}
		out = append(out, c)
	}
	byIDDesc(out, func(c models.Course) uint { return c.ID })
	items, total := paginate(out, f.Page)
	return items, total, nil
}

func (s *Store) UpdateCourse(_ context.Context, c *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.courses[c.ID]; !ok {
		return store.ErrNotFound
	}
	stamp(nil, &c.UpdatedAt)
	s.courses[c.ID] = *c
	return nil
}

func (s *Store) DeleteCourse(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.courses[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.courses, id)
	return nil
}

// Sessions

func (s *Store) CreateSession(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	sess.ID = s.next("sessions")
	stamp(&sess.CreatedAt, &sess.UpdatedAt)
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *Store) GetSession(_ context.Context, id uint) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return models.Session{}, s.FailWith
	}
	sess, ok := s.sessions[id]
	if !ok {
		return models.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (s *Store) ListSessions(_ context.Context, f store.SessionFilter) ([]models.Session, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, 0, s.FailWith
	}
	out := []models.Session{}
	for _, sess := range s.sessions {
		if f.CourseID != 0 && sess.CourseID != f.CourseID {
			continue
		}
		if f.ExcludeID != 0 && sess.ID == f.ExcludeID {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, sess.Status) {
			continue
		}
		if !inRange(sess.Date, f.From, f.To) {
			continue
		}
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	items, total := paginate(out, f.Page)
	return items, total, nil
}

func (s *Store) UpdateSession(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.sessions[sess.ID]; !ok {
		return store.ErrNotFound
	}
	stamp(nil, &sess.UpdatedAt)
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *Store) DeleteSession(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.sessions[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Enrollments

func (s *Store) CreateEnrollment(_ context.Context, e *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	for _, existing := range s.enrollments {
		if existing.UserID == e.UserID && existing.CourseID == e.CourseID {
			return store.ErrDuplicate
		}
	}
	e.ID = s.next("enrollments")
	stamp(&e.CreatedAt, &e.UpdatedAt)
	s.enrollments[e.ID] = *e
	return nil
}

func (s *Store) GetEnrollment(_ context.Context, id uint) (models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return models.Enrollment{}, s.FailWith
	}
	e, ok := s.enrollments[id]
	if !ok {
		return models.Enrollment{}, store.ErrNotFound
	}
	return e, nil
}

func (s *Store) ListEnrollments(_ context.Context, f store.EnrollmentFilter) ([]models.Enrollment, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, 0, s.FailWith
	}
	out := []models.Enrollment{}
	for _, e := range s.enrollments {
		if f.UserID != 0 && e.UserID != f.UserID {
			continue
		}
		if f.CourseID != 0 && e.CourseID != f.CourseID {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, e.Status) {
			continue
		}
		out = append(out, e)
	}
	byIDDesc(out, func(e models.Enrollment) uint { return e.ID })
	items, total := paginate(out, f.Page)
	return items, total, nil
}

func (s *Store) UpdateEnrollment(_ context.Context, e *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.enrollments[e.ID]; !ok {
		return store.ErrNotFound
	}
	stamp(nil, &e.UpdatedAt)
	s.enrollments[e.ID] = *e
	return nil
}

func (s *Store) DeleteEnrollment(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.enrollments[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.enrollments, id)
	return nil
}

// Attendance

func (s *Store) CreateAttendance(_ context.Context, a *models.Attendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	for _, existing := range s.attendance {
		if existing.EnrollmentID == a.EnrollmentID && existing.SessionID == a.SessionID {
			return store.ErrDuplicate
		}
	}
	a.ID = s.next("attendances")
	stamp(&a.CreatedAt, &a.UpdatedAt)
	s.attendance[a.ID] = *a
	return nil
}

func (s *Store) GetAttendance(_ context.Context, id uint) (models.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return models.Attendance{}, s.FailWith
	}
	a, ok := s.attendance[id]
	if !ok {
		return models.Attendance{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAttendance(_ context.Context, f store.AttendanceFilter) ([]models.Attendance, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, 0, s.FailWith
	}
	out := []models.Attendance{}
	for _, a := range s.attendance {
		if f.EnrollmentID != 0 && a.EnrollmentID != f.EnrollmentID {
			continue
		}
		if f.SessionID != 0 && a.SessionID != f.SessionID {
			continue
		}
		if f.UserID != 0 || f.CourseID != 0 {
			e, ok := s.enrollments[a.EnrollmentID]
			if !ok {
				continue
			}
			if f.UserID != 0 && e.UserID != f.UserID {
				continue
			}
			if f.CourseID != 0 && e.CourseID != f.CourseID {
				continue
			}
		}
		if f.Present != nil && a.Present != *f.Present {
			continue
		}
		if !inRange(a.CreatedAt, f.From, f.To) {
			continue
		}
		out = append(out, a)
	}
	byIDDesc(out, func(a models.Attendance) uint { return a.ID })
	items, total := paginate(out, f.Page)
	return items, total, nil
}

func (s *Store) UpdateAttendance(_ context.Context, a *models.Attendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.attendance[a.ID]; !ok {
		return store.ErrNotFound
	}
	stamp(nil, &a.UpdatedAt)
	s.attendance[a.ID] = *a
	return nil
}

func (s *Store) DeleteAttendance(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.attendance[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.attendance, id)
	return nil
}

// Payments

func samePtr(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func (s *Store) paymentClash(p *models.Payment) bool {
	for id, existing := range s.payments {
		if id == p.ID {
			continue
		}
		if samePtr(existing.TransactionID, p.TransactionID) || samePtr(existing.ReceiptNumber, p.ReceiptNumber) {
			return true
		}
	}
	return false
}

func (s *Store) CreatePayment(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	p.ID = 0
	if s.paymentClash(p) {
		return store.ErrDuplicate
	}
	p.ID = s.next("payments")
	stamp(&p.CreatedAt, &p.UpdatedAt)
	s.payments[p.ID] = *p
	return nil
}

func (s *Store) GetPayment(_ context.Context, id uint) (models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return models.Payment{}, s.FailWith
	}
	p, ok := s.payments[id]
	if !ok {
		return models.Payment{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPayments(_ context.Context, f store.PaymentFilter) ([]models.Payment, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailWith != nil {
		return nil, 0, s.FailWith
	}
	out := []models.Payment{}
	for _, p := range s.payments {
		if f.UserID != 0 && p.UserID != f.UserID {
			continue
		}
		if f.CourseID != 0 && p.CourseID != f.CourseID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.PaymentMethod != "" && p.PaymentMethod != f.PaymentMethod {
			continue
		}
		if !inRange(p.CreatedAt, f.From, f.To) {
			continue
		}
		out = append(out, p)
	}
	byIDDesc(out, func(p models.Payment) uint { return p.ID })
	items, total := paginate(out, f.Page)
	return items, total, nil
}

func (s *Store) UpdatePayment(_ context.Context, p *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.payments[p.ID]; !ok {
		return store.ErrNotFound
	}
	if s.paymentClash(p) {
		return store.ErrDuplicate
	}
	stamp(nil, &p.UpdatedAt)
	s.payments[p.ID] = *p
	return nil
}

func (s *Store) DeletePayment(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.payments[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.payments, id)
	return nil
}
