package services

import (
	"context"
	"strings"

	"classhub/internal/apperr"
	"classhub/internal/events"
	"classhub/internal/models"
	"classhub/internal/rbac"
	"classhub/internal/store"
	"classhub/internal/validation"
)

type CourseService struct {
	base
}

func NewCourseService(o Options) *CourseService {
	return &CourseService{base: newBase(o)}
}

type CourseInput struct {
	Title       string `json:"title" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"max=1000"`
	TeacherID   uint   `json:"teacher_id" validate:"required"`
	MaxStudents *int   `json:"max_students" validate:"omitempty,min=1"`
}

type CourseUpdate struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	TeacherID   *uint   `json:"teacher_id" validate:"omitempty,gt=0"`
	MaxStudents *int    `json:"max_students" validate:"omitempty,min=1"`
}

type TeacherSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CourseDetail struct {
	models.Course
	Teacher           TeacherSummary `json:"teacher"`
	SessionCount      int64          `json:"session_count"`
	EnrollmentCount   int64          `json:"enrollment_count"`
	ActiveEnrollments int64          `json:"active_enrollments"`
}

// checkTeacher requires the user to exist and to hold the teacher role.
func (s *CourseService) checkTeacher(ctx context.Context, id uint) (models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return models.User{}, storeErr(err, apperr.MsgTeacherNotFound, "")
	}
	role, err := s.store.GetRole(ctx, u.RoleID)
	if err != nil {
		return models.User{}, storeErr(err, apperr.MsgRoleMissing, "")
	}
	if role.Title != rbac.RoleTeacher {
		return models.User{}, apperr.InvalidInput(apperr.MsgNotTeacher)
	}
	return u, nil
}

func (s *CourseService) Create(ctx context.Context, actorID uint, in CourseInput) (models.Course, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return models.Course{}, err
	}
	if _, err := s.checkTeacher(ctx, in.TeacherID); err != nil {
		return models.Course{}, err
	}
	c := models.Course{
		Title:       in.Title,
		Description: in.Description,
		TeacherID:   in.TeacherID,
		MaxStudents: in.MaxStudents,
	}
	if err := s.store.CreateCourse(ctx, &c); err != nil {
		return models.Course{}, apperr.Server(err)
	}
	s.emit(ctx, events.CourseCreated, actorID, subject("course", c.ID), map[string]any{"teacher_id": c.TeacherID})
	return c, nil
}

func (s *CourseService) Get(ctx context.Context, id uint) (CourseDetail, error) {
	c, err := s.courseExists(ctx, id)
	if err != nil {
		return CourseDetail{}, err
	}
	d := CourseDetail{Course: c}
	t, ok, err := s.lookupUser(ctx, c.TeacherID)
	if err != nil {
		return CourseDetail{}, err
	}
	if ok {
		d.Teacher = TeacherSummary{ID: t.ID, Name: t.Name, Email: t.Email}
	}
	if _, d.SessionCount, err = s.store.ListSessions(ctx, store.SessionFilter{CourseID: id, Page: countPage}); err != nil {
		return CourseDetail{}, apperr.Server(err)
	}
	if _, d.EnrollmentCount, err = s.store.ListEnrollments(ctx, store.EnrollmentFilter{CourseID: id, Page: countPage}); err != nil {
		return CourseDetail{}, apperr.Server(err)
	}
	if d.ActiveEnrollments, err = s.activeEnrollments(ctx, id); err != nil {
		return CourseDetail{}, err
	}
	return d, nil
}

// activeEnrollments counts enrollments that hold a seat in the course.
func (b base) activeEnrollments(ctx context.Context, courseID uint) (int64, error) {
	_, n, err := b.store.ListEnrollments(ctx, store.EnrollmentFilter{
		CourseID: courseID,
		Statuses: []models.EnrollmentStatus{models.EnrollmentPending, models.EnrollmentAccepted},
		Page:     countPage,
	})
	if err != nil {
		return 0, apperr.Server(err)
	}
	return n, nil
}

func (s *CourseService) List(ctx context.Context, f store.CourseFilter) ([]models.Course, int64, error) {
	courses, total, err := s.store.ListCourses(ctx, f)
	if err != nil {
		return nil, 0, apperr.Server(err)
	}
	return courses, total, nil
}

func (s *CourseService) Update(ctx context.Context, id uint, in CourseUpdate) (models.Course, error) {
	if err := validation.Struct(in); err != nil {
		return models.Course{}, err
	}
	c, err := s.courseExists(ctx, id)
	if err != nil {
		return models.Course{}, err
	}
	if in.Title != nil {
		c.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.TeacherID != nil && *in.TeacherID != c.TeacherID {
		if _, err := s.checkTeacher(ctx, *in.TeacherID); err != nil {
			return models.Course{}, err
		}
		c.TeacherID = *in.TeacherID
	}
	if in.MaxStudents != nil {
		c.MaxStudents = in.MaxStudents
	}
	if err := s.store.UpdateCourse(ctx, &c); err != nil {
		return models.Course{}, storeErr(err, apperr.MsgCourseNotFound, "")
	}
	return c, nil
}

// Delete refuses courses that still have sessions or enrollments.
func (s *CourseService) Delete(ctx context.Context, id uint) error {
	if _, err := s.courseExists(ctx, id); err != nil {
		return err
	}
	_, sessions, err := s.store.ListSessions(ctx, store.SessionFilter{CourseID: id, Page: countPage})
	if err != nil {
		return apperr.Server(err)
	}
	_, enrollments, err := s.store.ListEnrollments(ctx, store.EnrollmentFilter{CourseID: id, Page: countPage})
	if err != nil {
		return apperr.Server(err)
	}
	if sessions+enrollments > 0 {
		return apperr.Conflict(apperr.MsgCourseHasDependencies)
	}
	return storeErr(s.store.DeleteCourse(ctx, id), apperr.MsgCourseNotFound, "")
}
