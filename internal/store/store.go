// Package store declares the persistence ports used by the services.
// gormstore backs them with Postgres and memstore keeps everything in memory.
package store

import (
	"context"
	"errors"
	"time"

	"classhub/internal/models"
)

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

// Page limits a listing. A zero Limit returns every match.
type Page struct {
	Offset int
	Limit  int
}

type UserFilter struct {
	RoleID uint
	Search string
	Page   Page
}

type CourseFilter struct {
	TeacherID uint
	Search    string
	Page      Page
}

type SessionFilter struct {
	CourseID  uint
	Statuses  []models.SessionStatus
	From, To  *time.Time
	ExcludeID uint
	Page      Page
}

type EnrollmentFilter struct {
	UserID   uint
	CourseID uint
	Statuses []models.EnrollmentStatus
	Page     Page
}

type AttendanceFilter struct {
	EnrollmentID uint
	SessionID    uint
	// UserID and CourseID are resolved through the enrollment.
	UserID   uint
	CourseID uint
	Present  *bool
	From, To *time.Time
	Page     Page
}

type PaymentFilter struct {
	UserID        uint
	CourseID      uint
	Status        models.PaymentStatus
	PaymentMethod string
	From, To      *time.Time
	Page          Page
}

type AuditFilter struct {
	UserID uint
	Page   Page
}

type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uint) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id uint) error
}

type RBAC interface {
	CreateRole(ctx context.Context, r *models.Role) error
	GetRole(ctx context.Context, id uint) (models.Role, error)
	GetRoleByTitle(ctx context.Context, title string) (models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	CreatePermission(ctx context.Context, p *models.Permission) error
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	FindPermissions(ctx context.Context, ids []uint) ([]models.Permission, error)
	RolePermissions(ctx context.Context, roleID uint) ([]models.Permission, error)
	// ReplaceRolePermissions swaps the whole set atomically.
	ReplaceRolePermissions(ctx context.Context, roleID uint, permissionIDs []uint) error
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeUserRefreshTokens(ctx context.Context, userID uint) error
}

type Courses interface {
	CreateCourse(ctx context.Context, c *models.Course) error
	GetCourse(ctx context.Context, id uint) (models.Course, error)
	ListCourses(ctx context.Context, f CourseFilter) ([]models.Course, int64, error)
	UpdateCourse(ctx context.Context, c *models.Course) error
	DeleteCourse(ctx context.Context, id uint) error
}

type Sessions interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id uint) (models.Session, error)
	ListSessions(ctx context.Context, f SessionFilter) ([]models.Session, int64, error)
	UpdateSession(ctx context.Context, s *models.Session) error
	DeleteSession(ctx context.Context, id uint) error
}

type Enrollments interface {
	CreateEnrollment(ctx context.Context, e *models.Enrollment) error
	GetEnrollment(ctx context.Context, id uint) (models.Enrollment, error)
	ListEnrollments(ctx context.Context, f EnrollmentFilter) ([]models.Enrollment, int64, error)
	UpdateEnrollment(ctx context.Context, e *models.Enrollment) error
	DeleteEnrollment(ctx context.Context, id uint) error
}

type Attendances interface {
	CreateAttendance(ctx context.Context, a *models.Attendance) error
	GetAttendance(ctx context.Context, id uint) (models.Attendance, error)
	ListAttendance(ctx context.Context, f AttendanceFilter) ([]models.Attendance, int64, error)
	UpdateAttendance(ctx context.Context, a *models.Attendance) error
	DeleteAttendance(ctx context.Context, id uint) error
}

type Payments interface {
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, id uint) (models.Payment, error)
	ListPayments(ctx context.Context, f PaymentFilter) ([]models.Payment, int64, error)
	UpdatePayment(ctx context.Context, p *models.Payment) error
	DeletePayment(ctx context.Context, id uint) error
}

type AuditLogs interface {
	CreateAuditLog(ctx context.Context, l *models.AuditLog) error
	ListAuditLogs(ctx context.Context, f AuditFilter) ([]models.AuditLog, int64, error)
}

type Store interface {
	Users
	RBAC
	RefreshTokens
	Courses
	Sessions
	Enrollments
	Attendances
	Payments
	AuditLogs
	Ping(ctx context.Context) error
}
