package models

import "time"

type SessionStatus string

const (
	SessionScheduled  SessionStatus = "scheduled"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
)

// Terminal statuses cannot move to any other status.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentAccepted  EnrollmentStatus = "accepted"
	EnrollmentRejected  EnrollmentStatus = "rejected"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// Active enrollments count against course capacity.
func (s EnrollmentStatus) Active() bool {
	return s == EnrollmentPending || s == EnrollmentAccepted
}

type RecordingMethod string

const (
	RecordingManual          RecordingMethod = "manual"
	RecordingAutomatic       RecordingMethod = "automatic"
	RecordingQRCode          RecordingMethod = "qr_code"
	RecordingFaceRecognition RecordingMethod = "face_recognition"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
)

var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded, PaymentCancelled}

var SessionStatuses = []SessionStatus{SessionScheduled, SessionInProgress, SessionCompleted, SessionCancelled}

var EnrollmentStatuses = []EnrollmentStatus{EnrollmentPending, EnrollmentAccepted, EnrollmentRejected, EnrollmentCompleted, EnrollmentCancelled}

type Course struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"size:100;not null" json:"title"`
	Description string    `gorm:"size:1000" json:"description"`
	TeacherID   uint      `gorm:"index;not null" json:"teacher_id"`
	MaxStudents *int      `json:"max_students,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Session struct {
	ID          uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	CourseID    uint          `gorm:"index;not null" json:"course_id"`
	Title       string        `gorm:"size:100;not null" json:"title"`
	Description string        `gorm:"size:500" json:"description"`
	Date        time.Time     `gorm:"index;not null" json:"date"`
	Duration    int           `gorm:"not null;default:90" json:"duration"`
	Status      SessionStatus `gorm:"size:20;not null;default:scheduled" json:"status"`
	Location    string        `gorm:"size:100" json:"location"`
	MaxStudents *int          `json:"max_students,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type Enrollment struct {
	ID                   uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID               uint             `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"user_id"`
	CourseID             uint             `gorm:"not null;uniqueIndex:idx_enrollment_user_course;index" json:"course_id"`
	Status               EnrollmentStatus `gorm:"size:20;not null;default:pending" json:"status"`
	EnrollmentDate       time.Time        `gorm:"not null" json:"enrollment_date"`
	CompletionDate       *time.Time       `json:"completion_date,omitempty"`
	Grade                *float64         `json:"grade,omitempty"`
	CertificateIssued    bool             `gorm:"not null;default:false" json:"certificate_issued"`
	CertificateIssueDate *time.Time       `json:"certificate_issue_date,omitempty"`
	Notes                string           `gorm:"size:500" json:"notes"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

type Attendance struct {
	ID                    uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	EnrollmentID          uint            `gorm:"not null;uniqueIndex:idx_attendance_enrollment_session" json:"enrollment_id"`
	SessionID             uint            `gorm:"not null;uniqueIndex:idx_attendance_enrollment_session;index" json:"session_id"`
	Present               bool            `gorm:"not null" json:"present"`
	ArrivalTime           *string         `gorm:"size:8" json:"arrival_time,omitempty"`
	DepartureTime         *string         `gorm:"size:8" json:"departure_time,omitempty"`
	LateMinutes           int             `gorm:"not null;default:0" json:"late_minutes"`
	EarlyDepartureMinutes int             `gorm:"not null;default:0" json:"early_departure_minutes"`
	Notes                 string          `gorm:"size:200" json:"notes"`
	RecordedBy            uint            `gorm:"not null" json:"recorded_by"`
	RecordingMethod       RecordingMethod `gorm:"size:20;not null;default:manual" json:"recording_method"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (Attendance) TableName() string { return "attendances" }

type Payment struct {
	ID             uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint          `gorm:"index;not null" json:"user_id"`
	CourseID       uint          `gorm:"index;not null" json:"course_id"`
	Amount         float64       `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status         PaymentStatus `gorm:"size:20;not null;default:pending" json:"status"`
	PaymentMethod  string        `gorm:"size:20;not null" json:"payment_method"`
	DiscountAmount float64       `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	TaxAmount      float64       `gorm:"type:decimal(12,2);not null;default:0" json:"tax_amount"`
	TotalAmount    float64       `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Currency       string        `gorm:"size:3;not null;default:IRR" json:"currency"`
	TransactionID  *string       `gorm:"size:100;uniqueIndex" json:"transaction_id,omitempty"`
	ReceiptNumber  *string       `gorm:"size:50;uniqueIndex" json:"receipt_number,omitempty"`
	PaymentDate    *time.Time    `json:"payment_date,omitempty"`
	DueDate        *time.Time    `json:"due_date,omitempty"`
	Notes          string        `gorm:"size:500" json:"notes"`
	ProcessedBy    uint          `gorm:"not null" json:"processed_by"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// All is the migration list, in dependency order.
func All() []any {
	return []any{
		&Role{}, &Permission{}, &RolePermission{}, &User{}, &RefreshToken{},
		&Course{}, &Session{}, &Enrollment{}, &Attendance{}, &Payment{}, &AuditLog{},
	}
}
