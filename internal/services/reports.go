package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"classhub/internal/apperr"
	"classhub/internal/models"
	"classhub/internal/rbac"
	"classhub/internal/store"
)

// ReportService builds the read-only aggregations behind /reports. Every
// number is recomputed from stored rows.
type ReportService struct {
	base
}

func NewReportService(o Options) *ReportService {
	return &ReportService{base: newBase(o)}
}

type Period struct {
	From *time.Time `json:"start_date,omitempty"`
	To   *time.Time `json:"end_date,omitempty"`
}

func (s *ReportService) sessions() *SessionService       { return &SessionService{base: s.base} }
func (s *ReportService) enrollments() *EnrollmentService { return &EnrollmentService{base: s.base} }

type OverviewReport struct {
	UsersByRole map[string]int64                  `json:"users_by_role"`
	Courses     int64                             `json:"courses"`
	Sessions    map[models.SessionStatus]int64    `json:"sessions"`
	Enrollments map[models.EnrollmentStatus]int64 `json:"enrollments"`
	Payments    PaymentStats                      `json:"payments"`
	Attendance  AttendanceStats                   `json:"attendance"`
	Period      Period                            `json:"period"`
}

// Overview counts every entity. The period narrows payments and attendance.
func (s *ReportService) Overview(ctx context.Context, p Period) (OverviewReport, error) {
	r := OverviewReport{UsersByRole: map[string]int64{}, Period: p}
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return OverviewReport{}, apperr.Server(err)
	}
	for _, role := range roles {
		_, n, err := s.store.ListUsers(ctx, store.UserFilter{RoleID: role.ID, Page: countPage})
		if err != nil {
			return OverviewReport{}, apperr.Server(err)
		}
		r.UsersByRole[role.Title] = n
	}
	if _, r.Courses, err = s.store.ListCourses(ctx, store.CourseFilter{Page: countPage}); err != nil {
		return OverviewReport{}, apperr.Server(err)
	}
	ss, err := s.sessions().Stats(ctx, 0)
	if err != nil {
		return OverviewReport{}, err
	}
	r.Sessions = ss.ByStatus
	es, err := s.enrollments().Stats(ctx, 0)
	if err != nil {
		return OverviewReport{}, err
	}
	r.Enrollments = es.ByStatus
	payments, _, err := s.store.ListPayments(ctx, store.PaymentFilter{From: p.From, To: p.To})
	if err != nil {
		return OverviewReport{}, apperr.Server(err)
	}
	r.Payments = summarizePayments(payments)
	if _, r.Attendance, err = s.attendanceFor(ctx, store.AttendanceFilter{From: p.From, To: p.To}); err != nil {
		return OverviewReport{}, err
	}
	return r, nil
}

type StudentRow struct {
	UserID         uint                    `json:"user_id"`
	Name           string                  `json:"name"`
	Email          string                  `json:"email"`
	EnrollmentID   uint                    `json:"enrollment_id"`
	Status         models.EnrollmentStatus `json:"status"`
	EnrollmentDate time.Time               `json:"enrollment_date"`
	Grade          *float64                `json:"grade,omitempty"`
}

type CourseReport struct {
	Course      models.Course   `json:"course"`
	Teacher     TeacherSummary  `json:"teacher"`
	Enrollments EnrollmentStats `json:"enrollment_stats"`
	Sessions    SessionStats    `json:"session_stats"`
	Attendance  AttendanceStats `json:"attendance_stats"`
	Payments    PaymentStats    `json:"payment_stats"`
	Students    []StudentRow    `json:"students"`
}

func (s *ReportService) Course(ctx context.Context, courseID uint) (CourseReport, error) {
	c, err := s.courseExists(ctx, courseID)
	if err != nil {
		return CourseReport{}, err
	}
	r := CourseReport{Course: c, Students: []StudentRow{}}
	t, ok, err := s.lookupUser(ctx, c.TeacherID)
	if err != nil {
		return CourseReport{}, err
	}
	if ok {
		r.Teacher = TeacherSummary{ID: t.ID, Name: t.Name, Email: t.Email}
	}
	if r.Enrollments, err = s.enrollments().Stats(ctx, courseID); err != nil {
		return CourseReport{}, err
	}
	if r.Sessions, err = s.sessions().Stats(ctx, courseID); err != nil {
		return CourseReport{}, err
	}
	if _, r.Attendance, err = s.attendanceFor(ctx, store.AttendanceFilter{CourseID: courseID}); err != nil {
		return CourseReport{}, err
	}
	payments, _, err := s.store.ListPayments(ctx, store.PaymentFilter{CourseID: courseID})
	if err != nil {
		return CourseReport{}, apperr.Server(err)
	}
	r.Payments = summarizePayments(payments)

	enrollments, _, err := s.store.ListEnrollments(ctx, store.EnrollmentFilter{CourseID: courseID})
	if err != nil {
		return CourseReport{}, apperr.Server(err)
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].ID < enrollments[j].ID })
	for _, e := range enrollments {
		row := StudentRow{
			UserID:         e.UserID,
			EnrollmentID:   e.ID,
			Status:         e.Status,
			EnrollmentDate: e.EnrollmentDate,
			Grade:          e.Grade,
		}
		u, ok, err := s.lookupUser(ctx, e.UserID)
		if err != nil {
			return CourseReport{}, err
		}
		if ok {
			row.Name, row.Email = u.Name, u.Email
		}
		r.Students = append(r.Students, row)
	}
	return r, nil
}

type StudentEnrollmentRow struct {
	EnrollmentID      uint                    `json:"enrollment_id"`
	CourseID          uint                    `json:"course_id"`
	CourseTitle       string                  `json:"course_title"`
	Status            models.EnrollmentStatus `json:"status"`
	EnrollmentDate    time.Time               `json:"enrollment_date"`
	Grade             *float64                `json:"grade,omitempty"`
	CertificateIssued bool                    `json:"certificate_issued"`
}

type StudentReport struct {
	User         models.User            `json:"user"`
	Enrollments  []StudentEnrollmentRow `json:"enrollments"`
	Attendance   AttendanceStats        `json:"attendance_stats"`
	Payments     []models.Payment       `json:"payments"`
	PaymentStats PaymentStats           `json:"payment_stats"`
}

func (s *ReportService) Student(ctx context.Context, userID uint) (StudentReport, error) {
	u, err := s.userExists(ctx, userID)
	if err != nil {
		return StudentReport{}, err
	}
	r := StudentReport{User: u, Enrollments: []StudentEnrollmentRow{}}
	enrollments, _, err := s.store.ListEnrollments(ctx, store.EnrollmentFilter{UserID: userID})
	if err != nil {
		return StudentReport{}, apperr.Server(err)
	}
	titles := newTitleCache(s.store)
	for _, e := range enrollments {
		r.Enrollments = append(r.Enrollments, StudentEnrollmentRow{
			EnrollmentID:      e.ID,
			CourseID:          e.CourseID,
			CourseTitle:       titles.get(ctx, e.CourseID),
			Status:            e.Status,
			EnrollmentDate:    e.EnrollmentDate,
			Grade:             e.Grade,
			CertificateIssued: e.CertificateIssued,
		})
	}
	if _, r.Attendance, err = s.attendanceFor(ctx, store.AttendanceFilter{UserID: userID}); err != nil {
		return StudentReport{}, err
	}
	if r.Payments, _, err = s.store.ListPayments(ctx, store.PaymentFilter{UserID: userID}); err != nil {
		return StudentReport{}, apperr.Server(err)
	}
	r.PaymentStats = summarizePayments(r.Payments)
	return r, nil
}

type MethodTotal struct {
	Status        models.PaymentStatus `json:"status"`
	PaymentMethod string               `json:"payment_method"`
	Count         int64                `json:"count"`
	TotalAmount   float64              `json:"total_amount"`
	TotalDiscount float64              `json:"total_discount"`
	TotalTax      float64              `json:"total_tax"`
}

type CourseTotal struct {
	CourseID    uint    `json:"course_id"`
	CourseTitle string  `json:"course_title"`
	Count       int64   `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

type MonthTotal struct {
	Month       string  `json:"month"`
	Count       int64   `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

type FinancialSummary struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalDiscount float64 `json:"total_discount"`
	TotalTax      float64 `json:"total_tax"`
	NetRevenue    float64 `json:"net_revenue"`
}

type FinancialReport struct {
	ByStatusMethod []MethodTotal    `json:"payment_stats"`
	ByCourse       []CourseTotal    `json:"course_stats"`
	Monthly        []MonthTotal     `json:"monthly_stats"`
	Summary        FinancialSummary `json:"summary"`
	Period         Period           `json:"period"`
	Payments       []models.Payment `json:"-"`
}

// Financial groups payments by status and method, by course and by month.
// The summary only counts paid payments.
func (s *ReportService) Financial(ctx context.Context, courseID uint, p Period) (FinancialReport, error) {
	payments, _, err := s.store.ListPayments(ctx, store.PaymentFilter{CourseID: courseID, From: p.From, To: p.To})
	if err != nil {
		return FinancialReport{}, apperr.Server(err)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	r := FinancialReport{Period: p, Payments: payments}

	type methodKey struct {
		status models.PaymentStatus
		method string
	}
	methods := map[methodKey]*MethodTotal{}
	courses := map[uint]*CourseTotal{}
	months := map[string]*MonthTotal{}
	titles := newTitleCache(s.store)
	for _, pay := range payments {
		k := methodKey{pay.Status, pay.PaymentMethod}
		m, ok := methods[k]
		if !ok {
			m = &MethodTotal{Status: pay.Status, PaymentMethod: pay.PaymentMethod}
			methods[k] = m
		}
		m.Count++
		m.TotalAmount = round2(m.TotalAmount + pay.TotalAmount)
		m.TotalDiscount = round2(m.TotalDiscount + pay.DiscountAmount)
		m.TotalTax = round2(m.TotalTax + pay.TaxAmount)

		c, ok := courses[pay.CourseID]
		if !ok {
			c = &CourseTotal{CourseID: pay.CourseID, CourseTitle: titles.get(ctx, pay.CourseID)}
			courses[pay.CourseID] = c
		}
		c.Count++
		c.TotalAmount = round2(c.TotalAmount + pay.TotalAmount)

		key := pay.CreatedAt.Format("2006-01")
		mo, ok := months[key]
		if !ok {
			mo = &MonthTotal{Month: key}
			months[key] = mo
		}
		mo.Count++
		mo.TotalAmount = round2(mo.TotalAmount + pay.TotalAmount)

		if pay.Status == models.PaymentPaid {
			r.Summary.TotalRevenue += pay.TotalAmount
			r.Summary.TotalDiscount += pay.DiscountAmount
			r.Summary.TotalTax += pay.TaxAmount
		}
	}
	r.Summary.TotalRevenue = round2(r.Summary.TotalRevenue)
	r.Summary.TotalDiscount = round2(r.Summary.TotalDiscount)
	r.Summary.TotalTax = round2(r.Summary.TotalTax)
	r.Summary.NetRevenue = round2(r.Summary.TotalRevenue - r.Summary.TotalDiscount)

	r.ByStatusMethod = make([]MethodTotal, 0, len(methods))
	for _, m := range methods {
		r.ByStatusMethod = append(r.ByStatusMethod, *m)
	}
	sort.Slice(r.ByStatusMethod, func(i, j int) bool {
		a, b := r.ByStatusMethod[i], r.ByStatusMethod[j]
		if a.Status != b.Status {
			return a.Status < b.Status
		}
		return a.PaymentMethod < b.PaymentMethod
	})
	r.ByCourse = make([]CourseTotal, 0, len(courses))
	for _, c := range courses {
		r.ByCourse = append(r.ByCourse, *c)
	}
	sort.Slice(r.ByCourse, func(i, j int) bool { return r.ByCourse[i].CourseID < r.ByCourse[j].CourseID })
	r.Monthly = make([]MonthTotal, 0, len(months))
	for _, mo := range months {
		r.Monthly = append(r.Monthly, *mo)
	}
	sort.Slice(r.Monthly, func(i, j int) bool { return r.Monthly[i].Month < r.Monthly[j].Month })
	return r, nil
}

type CourseAttendance struct {
	CourseID    uint   `json:"course_id"`
	CourseTitle string `json:"course_title"`
	Present     int    `json:"present"`
	Absent      int    `json:"absent"`
}

type AttendanceOverview struct {
	Records  []models.Attendance `json:"attendance"`
	Stats    AttendanceStats     `json:"stats"`
	ByCourse []CourseAttendance  `json:"course_stats"`
	Period   Period              `json:"period"`
}

func (s *ReportService) Attendance(ctx context.Context, f store.AttendanceFilter) (AttendanceOverview, error) {
	records, st, err := s.attendanceFor(ctx, f)
	if err != nil {
		return AttendanceOverview{}, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	r := AttendanceOverview{Records: records, Stats: st, Period: Period{From: f.From, To: f.To}}

	courseOf := map[uint]uint{}
	byCourse := map[uint]*CourseAttendance{}
	titles := newTitleCache(s.store)
	for _, a := range records {
		cid, ok := courseOf[a.EnrollmentID]
		if !ok {
			e, err := s.store.GetEnrollment(ctx, a.EnrollmentID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return AttendanceOverview{}, apperr.Server(err)
			}
			cid = e.CourseID
			courseOf[a.EnrollmentID] = cid
		}
		c, ok := byCourse[cid]
		if !ok {
			c = &CourseAttendance{CourseID: cid, CourseTitle: titles.get(ctx, cid)}
			byCourse[cid] = c
		}
		if a.Present {
			c.Present++
		} else {
			c.Absent++
		}
	}
	r.ByCourse = make([]CourseAttendance, 0, len(byCourse))
	for _, c := range byCourse {
		r.ByCourse = append(r.ByCourse, *c)
	}
	sort.Slice(r.ByCourse, func(i, j int) bool { return r.ByCourse[i].CourseID < r.ByCourse[j].CourseID })
	return r, nil
}

type TeacherCourseStats struct {
	CourseID          uint    `json:"course_id"`
	CourseTitle       string  `json:"course_title"`
	SessionCount      int     `json:"session_count"`
	EnrollmentCount   int     `json:"enrollment_count"`
	CompletedSessions int     `json:"completed_sessions"`
	AverageGrade      float64 `json:"average_grade"`
}

type TeacherSummaryStats struct {
	TotalCourses      int     `json:"total_courses"`
	TotalSessions     int     `json:"total_sessions"`
	TotalEnrollments  int     `json:"total_enrollments"`
	CompletedSessions int     `json:"completed_sessions"`
	CompletionRate    float64 `json:"completion_rate"`
}

type TeacherReport struct {
	Teacher TeacherSummary       `json:"teacher"`
	Courses []TeacherCourseStats `json:"course_stats"`
	Summary TeacherSummaryStats  `json:"summary"`
}

func (s *ReportService) TeacherPerformance(ctx context.Context, teacherID uint) (TeacherReport, error) {
	u, err := s.store.GetUser(ctx, teacherID)
	if err != nil {
		return TeacherReport{}, storeErr(err, apperr.MsgTeacherNotFound, "")
	}
	role, err := s.store.GetRole(ctx, u.RoleID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return TeacherReport{}, apperr.Server(err)
	}
	if role.Title != rbac.RoleTeacher {
		return TeacherReport{}, apperr.NotFound(apperr.MsgTeacherNotFound)
	}
	courses, _, err := s.store.ListCourses(ctx, store.CourseFilter{TeacherID: teacherID})
	if err != nil {
		return TeacherReport{}, apperr.Server(err)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	r := TeacherReport{
		Teacher: TeacherSummary{ID: u.ID, Name: u.Name, Email: u.Email},
		Courses: make([]TeacherCourseStats, 0, len(courses)),
	}
	for _, c := range courses {
		sessions, _, err := s.store.ListSessions(ctx, store.SessionFilter{CourseID: c.ID})
		if err != nil {
			return TeacherReport{}, apperr.Server(err)
		}
		enrollments, _, err := s.store.ListEnrollments(ctx, store.EnrollmentFilter{CourseID: c.ID})
		if err != nil {
			return TeacherReport{}, apperr.Server(err)
		}
		cs := TeacherCourseStats{
			CourseID:        c.ID,
			CourseTitle:     c.Title,
			SessionCount:    len(sessions),
			EnrollmentCount: len(enrollments),
		}
		for _, sess := range sessions {
			if sess.Status == models.SessionCompleted {
				cs.CompletedSessions++
			}
		}
		var sum float64
		var graded int
		for _, e := range enrollments {
			if e.Grade != nil {
				sum += *e.Grade
				graded++
			}
		}
		if graded > 0 {
			cs.AverageGrade = round2(sum / float64(graded))
		}
		r.Courses = append(r.Courses, cs)
		r.Summary.TotalSessions += cs.SessionCount
		r.Summary.TotalEnrollments += cs.EnrollmentCount
		r.Summary.CompletedSessions += cs.CompletedSessions
	}
	r.Summary.TotalCourses = len(courses)
	if r.Summary.TotalSessions > 0 {
		r.Summary.CompletionRate = round2(float64(r.Summary.CompletedSessions) / float64(r.Summary.TotalSessions) * 100)
	}
	return r, nil
}

// titleCache resolves course titles once per report.
type titleCache struct {
	courses store.Courses
	titles  map[uint]string
}

func newTitleCache(c store.Courses) *titleCache {
	return &titleCache{courses: c, titles: map[uint]string{}}
}

func (t *titleCache) get(ctx context.Context, id uint) string {
	if title, ok := t.titles[id]; ok {
		return title
	}
	c, err := t.courses.GetCourse(ctx, id)
	if err != nil {
		return ""
	}
	t.titles[id] = c.Title
	return c.Title
}
