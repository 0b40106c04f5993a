package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"classhub/internal/apperr"
	"classhub/internal/events"
	"classhub/internal/models"
	"classhub/internal/store"
	"classhub/internal/validation"
)

// DefaultTaxRate applies when Options.TaxRate is zero.
const DefaultTaxRate = 0.09

type PaymentService struct {
	base
	taxRate float64
}

func NewPaymentService(o Options) *PaymentService {
	rate := o.TaxRate
	if rate == 0 {
		rate = DefaultTaxRate
	}
	return &PaymentService{base: newBase(o), taxRate: rate}
}

// PaymentInput bills the actor unless UserID names someone else, which
// requires Actor.Manage.
type PaymentInput struct {
	CourseID       uint       `json:"course_id" validate:"required"`
	UserID         uint       `json:"user_id"`
	Amount         float64    `json:"amount" validate:"required,gt=0"`
	DiscountAmount float64    `json:"discount_amount" validate:"gte=0"`
	PaymentMethod  string     `json:"payment_method" validate:"required,oneof=cash card bank_transfer online check"`
	Currency       string     `json:"currency" validate:"omitempty,oneof=IRR USD EUR"`
	TransactionID  string     `json:"transaction_id" validate:"max=100"`
	ReceiptNumber  string     `json:"receipt_number" validate:"max=50"`
	DueDate        *time.Time `json:"due_date"`
	Notes          string     `json:"notes" validate:"max=500"`
}

// PaymentUpdate never touches the amounts; the stored total is final.
type PaymentUpdate struct {
	Status        *models.PaymentStatus `json:"status" validate:"omitempty,oneof=pending paid failed refunded cancelled"`
	PaymentDate   *time.Time            `json:"payment_date"`
	TransactionID *string               `json:"transaction_id" validate:"omitempty,max=100"`
	ReceiptNumber *string               `json:"receipt_number" validate:"omitempty,max=50"`
	DueDate       *time.Time            `json:"due_date"`
	Notes         *string               `json:"notes" validate:"omitempty,max=500"`
}

type PaymentStatusInput struct {
	Status models.PaymentStatus `json:"status" validate:"required,oneof=pending paid failed refunded cancelled"`
}

type StatusTotal struct {
	Count  int64   `json:"count"`
	Amount float64 `json:"total_amount"`
}

type PaymentStats struct {
	ByStatus      map[models.PaymentStatus]StatusTotal `json:"by_status"`
	TotalPayments int64                                `json:"total_payments"`
	TotalAmount   float64                              `json:"total_amount"`
	PaidAmount    float64                              `json:"paid_amount"`
	PendingAmount float64                              `json:"pending_amount"`
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

// Create computes tax and total once; they are stored and never recomputed.
func (s *PaymentService) Create(ctx context.Context, actor Actor, in PaymentInput) (models.Payment, error) {
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if err := validation.Struct(in); err != nil {
		return models.Payment{}, err
	}
	userID := actor.UserID
	if in.UserID != 0 && in.UserID != actor.UserID {
		if !actor.Manage {
			return models.Payment{}, apperr.Forbidden(apperr.MsgAccessDenied)
		}
		userID = in.UserID
	}
	if _, err := s.courseExists(ctx, in.CourseID); err != nil {
		return models.Payment{}, err
	}
	if _, err := s.userExists(ctx, userID); err != nil {
		return models.Payment{}, err
	}
	amount := round2(in.Amount)
	discount := round2(in.DiscountAmount)
	tax := round2(amount * s.taxRate)
	total := round2(amount + tax - discount)
	if total < 0 {
		return models.Payment{}, apperr.InvalidInput(apperr.MsgNegativeTotal)
	}
	currency := in.Currency
	if currency == "" {
		currency = "IRR"
	}
	p := models.Payment{
		UserID:         userID,
		CourseID:       in.CourseID,
		Amount:         amount,
		Status:         models.PaymentPending,
		PaymentMethod:  in.PaymentMethod,
		DiscountAmount: discount,
		TaxAmount:      tax,
		TotalAmount:    total,
		Currency:       currency,
		TransactionID:  optional(in.TransactionID),
		ReceiptNumber:  optional(in.ReceiptNumber),
		DueDate:        in.DueDate,
		Notes:          strings.TrimSpace(in.Notes),
		ProcessedBy:    actor.UserID,
	}
	if err := s.store.CreatePayment(ctx, &p); err != nil {
		return models.Payment{}, storeErr(err, "", "")
	}
	s.emit(ctx, events.PaymentCreated, actor.UserID, subject("payment", p.ID), map[string]any{
		"user_id":      p.UserID,
		"course_id":    p.CourseID,
		"total_amount": p.TotalAmount,
	})
	return p, nil
}

func (s *PaymentService) paymentExists(ctx context.Context, id uint) (models.Payment, error) {
	p, err := s.store.GetPayment(ctx, id)
	return p, storeErr(err, apperr.MsgPaymentNotFound, "")
}

func (s *PaymentService) Get(ctx context.Context, id uint) (models.Payment, error) {
	return s.paymentExists(ctx, id)
}

func (s *PaymentService) List(ctx context.Context, f store.PaymentFilter) ([]models.Payment, int64, error) {
	items, total, err := s.store.ListPayments(ctx, f)
	if err != nil {
		return nil, 0, apperr.Server(err)
	}
	return items, total, nil
}

// checkPaymentStatus locks paid payments, including requests that repeat paid.
func checkPaymentStatus(from models.PaymentStatus) error {
	if from == models.PaymentPaid {
		return apperr.Conflict(apperr.MsgPaymentPaidLocked)
	}
	return nil
}

func (s *PaymentService) Update(ctx context.Context, actorID, id uint, in PaymentUpdate) (models.Payment, error) {
	if err := validation.Struct(in); err != nil {
		return models.Payment{}, err
	}
	p, err := s.paymentExists(ctx, id)
	if err != nil {
		return models.Payment{}, err
	}
	prev := p.Status
	if in.Status != nil {
		if err := checkPaymentStatus(p.Status); err != nil {
			return models.Payment{}, err
		}
		p.Status = *in.Status
	}
	if in.PaymentDate != nil {
		d := *in.PaymentDate
		p.PaymentDate = &d
	} else if p.Status == models.PaymentPaid && prev != models.PaymentPaid {
		now := s.now()
		p.PaymentDate = &now
	}
	if in.TransactionID != nil {
		p.TransactionID = optional(*in.TransactionID)
	}
	if in.ReceiptNumber != nil {
		p.ReceiptNumber = optional(*in.ReceiptNumber)
	}
	if in.DueDate != nil {
		d := *in.DueDate
		p.DueDate = &d
	}
	if in.Notes != nil {
		p.Notes = strings.TrimSpace(*in.Notes)
	}
	if err := s.store.UpdatePayment(ctx, &p); err != nil {
		return models.Payment{}, storeErr(err, apperr.MsgPaymentNotFound, "")
	}
	if prev != p.Status {
		s.emitStatus(ctx, actorID, p, prev)
	}
	return p, nil
}

// ChangeStatus stamps the payment date when a payment becomes paid.
func (s *PaymentService) ChangeStatus(ctx context.Context, actorID, id uint, in PaymentStatusInput) (models.Payment, error) {
	if err := validation.Struct(in); err != nil {
		return models.Payment{}, err
	}
	p, err := s.paymentExists(ctx, id)
	if err != nil {
		return models.Payment{}, err
	}
	if err := checkPaymentStatus(p.Status); err != nil {
		return models.Payment{}, err
	}
	if p.Status == in.Status {
		return p, nil
	}
	prev := p.Status
	p.Status = in.Status
	if p.Status == models.PaymentPaid {
		now := s.now()
		p.PaymentDate = &now
	}
	if err := s.store.UpdatePayment(ctx, &p); err != nil {
		return models.Payment{}, storeErr(err, apperr.MsgPaymentNotFound, "")
	}
	s.emitStatus(ctx, actorID, p, prev)
	return p, nil
}

func (s *PaymentService) emitStatus(ctx context.Context, actorID uint, p models.Payment, prev models.PaymentStatus) {
	s.emit(ctx, events.PaymentStatusChanged, actorID, subject("payment", p.ID), map[string]any{
		"user_id":   p.UserID,
		"course_id": p.CourseID,
		"from":      prev,
		"to":        p.Status,
	})
}

func (s *PaymentService) Delete(ctx context.Context, id uint) error {
	p, err := s.paymentExists(ctx, id)
	if err != nil {
		return err
	}
	if p.Status == models.PaymentPaid {
		return apperr.Conflict(apperr.MsgPaymentPaidUndeleted)
	}
	return storeErr(s.store.DeletePayment(ctx, id), apperr.MsgPaymentNotFound, "")
}

// Stats aggregates stored totals per status over the filter.
func (s *PaymentService) Stats(ctx context.Context, f store.PaymentFilter) (PaymentStats, error) {
	f.Page = store.Page{}
	f.Status = ""
	payments, _, err := s.store.ListPayments(ctx, f)
	if err != nil {
		return PaymentStats{}, apperr.Server(err)
	}
	return summarizePayments(payments), nil
}

func summarizePayments(payments []models.Payment) PaymentStats {
	st := PaymentStats{ByStatus: make(map[models.PaymentStatus]StatusTotal, len(models.PaymentStatuses))}
	for _, status := range models.PaymentStatuses {
		st.ByStatus[status] = StatusTotal{}
	}
	for _, p := range payments {
		bucket := st.ByStatus[p.Status]
		bucket.Count++
		bucket.Amount = round2(bucket.Amount + p.TotalAmount)
		st.ByStatus[p.Status] = bucket
		st.TotalPayments++
		st.TotalAmount += p.TotalAmount
		if p.Status == models.PaymentPaid {
			st.PaidAmount += p.TotalAmount
		}
	}
	st.TotalAmount = round2(st.TotalAmount)
	st.PaidAmount = round2(st.PaidAmount)
	st.PendingAmount = round2(st.TotalAmount - st.PaidAmount)
	return st
}

// Report returns every matching payment, oldest first.
func (s *PaymentService) Report(ctx context.Context, f store.PaymentFilter) ([]models.Payment, error) {
	f.Page = store.Page{}
	payments, _, err := s.store.ListPayments(ctx, f)
	if err != nil {
		return nil, apperr.Server(err)
	}
	slices.Reverse(payments)
	return payments, nil
}
