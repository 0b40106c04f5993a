package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classhub/internal/apperr"
	"classhub/internal/events"
	"classhub/internal/models"
	"classhub/internal/store"
)

func (f *fixture) pay(t *testing.T, in PaymentInput) models.Payment {
	t.Helper()
	if in.CourseID == 0 {
		in.CourseID = f.course.ID
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = "card"
	}
	p, err := NewPaymentService(f.opts).Create(f.ctx, Actor{UserID: f.student.ID}, in)
	require.NoError(t, err)
	return p
}

func TestPaymentCreateComputesTotals(t *testing.T) {
	f := newFixture(t)

	p := f.pay(t, PaymentInput{Amount: 1000, DiscountAmount: 50})
	assert.Equal(t, 90.0, p.TaxAmount)
	assert.Equal(t, 1040.0, p.TotalAmount)
	assert.Equal(t, p.Amount+p.TaxAmount-p.DiscountAmount, p.TotalAmount)
	assert.Equal(t, models.PaymentPending, p.Status)
	assert.Equal(t, "IRR", p.Currency)
	assert.Equal(t, f.student.ID, p.ProcessedBy)
	assert.Nil(t, p.TransactionID)
	assert.Contains(t, f.rec.Types(), events.PaymentCreated)

	_, err := NewPaymentService(f.opts).Create(f.ctx, Actor{UserID: f.student.ID}, PaymentInput{
		CourseID: f.course.ID, Amount: 10, DiscountAmount: 20, PaymentMethod: "cash",
	})
	requireKind(t, err, apperr.KindInvalidInput, apperr.MsgNegativeTotal)

	_, err = NewPaymentService(f.opts).Create(f.ctx, Actor{UserID: f.student.ID}, PaymentInput{
		CourseID: f.course.ID, Amount: 10, PaymentMethod: "barter",
	})
	requireKind(t, err, apperr.KindInvalidInput, apperr.MsgInvalidData)
}

func TestPaymentCurrencyIsRestricted(t *testing.T) {
	f := newFixture(t)

	p := f.pay(t, PaymentInput{Amount: 100, Currency: "usd"})
	assert.Equal(t, "USD", p.Currency)

	_, err := NewPaymentService(f.opts).Create(f.ctx, Actor{UserID: f.student.ID}, PaymentInput{
		CourseID: f.course.ID, Amount: 100, PaymentMethod: "cash", Currency: "GBP",
	})
	requireKind(t, err, apperr.KindInvalidInput, apperr.MsgInvalidData)
}

func TestPaymentDefaultTaxRate(t *testing.T) {
	f := newFixture(t)
	f.opts.TaxRate = 0
	p, err := NewPaymentService(f.opts).Create(f.ctx, Actor{UserID: f.student.ID}, PaymentInput{CourseID: f.course.ID, Amount: 200, PaymentMethod: "online"})
	require.NoError(t, err)
	assert.Equal(t, 18.0, p.TaxAmount)
}

func TestPaymentUniqueReferences(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.opts)
	f.pay(t, PaymentInput{Amount: 100, TransactionID: "TX-1", ReceiptNumber: "R-1"})

	_, err := svc.Create(f.ctx, Actor{UserID: f.student.ID}, PaymentInput{CourseID: f.course.ID, Amount: 100, PaymentMethod: "card", TransactionID: "TX-1"})
	requireKind(t, err, apperr.KindConflict, apperr.MsgDuplicate)

	_, err = svc.Create(f.ctx, Actor{UserID: f.student.ID}, PaymentInput{CourseID: f.course.ID, Amount: 100, PaymentMethod: "card", ReceiptNumber: "R-1"})
	requireKind(t, err, apperr.KindConflict, apperr.MsgDuplicate)

	// Absent references never collide.
	f.pay(t, PaymentInput{Amount: 100})
	other := f.pay(t, PaymentInput{Amount: 100})

	_, err = svc.Update(f.ctx, f.admin.ID, other.ID, PaymentUpdate{TransactionID: ptr("TX-1")})
	requireKind(t, err, apperr.KindConflict, apperr.MsgDuplicate)
}

func TestPaidPaymentIsLocked(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.opts)
	p := f.pay(t, PaymentInput{Amount: 100})

	paid, err := svc.ChangeStatus(f.ctx, f.admin.ID, p.ID, PaymentStatusInput{Status: models.PaymentPaid})
	require.NoError(t, err)
	require.NotNil(t, paid.PaymentDate)
	assert.Equal(t, clock, *paid.PaymentDate)
	assert.Contains(t, f.rec.Types(), events.PaymentStatusChanged)

	for _, next := range models.PaymentStatuses {
		_, err := svc.ChangeStatus(f.ctx, f.admin.ID, p.ID, PaymentStatusInput{Status: next})
		requireKind(t, err, apperr.KindConflict, apperr.MsgPaymentPaidLocked)
		_, err = svc.Update(f.ctx, f.admin.ID, p.ID, PaymentUpdate{Status: ptr(next)})
		requireKind(t, err, apperr.KindConflict, apperr.MsgPaymentPaidLocked)
	}
	requireKind(t, svc.Delete(f.ctx, p.ID), apperr.KindConflict, apperr.MsgPaymentPaidUndeleted)

	got, err := svc.Get(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.Status)
}

func TestPaymentDeleteAllowedWhileUnpaid(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.opts)
	p := f.pay(t, PaymentInput{Amount: 100})

	_, err := svc.ChangeStatus(f.ctx, f.admin.ID, p.ID, PaymentStatusInput{Status: models.PaymentFailed})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(f.ctx, p.ID))
	_, err = svc.Get(f.ctx, p.ID)
	requireKind(t, err, apperr.KindNotFound, apperr.MsgPaymentNotFound)
}

func TestPaymentTotalSurvivesUpdates(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.opts)
	p := f.pay(t, PaymentInput{Amount: 250, DiscountAmount: 10})
	want := p.TotalAmount

	due := clock.Add(7 * 24 * time.Hour)
	_, err := svc.Update(f.ctx, f.admin.ID, p.ID, PaymentUpdate{Notes: ptr("first installment"), DueDate: &due, ReceiptNumber: ptr("R-9")})
	require.NoError(t, err)

	// A different tax policy later must not rewrite stored totals.
	f.opts.TaxRate = 0.2
	_, err = NewPaymentService(f.opts).Update(f.ctx, f.admin.ID, p.ID, PaymentUpdate{Status: ptr(models.PaymentPaid)})
	require.NoError(t, err)

	got, err := svc.Get(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got.TotalAmount)
	assert.Equal(t, got.Amount+got.TaxAmount-got.DiscountAmount, got.TotalAmount)
	assert.Equal(t, "R-9", *got.ReceiptNumber)
	require.NotNil(t, got.PaymentDate)
}

func TestPaymentStats(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.opts)
	a := f.pay(t, PaymentInput{Amount: 100})
	f.pay(t, PaymentInput{Amount: 200})
	_, err := svc.ChangeStatus(f.ctx, f.admin.ID, a.ID, PaymentStatusInput{Status: models.PaymentPaid})
	require.NoError(t, err)

	st, err := svc.Stats(f.ctx, store.PaymentFilter{CourseID: f.course.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.TotalPayments)
	assert.Equal(t, 327.0, st.TotalAmount)
	assert.Equal(t, 109.0, st.PaidAmount)
	assert.Equal(t, 218.0, st.PendingAmount)
	assert.Equal(t, StatusTotal{Count: 1, Amount: 109}, st.ByStatus[models.PaymentPaid])
	assert.Equal(t, StatusTotal{}, st.ByStatus[models.PaymentRefunded])

	rows, err := svc.Report(f.ctx, store.PaymentFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, a.ID, rows[0].ID)
}
