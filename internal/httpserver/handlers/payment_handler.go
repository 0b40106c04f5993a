package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"classhub/internal/auth"
	"classhub/internal/models"
	"classhub/internal/rbac"
	"classhub/internal/services"
	"classhub/internal/store"
)

func paymentFilter(r *http.Request) (store.PaymentFilter, error) {
	q := r.URL.Query()
	f := store.PaymentFilter{
		Status:        models.PaymentStatus(q.Get("status")),
		PaymentMethod: q.Get("payment_method"),
	}
	var err error
	if f.UserID, err = queryID(r, "user_id"); err != nil {
		return f, err
	}
	if f.CourseID, err = queryID(r, "course_id"); err != nil {
		return f, err
	}
	if f.From, err = queryTime(r, "start_date", false); err != nil {
		return f, err
	}
	if f.To, err = queryTime(r, "end_date", true); err != nil {
		return f, err
	}
	return f, nil
}

func listPayments(svc *services.PaymentService, lg *zap.SugaredLogger, scope func(r *http.Request, f *store.PaymentFilter) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := paymentFilter(r)
		if err == nil && scope != nil {
			err = scope(r, &f)
		}
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		p := pageParams(r)
		f.Page = p.store()
		rows, total, err := svc.List(r.Context(), f)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondList(w, rows, total, p)
	}
}

func ListPayments(svc *services.PaymentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return listPayments(svc, lg, nil)
}

func MyPayments(svc *services.PaymentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return listPayments(svc, lg, func(r *http.Request, f *store.PaymentFilter) error {
		f.UserID = auth.UserID(r.Context())
		return nil
	})
}

func CoursePayments(svc *services.PaymentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return listPayments(svc, lg, func(r *http.Request, f *store.PaymentFilter) error {
		id, err := urlID(r, "courseId")
		f.CourseID = id
		return err
	})
}

func PaymentStats(svc *services.PaymentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := paymentFilter(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		st, err := svc.Stats(r.Context(), f)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", st)
	}
}

var paymentCSVHeader = []string{
	"id", "user_id", "course_id", "amount", "discount_amount", "tax_amount", "total_amount",
	"currency", "status", "payment_method", "transaction_id", "receipt_number", "payment_date", "created_at",
}

func paymentRows(payments []models.Payment) [][]string {
	rows := make([][]string, 0, len(payments))
	for _, p := range payments {
		rows = append(rows, []string{
			formatUint(p.ID),
			formatUint(p.UserID),
			formatUint(p.CourseID),
			formatFloat(p.Amount),
			formatFloat(p.DiscountAmount),
			formatFloat(p.TaxAmount),
			formatFloat(p.TotalAmount),
			p.Currency,
			string(p.Status),
			p.PaymentMethod,
			deref(p.TransactionID),
			deref(p.ReceiptNumber),
			formatTime(p.PaymentDate),
			formatTime(&p.CreatedAt),
		})
	}
	return rows
}

func PaymentReport(svc *services.PaymentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := paymentFilter(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		rows, err := svc.Report(r.Context(), f)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		if wantsCSV(r) {
			writeCSV(w, lg, "payment-report.csv", paymentCSVHeader, paymentRows(rows))
			return
		}
		respondData(w, http.StatusOK, "", rows)
	}
}

func GetPayment(svc *services.PaymentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		p, err := svc.Get(r.Context(), id)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, "", p)
	}
}

// CreatePayment records a payment for the caller. Naming another user_id needs payment:update.
func CreatePayment(svc *services.PaymentService, az auth.Authorizer, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.PaymentInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		actor := services.Actor{
			UserID: auth.UserID(r.Context()),
			Manage: auth.Can(r.Context(), az, rbac.PaymentUpdate),
		}
		p, err := svc.Create(r.Context(), actor, req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusCreated, msgCreated, p)
	}
}

func UpdatePayment(svc *services.PaymentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var req services.PaymentUpdate
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		p, err := svc.Update(r.Context(), auth.UserID(r.Context()), id, req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgUpdated, p)
	}
}

func ChangePaymentStatus(svc *services.PaymentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var req services.PaymentStatusInput
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		p, err := svc.ChangeStatus(r.Context(), auth.UserID(r.Context()), id, req)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgStatusChanged, p)
	}
}

func DeletePayment(svc *services.PaymentService, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondData(w, http.StatusOK, msgDeleted, nil)
	}
}
