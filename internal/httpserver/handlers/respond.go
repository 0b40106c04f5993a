package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"classhub/internal/apperr"
	"classhub/internal/store"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message,omitempty"`
	Data       any                 `json:"data,omitempty"`
	Pagination *pagination         `json:"pagination,omitempty"`
	Details    []apperr.FieldError `json:"details,omitempty"`
}

type pagination struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func respondData(w http.ResponseWriter, status int, msg string, data any) {
	respondJSON(w, status, envelope{Success: true, Message: msg, Data: data})
}

func respondList(w http.ResponseWriter, data any, total int64, p pageQuery) {
	pages := 0
	if p.limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.limit)))
	}
	respondJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    data,
		Pagination: &pagination{
			CurrentPage:  p.page,
			TotalPages:   pages,
			TotalItems:   total,
			ItemsPerPage: p.limit,
		},
	})
}

// respondError writes err in the error envelope. Server failures are logged
// and their cause never reaches the client.
func respondError(w http.ResponseWriter, r *http.Request, lg *zap.SugaredLogger, err error) {
	e := apperr.From(err)
	if e.Kind == apperr.KindServer {
		lg.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondJSON(w, e.Kind.HTTPStatus(), envelope{Message: e.Message, Details: e.Details})
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.InvalidInput(apperr.MsgIncompleteData)
		}
		return apperr.InvalidInput(apperr.MsgMalformedBody)
	}
	return nil
}

func urlID(r *http.Request, name string) (uint, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || v == 0 {
		return 0, apperr.InvalidInput(apperr.MsgInvalidID)
	}
	return uint(v), nil
}

// queryID parses an optional id filter; an absent value is zero.
func queryID(r *http.Request, name string) (uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.InvalidInput(apperr.MsgInvalidData, apperr.FieldError{Field: name, Message: apperr.MsgInvalidID})
	}
	return uint(v), nil
}

// queryTime accepts RFC3339 or a bare date. A bare end date covers the whole day.
func queryTime(r *http.Request, name string, end bool) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperr.InvalidInput(apperr.MsgInvalidData, apperr.FieldError{Field: name, Message: apperr.MsgInvalidData})
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.InvalidInput(apperr.MsgInvalidData, apperr.FieldError{Field: name, Message: apperr.MsgInvalidData})
	}
	return &v, nil
}

type pageQuery struct {
	page  int
	limit int
}

func (p pageQuery) store() store.Page {
	return store.Page{Offset: (p.page - 1) * p.limit, Limit: p.limit}
}

func pageParams(r *http.Request) pageQuery {
	q := r.URL.Query()
	p := pageQuery{page: 1, limit: defaultLimit}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		p.limit = min(v, maxLimit)
	}
	return p
}

func wantsCSV(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("format"), "csv")
}

func writeCSV(w http.ResponseWriter, lg *zap.SugaredLogger, filename string, header []string, rows [][]string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	// BOM so spreadsheet tools read the Persian text as UTF-8
	_, _ = w.Write([]byte("\xEF\xBB\xBF"))
	cw := csv.NewWriter(w)
	_ = cw.Write(header)
	_ = cw.WriteAll(rows)
	if err := cw.Error(); err != nil {
		lg.Errorw("write csv failed", "file", filename, "error", err)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatUint(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
