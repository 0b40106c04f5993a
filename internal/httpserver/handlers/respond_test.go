package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"classhub/internal/apperr"
	"classhub/internal/store"
)

func TestPageParams(t *testing.T) {
	cases := []struct {
		query string
		want  pageQuery
	}{
		{"", pageQuery{page: 1, limit: defaultLimit}},
		{"?page=3&limit=20", pageQuery{page: 3, limit: 20}},
		{"?page=0&limit=-5", pageQuery{page: 1, limit: defaultLimit}},
		{"?page=x&limit=5000", pageQuery{page: 1, limit: maxLimit}},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "/"+c.query, nil)
		assert.Equal(t, c.want, pageParams(r), c.query)
	}
	assert.Equal(t, store.Page{Offset: 40, Limit: 20}, pageQuery{page: 3, limit: 20}.store())
}

func TestQueryTime(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?start_date=2026-03-01&end_date=2026-03-31&at=2026-03-05T10:00:00Z&bad=yesterday", nil)

	from, err := queryTime(r, "start_date", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *from)

	to, err := queryTime(r, "end_date", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 999999999, time.UTC), *to)

	at, err := queryTime(r, "at", true)
	require.NoError(t, err)
	assert.Equal(t, 10, at.Hour())

	missing, err := queryTime(r, "missing", false)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = queryTime(r, "bad", false)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestRespondErrorHidesServerCause(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	respondError(rec, r, zap.NewNop().Sugar(), errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, apperr.MsgUnknown, body.Message)
}

func TestRespondListPagination(t *testing.T) {
	rec := httptest.NewRecorder()
	respondList(rec, []int{1, 2}, 12, pageQuery{page: 2, limit: 5})

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, &pagination{CurrentPage: 2, TotalPages: 3, TotalItems: 12, ItemsPerPage: 5}, body.Pagination)
}

func TestStatusesQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?status=scheduled,%20in_progress,", nil)
	assert.Equal(t, []string{"scheduled", "in_progress"}, statuses[string](r))
}
