package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindInvalidInput:    http.StatusBadRequest,
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindConflict:        http.StatusConflict,
		KindServer:          http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("create session: %w", Conflict(MsgSessionOverlap))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, KindServer, KindOf(errors.New("boom")))
}

func TestFromHidesCause(t *testing.T) {
	e := From(errors.New("pq: connection refused"))
	assert.Equal(t, KindServer, e.Kind)
	assert.Equal(t, MsgUnknown, e.Message)
	assert.Contains(t, e.Error(), "connection refused")
}
