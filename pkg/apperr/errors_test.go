package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("plant"), http.StatusNotFound},
		{"conflict", Conflict("client already assigned to a plant"), http.StatusConflict},
		{"forbidden", Forbidden("role technician may not delete plants"), http.StatusForbidden},
		{"validation", Validation("title is required"), http.StatusBadRequest},
		{"plain error", errors.New("pq: connection refused"), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("fetching: %w", NotFound("incidence")), http.StatusNotFound},
		{"nil-ish unknown", errors.New(""), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestUserMessageMasksInternals(t *testing.T) {
	assert.Equal(t, "internal server error", UserMessage(errors.New("pq: password authentication failed")))
	assert.Equal(t, "plant not found", UserMessage(NotFound("plant")))
	assert.Equal(t, "title is required", UserMessage(Validation("title is required")))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("report")))
	assert.True(t, IsNotFound(fmt.Errorf("get: %w", NotFound("report"))))
	assert.False(t, IsNotFound(Conflict("x")))

	assert.True(t, IsConflict(Conflict("duplicate assignment")))
	assert.False(t, IsConflict(errors.New("duplicate assignment")))
}
