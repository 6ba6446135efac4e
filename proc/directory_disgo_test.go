package proc

import (
	"errors"
	"net/http"
	"testing"

	"github.com/disgoorg/disgo/rest"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restError(code int) error {
	return &rest.Error{Response: &http.Response{StatusCode: code}}
}

func testDisgoDirectory(name string) *DisgoDirectory {
	return &DisgoDirectory{breaker: newBreaker(name)}
}

func TestDisgoErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		notFound bool
	}{
		{"forbidden", restError(http.StatusForbidden), 403, false},
		{"not found", restError(http.StatusNotFound), 404, true},
		{"rate limited", restError(http.StatusTooManyRequests), 429, false},
		{"server error", restError(http.StatusInternalServerError), 500, false},
		{"transport", errors.New("dial tcp: i/o timeout"), 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := testDisgoDirectory("mapping-" + tc.name)
			assert.Equal(t, tc.status, statusOf(tc.err))

			var err error
			require.NotPanics(t, func() {
				err = exec(d, func() error { return tc.err })
			})
			require.Error(t, err)
			assert.Equal(t, tc.notFound, errors.Is(err, ErrNotFound))
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestDisgoBreakerTrips(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		state gobreaker.State
	}{
		{"server errors open it", restError(http.StatusInternalServerError), gobreaker.StateOpen},
		{"rate limits open it", restError(http.StatusTooManyRequests), gobreaker.StateOpen},
		{"not found keeps it closed", restError(http.StatusNotFound), gobreaker.StateClosed},
		{"forbidden keeps it closed", restError(http.StatusForbidden), gobreaker.StateClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := testDisgoDirectory("trip-" + tc.name)
			for range 5 {
				_ = exec(d, func() error { return tc.err })
			}
			assert.Equal(t, tc.state, d.breaker.State())
		})
	}
}

func TestDisgoBreakerRejectsWhileOpen(t *testing.T) {
	d := testDisgoDirectory("open")
	for range 5 {
		_ = exec(d, func() error { return restError(http.StatusBadGateway) })
	}

	called := false
	err := exec(d, func() error { called = true; return nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, called)
}
