package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	cases := map[int]struct {
		category  Category
		retryable bool
	}{
		http.StatusTooManyRequests:     {CategoryRateLimited, true},
		http.StatusBadGateway:          {CategoryOutage, true},
		http.StatusUnauthorized:        {CategoryAuthentication, false},
		http.StatusForbidden:           {CategoryAuthentication, false},
		http.StatusBadRequest:          {CategoryProtocol, false},
		http.StatusInternalServerError: {CategoryOutage, true},
	}
	for status, want := range cases {
		t.Run(http.StatusText(status), func(t *testing.T) {
			err := classifyStatus("idp-a", "token poll rejected", status, nil)
			assert.Equal(t, want.category, err.Category)
			assert.Equal(t, want.retryable, IsRetryable(err))
		})
	}
}

func TestClassifyTransport(t *testing.T) {
	assert.Equal(t, CategoryTimeout, classifyTransport("idp-a", "x", context.DeadlineExceeded).Category)
	assert.Equal(t, CategoryInternal, classifyTransport("idp-a", "x", context.Canceled).Category)
	assert.Equal(t, CategoryOutage, classifyTransport("idp-a", "x", errors.New("connection refused")).Category)
}

func TestErrorHelpersSeeThroughWrapping(t *testing.T) {
	base := NewError(CategoryOutage, "idp-a", "home provider unreachable", errors.New("dial tcp"))
	wrapped := fmt.Errorf("exchange: %w", base)

	assert.True(t, IsRetryable(wrapped))
	assert.Equal(t, CategoryOutage, GetCategory(wrapped))
	assert.Contains(t, wrapped.Error(), "home provider idp-a [provider_outage]")

	assert.False(t, IsRetryable(errors.New("plain")))
	assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
}
