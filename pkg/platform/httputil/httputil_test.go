package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trustbridge/pkg/domain-errors"
	"trustbridge/pkg/testutil"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		name            string
		err             error
		wantStatus      int
		wantError       string
		wantDescription string
	}{
		{
			name:       "internal failure hides its message",
			err:        dErrors.New(dErrors.CodeInternal, "db failed"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
		{
			name:            "client error keeps its message",
			err:             dErrors.New(dErrors.CodeBadRequest, "invalid input"),
			wantStatus:      http.StatusBadRequest,
			wantError:       "bad_request",
			wantDescription: "invalid input",
		},
		{
			name:            "missing trust path is forbidden",
			err:             fmt.Errorf("authorize: %w", dErrors.New(dErrors.CodeTrustPathNotFound, "no trust path to provider")),
			wantStatus:      http.StatusForbidden,
			wantError:       "trust_path_not_found",
			wantDescription: "no trust path to provider",
		},
		{
			name:       "plain error is internal",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tc.err)

			testutil.AssertStatus(t, rr, tc.wantStatus)
			body := testutil.UnmarshalResponse[ErrorResponse](t, rr)
			assert.Equal(t, tc.wantError, body.Error)
			assert.Equal(t, tc.wantDescription, body.ErrorDescription)
		})
	}
}

func TestWriteOAuthError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteOAuthError(rr, http.StatusBadRequest, "authorization_pending", "")

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.NotContains(t, rr.Body.String(), "error_description")
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "authorization_pending")
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Provider string `json:"provider_id"`
	}

	t.Run("accepts known fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"provider_id":"idp-a"}`))
		require.NoError(t, DecodeJSON(req, &dst))
		assert.Equal(t, "idp-a", dst.Provider)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"provider":"idp-a"}`))
		err := DecodeJSON(req, &dst)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
