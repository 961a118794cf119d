package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TestContext carries one scenario's client state against a running broker.
type TestContext struct {
	BaseURL      string
	client       *http.Client
	clientID     string
	clientSecret string

	lastStatus int
	lastBody   map[string]any
	authReqID  string
	interval   time.Duration
}

// NewTestContext targets baseURL.
func NewTestContext(baseURL string) *TestContext {
	return &TestContext{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.clientID, tc.clientSecret = "", ""
	tc.lastStatus, tc.lastBody = 0, nil
	tc.authReqID, tc.interval = "", 0
}

func (tc *TestContext) SetClient(id, secret string) {
	tc.clientID, tc.clientSecret = id, secret
}

func (tc *TestContext) GET(path string) error {
	req, err := http.NewRequest(http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return tc.do(req)
}

// POSTForm sends form with the configured client credentials as basic auth.
func (tc *TestContext) POSTForm(path string, form url.Values) error {
	req, err := http.NewRequest(http.MethodPost, tc.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if tc.clientID != "" {
		req.SetBasicAuth(tc.clientID, tc.clientSecret)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &tc.lastBody); err != nil {
			return fmt.Errorf("decode response: %w (body %q)", err, raw)
		}
	}
	return nil
}

func (tc *TestContext) Status() int { return tc.lastStatus }

// ResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) ResponseField(field string) (any, bool) {
	v, ok := tc.lastBody[field]
	return v, ok
}

func (tc *TestContext) AuthReqID() string { return tc.authReqID }

func (tc *TestContext) SetAuthReqID(id string, interval time.Duration) {
	tc.authReqID, tc.interval = id, interval
}

// PollInterval defaults to five seconds when the broker did not send one.
func (tc *TestContext) PollInterval() time.Duration {
	if tc.interval <= 0 {
		return 5 * time.Second
	}
	return tc.interval
}
