package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	fedmodels "trustbridge/internal/federation/models"
	trustmodels "trustbridge/internal/trust/models"
	dErrors "trustbridge/pkg/domain-errors"
)

// GrantTypeCIBA is the token endpoint grant for backchannel authentication.
const GrantTypeCIBA = "urn:openid:params:grant-type:ciba"

const (
	defaultPollInterval = 5 * time.Second
	maxResponseBytes    = 1 << 20
)

// CIBAAuthorization is a home provider's answer to a backchannel request.
type CIBAAuthorization struct {
	AuthReqID string
	ExpiresIn int
	Interval  time.Duration
}

// CIBAClient talks to a home provider's backchannel and token endpoints.
type CIBAClient struct {
	creds      ClientCredentials
	httpClient *http.Client
	throttle   *PollThrottle
	clock      func() time.Time
}

func NewCIBAClient(creds ClientCredentials, httpClient *http.Client, throttle *PollThrottle) *CIBAClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if throttle == nil {
		throttle = NewPollThrottle(nil)
	}
	return &CIBAClient{creds: creds, httpClient: httpClient, throttle: throttle, clock: time.Now}
}

type cibaAuthResponse struct {
	AuthReqID string `json:"auth_req_id"`
	ExpiresIn int    `json:"expires_in"`
	Interval  int    `json:"interval"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Initiate sends a backchannel authentication request for req.
func (c *CIBAClient) Initiate(ctx context.Context, provider trustmodels.ProviderNode, req fedmodels.Request, requestedExpiry int) (CIBAAuthorization, error) {
	form := url.Values{}
	form.Set("scope", req.Scope)
	if req.LoginHint != "" {
		form.Set("login_hint", req.LoginHint)
	}
	if req.BindingMessage != "" {
		form.Set("binding_message", req.BindingMessage)
	}
	if requestedExpiry > 0 {
		form.Set("requested_expiry", strconv.Itoa(requestedExpiry))
	}

	status, body, err := c.post(ctx, provider, provider.BackchannelEndpoint, form)
	if err != nil {
		return CIBAAuthorization{}, err
	}
	if status != http.StatusOK {
		return CIBAAuthorization{}, c.errorFrom(provider.ID, "backchannel request rejected", status, body)
	}
	var resp cibaAuthResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.AuthReqID == "" {
		return CIBAAuthorization{}, NewError(CategoryBadData, provider.ID, "malformed backchannel response", err)
	}
	interval := defaultPollInterval
	if resp.Interval > 0 {
		interval = time.Duration(resp.Interval) * time.Second
	}
	return CIBAAuthorization{AuthReqID: resp.AuthReqID, ExpiresIn: resp.ExpiresIn, Interval: interval}, nil
}

// Poll redeems a CIBA grant. A nil TokenSet with a nil error means the user
// has not decided yet.
func (c *CIBAClient) Poll(ctx context.Context, provider trustmodels.ProviderNode, authReqID string, interval time.Duration) (*fedmodels.TokenSet, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if !c.throttle.Allow(authReqID, interval) {
		return nil, dErrors.New(dErrors.CodeSlowDown, "polling too frequently")
	}

	form := url.Values{}
	form.Set("grant_type", GrantTypeCIBA)
	form.Set("auth_req_id", authReqID)
	status, body, err := c.post(ctx, provider, provider.TokenEndpoint, form)
	if err != nil {
		return nil, err
	}

	if status == http.StatusOK {
		var resp tokenResponse
		if err := json.Unmarshal(body, &resp); err != nil || resp.IDToken == "" {
			return nil, NewError(CategoryBadData, provider.ID, "malformed token response", err)
		}
		c.throttle.Forget(authReqID)
		tokenType := resp.TokenType
		if tokenType == "" || strings.EqualFold(tokenType, "bearer") {
			tokenType = "Bearer"
		}
		return &fedmodels.TokenSet{
			AccessToken:  resp.AccessToken,
			IDToken:      resp.IDToken,
			RefreshToken: resp.RefreshToken,
			TokenType:    tokenType,
			Scope:        resp.Scope,
			ExpiresAt:    c.clock().Add(time.Duration(resp.ExpiresIn) * time.Second),
		}, nil
	}

	var oe oauthError
	_ = json.Unmarshal(body, &oe)
	switch oe.Error {
	case "authorization_pending":
		return nil, nil
	case "slow_down":
		c.throttle.SlowDown(authReqID)
		return nil, dErrors.New(dErrors.CodeSlowDown, "home provider asked to slow down")
	case "access_denied":
		c.throttle.Forget(authReqID)
		return nil, dErrors.New(dErrors.CodeAccessDenied, "user denied the request at the home provider")
	case "expired_token":
		c.throttle.Forget(authReqID)
		return nil, dErrors.New(dErrors.CodeExpired, "backchannel request expired at the home provider")
	}
	return nil, c.errorFrom(provider.ID, "token poll rejected", status, body)
}

func (c *CIBAClient) post(ctx context.Context, provider trustmodels.ProviderNode, endpoint string, form url.Values) (int, []byte, error) {
	if endpoint == "" {
		return 0, nil, NewError(CategoryProtocol, provider.ID, "home provider has no endpoint for this request", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, NewError(CategoryInternal, provider.ID, "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(url.QueryEscape(c.creds.ClientID), url.QueryEscape(c.creds.ClientSecret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, classifyTransport(provider.ID, "home provider unreachable", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, classifyTransport(provider.ID, "read home provider response", err)
	}
	return resp.StatusCode, body, nil
}

func (c *CIBAClient) errorFrom(providerID, message string, status int, body []byte) error {
	var oe oauthError
	if err := json.Unmarshal(body, &oe); err == nil && oe.Error != "" {
		message = fmt.Sprintf("%s: %s", message, oe.Error)
	}
	return classifyStatus(providerID, message, status, fmt.Errorf("status %d", status))
}
