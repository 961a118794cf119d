package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	fedmodels "trustbridge/internal/federation/models"
	trustmodels "trustbridge/internal/trust/models"
	dErrors "trustbridge/pkg/domain-errors"
)

// homeProvider answers backchannel requests and replays the queued token
// responses in order.
type homeProvider struct {
	srv      *httptest.Server
	polls    atomic.Int32
	lastForm atomic.Value

	mu        sync.Mutex
	responses []tokenReply
}

func (hp *homeProvider) reply(replies ...tokenReply) {
	hp.mu.Lock()
	defer hp.mu.Unlock()
	hp.polls.Store(0)
	hp.responses = replies
}

type tokenReply struct {
	status int
	body   string
}

func newHomeProvider(t *testing.T) *homeProvider {
	hp := &homeProvider{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /bc-authorize", func(w http.ResponseWriter, r *http.Request) {
		if id, _, ok := r.BasicAuth(); !ok || id != brokerCreds.ClientID {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = r.ParseForm()
		hp.lastForm.Store(r.PostForm.Encode())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"auth_req_id":"home-req-1","expires_in":120,"interval":2}`))
	})
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		hp.mu.Lock()
		n := int(hp.polls.Add(1)) - 1
		reply := tokenReply{status: http.StatusInternalServerError, body: `{}`}
		if n < len(hp.responses) {
			reply = hp.responses[n]
		}
		hp.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.status)
		_, _ = w.Write([]byte(reply.body))
	})
	hp.srv = httptest.NewServer(mux)
	t.Cleanup(hp.srv.Close)
	return hp
}

func (hp *homeProvider) node() trustmodels.ProviderNode {
	return trustmodels.ProviderNode{
		ID:                  "idp-a",
		TokenEndpoint:       hp.srv.URL + "/token",
		BackchannelEndpoint: hp.srv.URL + "/bc-authorize",
	}
}

type CIBAClientSuite struct {
	suite.Suite
	ctx    context.Context
	now    time.Time
	home   *homeProvider
	client *CIBAClient
}

func TestCIBAClientSuite(t *testing.T) {
	suite.Run(t, new(CIBAClientSuite))
}

func (s *CIBAClientSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.home = newHomeProvider(s.T())
	clock := func() time.Time { return s.now }
	s.client = NewCIBAClient(brokerCreds, s.home.srv.Client(), NewPollThrottle(clock))
	s.client.clock = clock
}

func (s *CIBAClientSuite) TestInitiate() {
	req, err := fedmodels.NewRequest("alice@idp-a", "idp-a", "", "Approve login 42", "rp-clinic")
	s.Require().NoError(err)

	auth, err := s.client.Initiate(s.ctx, s.home.node(), req, 90)
	s.Require().NoError(err)
	s.Equal("home-req-1", auth.AuthReqID)
	s.Equal(120, auth.ExpiresIn)
	s.Equal(2*time.Second, auth.Interval)

	form := s.home.lastForm.Load().(string)
	s.Contains(form, "binding_message=Approve+login+42")
	s.Contains(form, "requested_expiry=90")
	s.Contains(form, "scope=openid")
}

func (s *CIBAClientSuite) TestInitiateWithoutEndpoint() {
	req, err := fedmodels.NewRequest("alice", "idp-a", "", "", "rp-clinic")
	s.Require().NoError(err)

	_, err = s.client.Initiate(s.ctx, trustmodels.ProviderNode{ID: "idp-a"}, req, 0)
	s.Equal(CategoryProtocol, GetCategory(err))
}

func (s *CIBAClientSuite) TestPoll() {
	s.home.reply(
		tokenReply{http.StatusBadRequest, `{"error":"authorization_pending"}`},
		tokenReply{http.StatusOK, `{"access_token":"at","id_token":"idt","token_type":"bearer","expires_in":60}`},
	)

	s.Run("pending is nil without error", func() {
		tokens, err := s.client.Poll(s.ctx, s.home.node(), "home-req-1", 2*time.Second)
		s.NoError(err)
		s.Nil(tokens)
	})

	s.Run("polling before the interval is slow_down without a request", func() {
		_, err := s.client.Poll(s.ctx, s.home.node(), "home-req-1", 2*time.Second)
		s.True(dErrors.Is(err, dErrors.CodeSlowDown))
		s.Equal(int32(1), s.home.polls.Load())
	})

	s.Run("approval returns the home tokens", func() {
		s.now = s.now.Add(time.Minute)
		tokens, err := s.client.Poll(s.ctx, s.home.node(), "home-req-1", 2*time.Second)
		s.Require().NoError(err)
		s.Require().NotNil(tokens)
		s.Equal("idt", tokens.IDToken)
		s.Equal("Bearer", tokens.TokenType)
		s.Equal(s.now.Add(time.Minute), tokens.ExpiresAt)
	})
}

func (s *CIBAClientSuite) TestPollOutcomes() {
	cases := []struct {
		name  string
		reply tokenReply
		check func(error)
	}{
		{"denied", tokenReply{http.StatusBadRequest, `{"error":"access_denied"}`}, func(err error) {
			s.True(dErrors.Is(err, dErrors.CodeAccessDenied))
		}},
		{"expired", tokenReply{http.StatusBadRequest, `{"error":"expired_token"}`}, func(err error) {
			s.True(dErrors.Is(err, dErrors.CodeExpired))
		}},
		{"slow down from home", tokenReply{http.StatusBadRequest, `{"error":"slow_down"}`}, func(err error) {
			s.True(dErrors.Is(err, dErrors.CodeSlowDown))
		}},
		{"unknown grant", tokenReply{http.StatusBadRequest, `{"error":"invalid_grant"}`}, func(err error) {
			s.Equal(CategoryProtocol, GetCategory(err))
		}},
		{"outage", tokenReply{http.StatusBadGateway, `{}`}, func(err error) {
			s.True(IsRetryable(err))
		}},
		{"malformed success", tokenReply{http.StatusOK, `{"access_token":"at"}`}, func(err error) {
			s.Equal(CategoryBadData, GetCategory(err))
		}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.home.reply(tc.reply)
			_, err := s.client.Poll(s.ctx, s.home.node(), "req-"+tc.name, time.Second)
			s.Require().Error(err)
			tc.check(err)
		})
	}
}

func TestNewCIBAClientDefaults(t *testing.T) {
	c := NewCIBAClient(brokerCreds, nil, nil)
	assert.Same(t, http.DefaultClient, c.httpClient)
	assert.NotNil(t, c.throttle)
}
