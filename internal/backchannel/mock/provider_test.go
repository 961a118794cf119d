package mock

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"trustbridge/internal/backchannel/models"
	dErrors "trustbridge/pkg/domain-errors"
)

type MockProviderSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	scheduler *ManualScheduler
}

func TestMockProviderSuite(t *testing.T) {
	suite.Run(t, new(MockProviderSuite))
}

func (s *MockProviderSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.scheduler = NewManualScheduler()
}

func (s *MockProviderSuite) newProvider(cfg Config, opts ...Option) *Provider {
	base := []Option{
		WithScheduler(s.scheduler),
		WithClock(func() time.Time { return s.now }),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}
	return New(cfg, append(base, opts...)...)
}

func (s *MockProviderSuite) request(id string) *models.Request {
	return &models.Request{AuthReqID: id, ClientID: "rp", LoginHint: "user@example.com", Scope: "openid", CreatedAt: s.now}
}

func (s *MockProviderSuite) status(p *Provider, id string) models.AuthStatus {
	st, err := p.AuthenticationStatus(s.ctx, id)
	s.Require().NoError(err)
	return st
}

func (s *MockProviderSuite) TestScheduledResolution() {
	s.Run("pending until the delay elapses", func() {
		p := s.newProvider(Config{Delay: time.Second, ApprovalRate: 100, AutoApprove: true})
		s.Require().NoError(p.InitiateAuthentication(s.ctx, s.request("a-1")))

		s.Equal(models.StatusPending, s.status(p, "a-1").Status)
		s.scheduler.Advance(999 * time.Millisecond)
		s.Equal(models.StatusPending, s.status(p, "a-1").Status)

		s.scheduler.Advance(time.Millisecond)
		st := s.status(p, "a-1")
		s.Equal(models.StatusApproved, st.Status)
		s.Equal("user@example.com", st.UserID)
		s.Equal("openid", st.Scope)
	})

	s.Run("all-deny configuration denies", func() {
		p := s.newProvider(Config{Delay: 0, ApprovalRate: 0, ErrorRate: 0, AutoApprove: true})
		s.Require().NoError(p.InitiateAuthentication(s.ctx, s.request("d-1")))
		s.scheduler.Advance(0)

		st := s.status(p, "d-1")
		s.Equal(models.StatusDenied, st.Status)
		s.Equal("access_denied", st.ErrorCode)
	})

	s.Run("all-error configuration errors", func() {
		p := s.newProvider(Config{ErrorRate: 100, AutoApprove: true})
		s.Require().NoError(p.InitiateAuthentication(s.ctx, s.request("e-1")))
		s.scheduler.Advance(0)

		s.Equal(models.StatusError, s.status(p, "e-1").Status)
	})
}

func (s *MockProviderSuite) TestManualMode() {
	p := s.newProvider(Config{Delay: time.Millisecond, ApprovalRate: 100, AutoApprove: false})
	s.Require().NoError(p.InitiateAuthentication(s.ctx, s.request("m-1")))
	s.Equal(0, s.scheduler.Pending())

	s.scheduler.Advance(time.Hour)
	s.Equal(models.StatusPending, s.status(p, "m-1").Status)

	s.Run("resolve completes the request", func() {
		err := p.Resolve(s.ctx, "m-1", models.Resolution{Status: models.StatusDenied})
		s.Require().NoError(err)
		s.Equal(models.StatusDenied, s.status(p, "m-1").Status)
	})

	s.Run("second resolve conflicts", func() {
		err := p.Resolve(s.ctx, "m-1", models.Resolution{Status: models.StatusApproved, UserID: "u"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(models.StatusDenied, s.status(p, "m-1").Status)
	})

	s.Run("unknown id is not found", func() {
		err := p.Resolve(s.ctx, "nope", models.Resolution{Status: models.StatusDenied})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("approval requires a user id", func() {
		s.Require().NoError(p.InitiateAuthentication(s.ctx, s.request("m-2")))
		err := p.Resolve(s.ctx, "m-2", models.Resolution{Status: models.StatusApproved})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(models.StatusPending, s.status(p, "m-2").Status)
	})
}

func (s *MockProviderSuite) TestTerminalStatusIsFinal() {
	p := s.newProvider(Config{Delay: time.Second, ApprovalRate: 100, AutoApprove: true})
	s.Require().NoError(p.InitiateAuthentication(s.ctx, s.request("f-1")))

	s.Require().NoError(p.Resolve(s.ctx, "f-1", models.Resolution{Status: models.StatusDenied}))
	s.Equal(0, s.scheduler.Pending(), "resolving stops the scheduled outcome")

	s.scheduler.Advance(time.Hour)
	s.Equal(models.StatusDenied, s.status(p, "f-1").Status)

	err := p.InitiateAuthentication(s.ctx, s.request("f-1"))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *MockProviderSuite) TestCancel() {
	p := s.newProvider(Config{Delay: time.Second, ApprovalRate: 100, AutoApprove: true})
	s.Require().NoError(p.InitiateAuthentication(s.ctx, s.request("c-1")))

	s.Require().NoError(p.CancelAuthentication(s.ctx, "c-1"))
	s.Equal(0, s.scheduler.Pending())
	s.scheduler.Advance(time.Hour)

	exists, err := p.Exists(s.ctx, "c-1")
	s.Require().NoError(err)
	s.False(exists)
	s.Equal(models.StatusPending, s.status(p, "c-1").Status, "unknown ids read as pending")

	s.NoError(p.CancelAuthentication(s.ctx, "never-existed"))
}

func (s *MockProviderSuite) TestRequestedExpiry() {
	p := s.newProvider(Config{AutoApprove: false})
	req := s.request("x-1")
	req.RequestedExpiry = 60
	s.Require().NoError(p.InitiateAuthentication(s.ctx, req))

	s.now = s.now.Add(61 * time.Second)
	st := s.status(p, "x-1")
	s.Equal(models.StatusExpired, st.Status)
	s.Equal("expired_token", st.ErrorCode)

	err := p.Resolve(s.ctx, "x-1", models.Resolution{Status: models.StatusApproved, UserID: "u"})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *MockProviderSuite) TestCleanupExpiredRequests() {
	p := s.newProvider(Config{AutoApprove: false})
	s.Require().NoError(p.InitiateAuthentication(s.ctx, s.request("old")))
	s.Require().NoError(p.InitiateAuthentication(s.ctx, s.request("resolved")))
	s.Require().NoError(p.Resolve(s.ctx, "resolved", models.Resolution{Status: models.StatusDenied}))

	s.now = s.now.Add(2 * time.Hour)
	s.Require().NoError(p.InitiateAuthentication(s.ctx, s.request("fresh")))

	removed, err := p.CleanupExpiredRequests(s.ctx, time.Hour)
	s.Require().NoError(err)
	s.Equal(1, removed)

	for id, want := range map[string]bool{"old": false, "resolved": true, "fresh": true} {
		exists, err := p.Exists(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(want, exists, id)
	}
}

func (s *MockProviderSuite) TestNewWithState() {
	p := NewWithState(Config{}, []models.AuthStatus{
		{AuthReqID: "seed-ok", Status: models.StatusApproved, UserID: "alice", UpdatedAt: s.now},
		models.Pending("seed-pending", s.now),
	}, WithScheduler(s.scheduler))

	s.Equal("alice", s.status(p, "seed-ok").UserID)
	s.Require().NoError(p.Resolve(s.ctx, "seed-pending", models.Resolution{Status: models.StatusError}))
	s.Equal(models.StatusError, s.status(p, "seed-pending").Status)
}

func (s *MockProviderSuite) TestConfigIsNormalized() {
	p := s.newProvider(Config{ApprovalRate: 90, ErrorRate: 40, Delay: -time.Second})
	s.Equal(Config{ApprovalRate: 90, ErrorRate: 10}, p.Config())
}

func TestOutcomeDistribution(t *testing.T) {
	const samples = 10000
	scheduler := NewManualScheduler()
	p := New(
		Config{Delay: 10 * time.Millisecond, ApprovalRate: 80, ErrorRate: 10, AutoApprove: true},
		WithScheduler(scheduler),
		WithRand(rand.New(rand.NewPCG(42, 7))),
	)
	ctx := context.Background()

	ids := make([]string, samples)
	for i := range samples {
		ids[i] = "dist-" + strconv.Itoa(i)
		require.NoError(t, p.InitiateAuthentication(ctx, &models.Request{AuthReqID: ids[i], ClientID: "rp", LoginHint: "u"}))
	}
	scheduler.Advance(10 * time.Millisecond)

	counts := map[models.Status]int{}
	for _, id := range ids {
		st, err := p.AuthenticationStatus(ctx, id)
		require.NoError(t, err)
		counts[st.Status]++
	}

	assert.Zero(t, counts[models.StatusPending])
	assert.InDelta(t, 0.8, float64(counts[models.StatusApproved])/samples, 0.02)
	assert.InDelta(t, 0.1, float64(counts[models.StatusDenied])/samples, 0.02)
	assert.InDelta(t, 0.1, float64(counts[models.StatusError])/samples, 0.02)
}

func TestCancelRacingTimer(t *testing.T) {
	p := New(Config{Delay: time.Millisecond, ApprovalRate: 100, AutoApprove: true})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		id := "race-" + strconv.Itoa(i)
		require.NoError(t, p.InitiateAuthentication(ctx, &models.Request{AuthReqID: id, ClientID: "rp", LoginHint: "u"}))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.CancelAuthentication(ctx, id)
		}()
	}
	wg.Wait()

	// every id is either cancelled (absent) or resolved; none is stuck pending
	assert.Eventually(t, func() bool {
		for i := range 50 {
			id := "race-" + strconv.Itoa(i)
			exists, _ := p.Exists(ctx, id)
			st, _ := p.AuthenticationStatus(ctx, id)
			if exists && st.Status != models.StatusApproved {
				return false
			}
		}
		return true
	}, time.Second, 10*time.Millisecond)
}

func TestRealTimerResolves(t *testing.T) {
	p := New(Config{Delay: 5 * time.Millisecond, ApprovalRate: 100, AutoApprove: true})
	ctx := context.Background()
	require.NoError(t, p.InitiateAuthentication(ctx, &models.Request{AuthReqID: "timer-1", ClientID: "rp", LoginHint: "bob"}))

	assert.Eventually(t, func() bool {
		st, err := p.AuthenticationStatus(ctx, "timer-1")
		return err == nil && st.Status == models.StatusApproved && st.UserID == "bob"
	}, time.Second, 5*time.Millisecond)
}
