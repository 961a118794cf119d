package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"trustbridge/internal/backchannel/models"
	dErrors "trustbridge/pkg/domain-errors"
)

type FileProviderSuite struct {
	suite.Suite
	root     string
	now      time.Time
	provider *Provider
	ctx      context.Context
}

func TestFileProviderSuite(t *testing.T) {
	suite.Run(t, new(FileProviderSuite))
}

func (s *FileProviderSuite) SetupTest() {
	s.root = s.T().TempDir()
	s.now = time.Now()
	s.ctx = context.Background()
	p, err := New(s.root, WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
	s.provider = p
}

func (s *FileProviderSuite) request(id string) *models.Request {
	return &models.Request{
		AuthReqID: id,
		ClientID:  "test-client",
		LoginHint: "user@example.com",
		Scope:     "openid",
		CreatedAt: s.now,
	}
}

func (s *FileProviderSuite) writeOutbox(id string, body any) {
	dir := filepath.Join(s.root, outboxDir)
	s.Require().NoError(os.MkdirAll(dir, 0o700))
	var raw []byte
	switch v := body.(type) {
	case string:
		raw = []byte(v)
	default:
		var err error
		raw, err = json.Marshal(v)
		s.Require().NoError(err)
	}
	s.Require().NoError(os.WriteFile(filepath.Join(dir, id+".json"), raw, 0o600))
}

func (s *FileProviderSuite) TestNew() {
	s.Run("empty root is a configuration error", func() {
		_, err := New("  ")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
	})

	s.Run("directories are not created until first write", func() {
		root := filepath.Join(s.T().TempDir(), "queue")
		p, err := New(root)
		s.Require().NoError(err)

		status, err := p.AuthenticationStatus(s.ctx, "auth-1")
		s.Require().NoError(err)
		s.Equal(models.StatusPending, status.Status)
		s.NoDirExists(root)

		s.Require().NoError(p.InitiateAuthentication(s.ctx, s.request("auth-1")))
		s.DirExists(filepath.Join(root, inboxDir))
		s.DirExists(filepath.Join(root, outboxDir))
	})
}

func (s *FileProviderSuite) TestInitiateThenPoll() {
	s.Require().NoError(s.provider.InitiateAuthentication(s.ctx, s.request("auth-123")))

	status, err := s.provider.AuthenticationStatus(s.ctx, "auth-123")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, status.Status)
	s.False(status.IsComplete())

	raw, err := os.ReadFile(filepath.Join(s.root, inboxDir, "auth-123.json"))
	s.Require().NoError(err)
	var rec map[string]any
	s.Require().NoError(json.Unmarshal(raw, &rec))
	s.Equal("auth-123", rec["authReqId"])
	s.Equal("test-client", rec["clientId"])
	s.Equal("user@example.com", rec["loginHint"])
}

func (s *FileProviderSuite) TestInitiateRejectsDuplicates() {
	s.Run("pending id", func() {
		s.Require().NoError(s.provider.InitiateAuthentication(s.ctx, s.request("dup-1")))
		err := s.provider.InitiateAuthentication(s.ctx, s.request("dup-1"))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("resolved id", func() {
		s.writeOutbox("dup-2", Response{AuthReqID: "dup-2", Outcome: "denied"})
		err := s.provider.InitiateAuthentication(s.ctx, s.request("dup-2"))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *FileProviderSuite) TestInitiateValidatesID() {
	err := s.provider.InitiateAuthentication(s.ctx, s.request("../escape"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.NoFileExists(filepath.Join(s.root, "escape.json"))
}

func (s *FileProviderSuite) TestStatusFromOutbox() {
	s.Run("approval", func() {
		s.writeOutbox("auth-789", Response{AuthReqID: "auth-789", Outcome: "approved", UserID: "user-123"})

		status, err := s.provider.AuthenticationStatus(s.ctx, "auth-789")
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, status.Status)
		s.Equal("user-123", status.UserID)
		s.True(status.IsApproved())
		s.True(status.IsComplete())
	})

	s.Run("outbox takes precedence over inbox", func() {
		s.Require().NoError(s.provider.InitiateAuthentication(s.ctx, s.request("auth-both")))
		s.writeOutbox("auth-both", Response{AuthReqID: "auth-both", Outcome: "denied"})

		status, err := s.provider.AuthenticationStatus(s.ctx, "auth-both")
		s.Require().NoError(err)
		s.Equal(models.StatusDenied, status.Status)
		s.Equal("access_denied", status.ErrorCode)
	})

	s.Run("unrecognised outcome reads as error", func() {
		s.writeOutbox("auth-odd", Response{AuthReqID: "auth-odd", Outcome: "maybe"})

		status, err := s.provider.AuthenticationStatus(s.ctx, "auth-odd")
		s.Require().NoError(err)
		s.Equal(models.StatusError, status.Status)
		s.Equal("unrecognized_outcome", status.ErrorCode)
	})

	s.Run("malformed json is a delivery error", func() {
		s.writeOutbox("auth-bad", "{not json")

		_, err := s.provider.AuthenticationStatus(s.ctx, "auth-bad")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDelivery))
	})

	s.Run("terminal status is stable across reads", func() {
		s.writeOutbox("auth-stable", Response{AuthReqID: "auth-stable", Outcome: "expired"})
		for range 3 {
			status, err := s.provider.AuthenticationStatus(s.ctx, "auth-stable")
			s.Require().NoError(err)
			s.Equal(models.StatusExpired, status.Status)
		}
	})
}

func (s *FileProviderSuite) TestUnknownIDReadsPending() {
	status, err := s.provider.AuthenticationStatus(s.ctx, "never-seen")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, status.Status)
	s.Equal("never-seen", status.AuthReqID)

	exists, err := s.provider.Exists(s.ctx, "never-seen")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *FileProviderSuite) TestCancel() {
	s.Run("removes inbox record only", func() {
		s.Require().NoError(s.provider.InitiateAuthentication(s.ctx, s.request("cancel-1")))
		s.writeOutbox("cancel-2", Response{AuthReqID: "cancel-2", Outcome: "approved", UserID: "u"})

		s.Require().NoError(s.provider.CancelAuthentication(s.ctx, "cancel-1"))
		s.Require().NoError(s.provider.CancelAuthentication(s.ctx, "cancel-2"))

		s.NoFileExists(filepath.Join(s.root, inboxDir, "cancel-1.json"))
		s.FileExists(filepath.Join(s.root, outboxDir, "cancel-2.json"))
	})

	s.Run("absent id is a no-op", func() {
		s.NoError(s.provider.CancelAuthentication(s.ctx, "nothing-here"))
	})
}

func (s *FileProviderSuite) TestCleanupExpiredRequests() {
	s.Require().NoError(s.provider.InitiateAuthentication(s.ctx, s.request("old")))
	s.Require().NoError(s.provider.InitiateAuthentication(s.ctx, s.request("new")))
	s.writeOutbox("resolved", Response{AuthReqID: "resolved", Outcome: "approved", UserID: "u"})

	oldPath := filepath.Join(s.root, inboxDir, "old.json")
	newPath := filepath.Join(s.root, inboxDir, "new.json")
	outPath := filepath.Join(s.root, outboxDir, "resolved.json")
	aged := s.now.Add(-7200 * time.Second)
	s.Require().NoError(os.Chtimes(oldPath, aged, aged))
	s.Require().NoError(os.Chtimes(newPath, s.now, s.now))
	s.Require().NoError(os.Chtimes(outPath, aged, aged))

	// in-flight temp files are never counted
	tmp := filepath.Join(s.root, inboxDir, ".tmp-stale.json-123")
	s.Require().NoError(os.WriteFile(tmp, []byte("{}"), 0o600))
	s.Require().NoError(os.Chtimes(tmp, aged, aged))

	removed, err := s.provider.CleanupExpiredRequests(s.ctx, 3600*time.Second)
	s.Require().NoError(err)
	s.Equal(1, removed)
	s.NoFileExists(oldPath)
	s.FileExists(newPath)
	s.FileExists(outPath)
	s.FileExists(tmp)
}

func (s *FileProviderSuite) TestWriteResponse() {
	s.Run("first decision wins", func() {
		first := Response{AuthReqID: "wr-1", Outcome: "approved", UserID: "alice"}
		second := Response{AuthReqID: "wr-1", Outcome: "denied"}

		s.Require().NoError(s.provider.WriteResponse(s.ctx, first))
		err := s.provider.WriteResponse(s.ctx, second)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		status, err := s.provider.AuthenticationStatus(s.ctx, "wr-1")
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, status.Status)
		s.Equal("alice", status.UserID)
	})

	s.Run("rejects unknown outcome", func() {
		err := s.provider.WriteResponse(s.ctx, Response{AuthReqID: "wr-2", Outcome: "perhaps"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("leaves no temp files behind", func() {
		entries, err := os.ReadDir(filepath.Join(s.root, outboxDir))
		s.Require().NoError(err)
		for _, e := range entries {
			s.NotContains(e.Name(), ".tmp-")
		}
	})
}

func (s *FileProviderSuite) TestSupportedDeliveryModes() {
	s.Equal([]models.DeliveryMode{models.DeliveryModePoll}, s.provider.SupportedDeliveryModes())
}

func TestConcurrentWritersOneDecision(t *testing.T) {
	p, err := New(t.TempDir())
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome := "approved"
			if i%2 == 1 {
				outcome = "denied"
			}
			results <- p.WriteResponse(context.Background(), Response{AuthReqID: "race", Outcome: outcome, UserID: "u"})
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	}
	assert.Equal(t, 1, succeeded)
}

func TestPendingRequest(t *testing.T) {
	p, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = p.PendingRequest(ctx, "missing")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, p.InitiateAuthentication(ctx, &models.Request{
		AuthReqID:       "pr-1",
		ClientID:        "rp",
		BindingMessage:  "code 42",
		RequestedExpiry: 120,
		CreatedAt:       created,
	}))
	got, err := p.PendingRequest(ctx, "pr-1")
	require.NoError(t, err)
	assert.Equal(t, "rp", got.ClientID)
	assert.Equal(t, "code 42", got.BindingMessage)
	assert.Equal(t, 120, got.RequestedExpiry)
	assert.True(t, created.Equal(got.CreatedAt))
}
