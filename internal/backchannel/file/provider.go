// Package file implements the backchannel provider as a durable file queue.
//
// Layout under the configured root:
//
//	inbox/{authReqId}.json   pending requests, written by InitiateAuthentication
//	outbox/{authReqId}.json  decisions, written by an external approver
//
// Every write is a temp-file-then-rename so concurrent readers in other
// processes never see a partial record. Mutations by this component
// (initiate, cancel, cleanup) are serialized across processes with a lock file
// in the root. Outbox records are never deleted by this component.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"trustbridge/internal/backchannel"
	"trustbridge/internal/backchannel/models"
	dErrors "trustbridge/pkg/domain-errors"
	"trustbridge/pkg/fileutils"
)

const (
	inboxDir  = "inbox"
	outboxDir = "outbox"
	lockName  = ".queue.lock"

	lockTimeout       = time.Second
	lockRetryInterval = 50 * time.Millisecond
	filePerm          = 0o600
	dirPerm           = 0o700
)

// Provider is the file-queue backchannel backend.
type Provider struct {
	root    string
	clock   func() time.Time
	logger  *slog.Logger
	metrics *backchannel.Metrics

	dirsMu    sync.Mutex
	dirsReady bool
}

type Option func(*Provider)

func WithClock(clock func() time.Time) Option {
	return func(p *Provider) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *backchannel.Metrics) Option {
	return func(p *Provider) {
		p.metrics = m
	}
}

// New creates a provider rooted at root. Directories are created on first write.
func New(root string, opts ...Option) (*Provider, error) {
	if strings.TrimSpace(root) == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "file backchannel root directory is required")
	}
	p := &Provider{
		root:   filepath.Clean(root),
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) inboxPath(id string) string {
	return filepath.Join(p.root, inboxDir, id+".json")
}

func (p *Provider) outboxPath(id string) string {
	return filepath.Join(p.root, outboxDir, id+".json")
}

func (p *Provider) ensureDirs() error {
	p.dirsMu.Lock()
	defer p.dirsMu.Unlock()
	if p.dirsReady {
		return nil
	}
	for _, dir := range []string{inboxDir, outboxDir} {
		if err := os.MkdirAll(filepath.Join(p.root, dir), dirPerm); err != nil {
			return fmt.Errorf("create %s directory: %w", dir, err)
		}
	}
	p.dirsReady = true
	return nil
}

// withQueueLock runs fn while holding the cross-process queue lock.
func (p *Provider) withQueueLock(ctx context.Context, op string, fn func() error) error {
	if err := p.ensureDirs(); err != nil {
		p.metrics.IncFailure(backchannel.KindFile, op)
		return dErrors.Wrap(err, dErrors.CodeDelivery, "file queue unavailable")
	}
	lock := flock.New(filepath.Join(p.root, lockName))
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil || !locked {
		p.metrics.IncFailure(backchannel.KindFile, op)
		if err == nil {
			err = fmt.Errorf("timeout after %v", lockTimeout)
		}
		return dErrors.Wrap(err, dErrors.CodeDelivery, "could not acquire file queue lock")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			p.logger.WarnContext(ctx, "failed to release file queue lock", "error", err)
		}
	}()
	return fn()
}

// InitiateAuthentication writes the inbox record.
func (p *Provider) InitiateAuthentication(ctx context.Context, req *models.Request) error {
	if req == nil {
		return dErrors.New(dErrors.CodeValidation, "request is required")
	}
	if err := models.ValidateAuthReqID(req.AuthReqID); err != nil {
		return err
	}
	data, err := json.Marshal(toInboxRecord(req))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode inbox record")
	}
	err = p.withQueueLock(ctx, "initiate", func() error {
		exists, err := p.exists(req.AuthReqID)
		if err != nil {
			return err
		}
		if exists {
			return dErrors.New(dErrors.CodeConflict, "auth_req_id already registered")
		}
		if err := fileutils.AtomicWriteFile(p.inboxPath(req.AuthReqID), data, filePerm); err != nil {
			p.metrics.IncFailure(backchannel.KindFile, "initiate")
			return dErrors.Wrap(err, dErrors.CodeDelivery, "write inbox record")
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.metrics.IncInitiated(backchannel.KindFile)
	p.logger.InfoContext(ctx, "backchannel request queued",
		"auth_req_id", req.AuthReqID,
		"client_id", req.ClientID,
	)
	return nil
}

// AuthenticationStatus checks the outbox first, then the inbox. Ids with no
// record at all read as PENDING.
func (p *Provider) AuthenticationStatus(ctx context.Context, authReqID string) (models.AuthStatus, error) {
	if err := models.ValidateAuthReqID(authReqID); err != nil {
		return models.AuthStatus{}, err
	}
	outPath := p.outboxPath(authReqID)
	raw, err := os.ReadFile(outPath)
	switch {
	case err == nil:
		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			p.metrics.IncFailure(backchannel.KindFile, "status")
			return models.AuthStatus{}, dErrors.Wrap(err, dErrors.CodeDelivery, "malformed outbox record")
		}
		return resp.toStatus(authReqID, modTime(outPath, p.clock())), nil
	case !errors.Is(err, fs.ErrNotExist):
		p.metrics.IncFailure(backchannel.KindFile, "status")
		return models.AuthStatus{}, dErrors.Wrap(err, dErrors.CodeDelivery, "read outbox record")
	}

	info, err := os.Stat(p.inboxPath(authReqID))
	switch {
	case err == nil:
		return models.Pending(authReqID, info.ModTime()), nil
	case errors.Is(err, fs.ErrNotExist):
		p.logger.DebugContext(ctx, "no record for auth_req_id, reporting pending", "auth_req_id", authReqID)
		return models.Pending(authReqID, p.clock()), nil
	default:
		p.metrics.IncFailure(backchannel.KindFile, "status")
		return models.AuthStatus{}, dErrors.Wrap(err, dErrors.CodeDelivery, "stat inbox record")
	}
}

// PendingRequest reads back the inbox record of a pending attempt.
func (p *Provider) PendingRequest(_ context.Context, authReqID string) (*models.Request, error) {
	if err := models.ValidateAuthReqID(authReqID); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p.inboxPath(authReqID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no pending request")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeDelivery, "read inbox record")
	}
	var rec inboxRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDelivery, "malformed inbox record")
	}
	return rec.toModel(), nil
}

// CancelAuthentication deletes the inbox record. Outbox records are left alone.
func (p *Provider) CancelAuthentication(ctx context.Context, authReqID string) error {
	if err := models.ValidateAuthReqID(authReqID); err != nil {
		return err
	}
	removed := false
	err := p.withQueueLock(ctx, "cancel", func() error {
		err := os.Remove(p.inboxPath(authReqID))
		switch {
		case err == nil:
			removed = true
			return nil
		case errors.Is(err, fs.ErrNotExist):
			return nil
		default:
			p.metrics.IncFailure(backchannel.KindFile, "cancel")
			return dErrors.Wrap(err, dErrors.CodeDelivery, "remove inbox record")
		}
	})
	if err != nil {
		return err
	}
	if removed {
		p.metrics.IncCancelled(backchannel.KindFile)
	}
	return nil
}

// CleanupExpiredRequests deletes inbox records whose modification time is older
// than maxAge. It is best effort: an entry that disappears mid-scan is skipped.
func (p *Provider) CleanupExpiredRequests(ctx context.Context, maxAge time.Duration) (int, error) {
	removed := 0
	err := p.withQueueLock(ctx, "cleanup", func() error {
		entries, err := os.ReadDir(filepath.Join(p.root, inboxDir))
		if err != nil {
			p.metrics.IncFailure(backchannel.KindFile, "cleanup")
			return dErrors.Wrap(err, dErrors.CodeDelivery, "list inbox")
		}
		cutoff := p.clock().Add(-maxAge)
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || strings.HasPrefix(name, ".") || fileutils.IsTempFile(name) || filepath.Ext(name) != ".json" {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(p.root, inboxDir, name)); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					p.logger.WarnContext(ctx, "failed to remove expired inbox record", "file", name, "error", err)
				}
				continue
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, err
	}
	p.metrics.AddCleaned(backchannel.KindFile, removed)
	return removed, nil
}

// SupportedDeliveryModes reports poll only: completion is observed by reading
// the outbox.
func (p *Provider) SupportedDeliveryModes() []models.DeliveryMode {
	return []models.DeliveryMode{models.DeliveryModePoll}
}

// Exists reports whether an inbox or outbox record exists for authReqID.
func (p *Provider) Exists(_ context.Context, authReqID string) (bool, error) {
	if err := models.ValidateAuthReqID(authReqID); err != nil {
		return false, err
	}
	return p.exists(authReqID)
}

func (p *Provider) exists(authReqID string) (bool, error) {
	for _, path := range []string{p.outboxPath(authReqID), p.inboxPath(authReqID)} {
		_, err := os.Stat(path)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return false, dErrors.Wrap(err, dErrors.CodeDelivery, "stat queue record")
		}
	}
	return false, nil
}

// WriteResponse publishes a decision into the outbox, as an external approver
// would. The record is published with a hard link so an existing decision is
// never replaced.
func (p *Provider) WriteResponse(ctx context.Context, resp Response) error {
	if err := models.ValidateAuthReqID(resp.AuthReqID); err != nil {
		return err
	}
	if _, ok := models.ParseOutcome(resp.Outcome); !ok {
		return dErrors.New(dErrors.CodeValidation, "outcome must be approved, denied, expired or error")
	}
	if err := p.ensureDirs(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeDelivery, "file queue unavailable")
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode outbox record")
	}
	target := p.outboxPath(resp.AuthReqID)
	tmp, err := fileutils.WriteTemp(filepath.Dir(target), resp.AuthReqID, data, filePerm)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeDelivery, "write outbox record")
	}
	defer func() { _ = os.Remove(tmp) }()

	if err := os.Link(tmp, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return dErrors.New(dErrors.CodeConflict, "decision already recorded")
		}
		return dErrors.Wrap(err, dErrors.CodeDelivery, "publish outbox record")
	}
	if status, ok := models.ParseOutcome(resp.Outcome); ok {
		p.metrics.IncResolved(backchannel.KindFile, status)
	}
	p.logger.InfoContext(ctx, "backchannel decision recorded",
		"auth_req_id", resp.AuthReqID,
		"outcome", resp.Outcome,
	)
	return nil
}

func modTime(path string, fallback time.Time) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return fallback
	}
	return info.ModTime()
}

var _ backchannel.Provider = (*Provider)(nil)
