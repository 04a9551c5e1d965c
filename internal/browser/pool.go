// Package browser provides scoped acquisition of headless-browser tab
// contexts over one shared Chrome process, mirroring the
// allocator/context lifecycle the logger's sibling chromedp consumer
// used for a single ad-hoc scrape, generalized here into a long-lived,
// reusable pool.
package browser

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/chromedp/chromedp"

	"github.com/conectasei/core/internal/apperrors"
	"github.com/conectasei/core/internal/logger"
	"github.com/conectasei/core/internal/models"
	"github.com/conectasei/core/internal/scraper"
)

// Pool owns one OS-level headless Chrome process (via a single
// chromedp ExecAllocator context) and hands out Session values backed
// by independent tab contexts within it.
type Pool struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	log      *logger.Logger
}

// New starts the shared headless Chrome process. Call Close to shut
// it down; every Session acquired from this pool becomes invalid once
// that happens.
func New(ctx context.Context, log *logger.Logger) *Pool {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	return &Pool{allocCtx: allocCtx, cancel: cancel, log: log}
}

// Close tears down the underlying Chrome process. Any Session acquired
// from this pool must be released first.
func (p *Pool) Close() {
	p.cancel()
}

// Session is one worker's exclusive browser tab. Not safe for
// concurrent use — each worker in a bounded fan-out holds its own.
type Session struct {
	Ctx context.Context

	cancelTab  context.CancelFunc
	downloadDir string
	once       sync.Once
}

// Acquire opens a new tab context, points its downloads at a fresh
// scoped temporary directory, and logs the tenant in via the given
// plugin. On any failure the tab and temp directory are cleaned up
// before returning.
func (p *Pool) Acquire(ctx context.Context, plugin scraper.Plugin, creds models.Credentials) (*Session, error) {
	tabCtx, cancelTab := chromedp.NewContext(p.allocCtx)

	dir, err := os.MkdirTemp("", "conectasei-session-*")
	if err != nil {
		cancelTab()
		return nil, apperrors.NewInternalError(fmt.Errorf("create session download dir: %w", err))
	}

	sessionCtx := scraper.WithDownloadDir(tabCtx, dir)
	sess := &Session{Ctx: sessionCtx, cancelTab: cancelTab, downloadDir: dir}

	if err := chromedp.Run(sessionCtx); err != nil {
		sess.Release()
		return nil, apperrors.NewNavigationError(err, "open browser tab")
	}

	if err := plugin.Login(sessionCtx, creds); err != nil {
		sess.Release()
		return nil, err
	}

	return sess, nil
}

// Release cancels the tab context and removes its scoped download
// directory. Idempotent and safe to call from a deferred recover path
// after a worker panic.
func (s *Session) Release() {
	s.once.Do(func() {
		if s.cancelTab != nil {
			s.cancelTab()
		}
		if s.downloadDir != "" {
			_ = os.RemoveAll(s.downloadDir)
		}
	})
}

// DownloadDir returns the scoped temporary directory this session's
// downloads land in.
func (s *Session) DownloadDir() string {
	return s.downloadDir
}
