// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/humanoid/internal/config"
	"github.com/xkilldash9x/humanoid/internal/humanoid"
)

// ErrHumanoidDisabled is returned by pointer operations on a session created
// with browser.humanoid.enabled set to false.
var ErrHumanoidDisabled = fmt.Errorf("browser: humanoid engine disabled by configuration")

// Session represents one browser tab driven by a humanized pointer engine.
// Its pointer methods satisfy humanoid.Controller, so callers can hold a
// Session wherever a Controller is expected; each call is bound to both the
// tab lifetime and the caller's context.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    *config.Config

	engine *humanoid.Humanoid

	onClose func()

	mu       sync.Mutex
	isClosed bool
}

// Ensure the pointer surface stays in lockstep with the engine interface.
var _ humanoid.Controller = (*Session)(nil)

// NewSession wraps a chromedp tab context. The context must come from
// chromedp.NewContext; the target itself is created by Initialize. The
// engine and its viewport-invalidation listener are wired here, before the
// target exists, so no early navigation event can be missed.
func NewSession(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *zap.Logger, onClose func()) (*Session, error) {
	if chromedp.FromContext(ctx) == nil {
		return nil, fmt.Errorf("browser: session context is not a chromedp context")
	}

	sessionID := uuid.New().String()
	sessionLogger := logger.With(zap.String("session_id", sessionID))

	s := &Session{
		id:      sessionID,
		ctx:     ctx,
		cancel:  cancel,
		logger:  sessionLogger,
		cfg:     cfg,
		onClose: onClose,
	}

	if cfg.Browser.Humanoid.Enabled {
		exec := humanoid.NewCDPExecutor(cfg.Browser.Humanoid.MaxEventsPerSecond)
		s.engine = humanoid.New(engineConfig(cfg.Browser), sessionLogger.Named("humanoid"), exec)
		s.listenForPageChanges()
	}

	return s, nil
}

// listenForPageChanges drops the engine's cached viewport whenever the tab
// navigates or the frame is resized. The handler runs on the target's event
// goroutine and must not block; Invalidate only flips a flag under a short
// mutex.
func (s *Session) listenForPageChanges() {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		switch ev.(type) {
		case *page.EventFrameNavigated, *page.EventNavigatedWithinDocument, *page.EventFrameResized:
			s.engine.InvalidateViewport()
		}
	})
}

// Initialize creates the tab target and parks the pointer mid-viewport so
// the first real gesture starts from plausible coordinates.
func (s *Session) Initialize(ctx context.Context) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx); err != nil {
		return fmt.Errorf("browser: failed to initialize target connection: %w", err)
	}

	if s.engine != nil {
		startX := float64(s.cfg.Browser.ViewportWidth) / 2.0
		startY := float64(s.cfg.Browser.ViewportHeight) / 2.0
		if err := s.engine.MoveTo(runCtx, startX, startY, humanoid.MovementRequest{}); err != nil {
			// Non-critical; the first gesture will simply start from the
			// driver's default origin.
			s.logger.Debug("Could not set initial cursor position.", zap.Error(err))
		}
	}

	return nil
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// Context returns the tab context. It carries the CDP target and dies with
// the session.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Navigate loads a URL, waits for the document body, and lets the engine
// settle the way an operator does after a page flip.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.closed() {
		return fmt.Errorf("browser: session %s is closed", s.id)
	}

	navCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	navCtx, timeoutCancel := context.WithTimeout(navCtx, s.cfg.Browser.NavigationTimeout)
	defer timeoutCancel()

	s.logger.Info("Navigating.", zap.String("url", url))

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("browser: navigation to %s failed: %w", url, err)
	}

	if wait := s.cfg.Browser.PostLoadWait; wait > 0 {
		if s.engine != nil {
			meanMs := float64(wait.Milliseconds())
			if err := s.engine.CognitivePause(navCtx, meanMs, meanMs/4); err != nil {
				return fmt.Errorf("browser: post-load settle interrupted: %w", err)
			}
		} else if err := chromedp.Run(navCtx, chromedp.Sleep(wait)); err != nil {
			return fmt.Errorf("browser: post-load wait interrupted: %w", err)
		}
	}

	return nil
}

// -- humanoid.Controller delegation --
//
// Every pointer call runs under a context combining the tab lifetime with
// the caller's deadline.

func (s *Session) MoveTo(ctx context.Context, x, y float64, req humanoid.MovementRequest) error {
	if s.engine == nil {
		return ErrHumanoidDisabled
	}
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return s.engine.MoveTo(opCtx, x, y, req)
}

func (s *Session) MoveToTarget(ctx context.Context, selector string, req humanoid.MovementRequest) error {
	if s.engine == nil {
		return ErrHumanoidDisabled
	}
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return s.engine.MoveToTarget(opCtx, selector, req)
}

func (s *Session) MoveRandomly(ctx context.Context, req humanoid.MovementRequest) error {
	if s.engine == nil {
		return ErrHumanoidDisabled
	}
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return s.engine.MoveRandomly(opCtx, req)
}

func (s *Session) DragTo(ctx context.Context, x, y float64, req humanoid.MovementRequest) error {
	if s.engine == nil {
		return ErrHumanoidDisabled
	}
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return s.engine.DragTo(opCtx, x, y, req)
}

func (s *Session) Activate(ctx context.Context, selector string) (*humanoid.ActivationResult, error) {
	if s.engine == nil {
		return nil, ErrHumanoidDisabled
	}
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return s.engine.Activate(opCtx, selector)
}

func (s *Session) ScrollIntoView(ctx context.Context, selector string) error {
	if s.engine == nil {
		return ErrHumanoidDisabled
	}
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return s.engine.ScrollIntoView(opCtx, selector)
}

func (s *Session) CognitivePause(ctx context.Context, meanMs, stdDevMs float64) error {
	if s.engine == nil {
		return ErrHumanoidDisabled
	}
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return s.engine.CognitivePause(opCtx, meanMs, stdDevMs)
}

func (s *Session) GetStatistics() humanoid.Statistics {
	if s.engine == nil {
		return humanoid.Statistics{}
	}
	return s.engine.GetStatistics()
}

func (s *Session) Reset() {
	if s.engine != nil {
		s.engine.Reset()
	}
}

func (s *Session) InvalidateViewport() {
	if s.engine != nil {
		s.engine.InvalidateViewport()
	}
}

func (s *Session) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isClosed
}

// Close terminates the browser session, preferring a graceful tab close
// bounded by ctx. Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Cancel(s.ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Debug("Graceful tab close reported an error.", zap.Error(err))
		}
	case <-ctx.Done():
		s.logger.Warn("Timeout during graceful tab close; cancelling directly.")
	}

	// Release the context regardless of how the close went.
	if s.cancel != nil {
		s.cancel()
	}

	if s.onClose != nil {
		s.onClose()
	}

	return nil
}
