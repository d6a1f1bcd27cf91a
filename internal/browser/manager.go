// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/humanoid/internal/config"
)

const shutdownGracePeriod = 15 * time.Second

// Manager owns the browser process and hands out tab sessions. The process
// is launched lazily on the first session request, so building a Manager is
// free when no browsing ever happens.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	sessions map[string]*Session
	mu       sync.RWMutex
	// wg tracks live sessions so Shutdown can wait for them to drain.
	wg sync.WaitGroup

	initOnce sync.Once
	initErr  error
}

// NewManager creates a new browser manager. Initialization is deferred
// until the first session is requested.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	m := &Manager{
		logger:   logger.Named("browser_manager"),
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
	m.logger.Debug("Browser manager created (initialization deferred).")
	return m
}

// initialize launches the browser process under an allocator derived from
// ctx. The process dies with ctx, so passing the CLI's signal context gives
// Ctrl-C semantics for free.
func (m *Manager) initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.logger.Info("Launching browser...", zap.Bool("headless", m.cfg.Browser.Headless))

		allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(m.cfg.Browser)...)

		var ctxOpts []chromedp.ContextOption
		if m.cfg.Browser.Debug {
			ctxOpts = append(ctxOpts, chromedp.WithDebugf(m.logger.Sugar().Debugf))
		}
		browserCtx, browserCancel := chromedp.NewContext(allocCtx, ctxOpts...)

		// Running an empty task list forces the process to start now, so a
		// broken binary or flag set fails here rather than mid-session.
		if err := chromedp.Run(browserCtx); err != nil {
			browserCancel()
			allocCancel()
			m.initErr = fmt.Errorf("browser: failed to launch instance: %w", err)
			return
		}

		m.allocCancel = allocCancel
		m.browserCtx = browserCtx
		m.browserCancel = browserCancel

		if product, err := browserVersion(browserCtx); err == nil {
			m.logger.Info("Browser manager initialized successfully.", zap.String("browser_version", product))
		} else {
			m.logger.Info("Browser manager initialized successfully.")
		}
	})
	return m.initErr
}

// browserVersion asks the running instance for its product string.
func browserVersion(ctx context.Context) (string, error) {
	var product string
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		_, p, _, _, _, err := cdpbrowser.GetVersion().Do(c)
		product = p
		return err
	}))
	return product, err
}

// allocatorOptions builds the exec allocator flag set from configuration.
// Defaults aim at container stability; user args are merged on top.
func allocatorOptions(bc config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(bc.ViewportWidth, bc.ViewportHeight),
		// DefaultExecAllocatorOptions forces headless; honor the config.
		chromedp.Flag("headless", bc.Headless),
	)
	for _, arg := range bc.Args {
		name, value := splitArg(arg)
		if name == "" {
			continue
		}
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// splitArg converts a raw command-line argument ("--proxy-server=host" or
// "--disable-extensions") into a chromedp flag name/value pair.
func splitArg(arg string) (string, interface{}) {
	trimmed := strings.TrimLeft(arg, "-")
	if trimmed == "" {
		return "", nil
	}
	if name, value, found := strings.Cut(trimmed, "="); found {
		return name, value
	}
	return trimmed, true
}

// Start launches the browser immediately instead of on first session. Callers
// that later create sessions under short-lived contexts should call Start with
// their long-lived one, since the browser process is parented to it.
func (m *Manager) Start(ctx context.Context) error {
	return m.initialize(ctx)
}

// NewSession creates a new tab in the shared browser instance, wired with
// its own pointer engine.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	if err := m.initialize(ctx); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)

	session, err := NewSession(tabCtx, tabCancel, m.cfg, m.logger, nil)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("browser: failed to create session: %w", err)
	}

	m.wg.Add(1)
	session.onClose = func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.sessions, session.ID())
		m.wg.Done()
		m.logger.Debug("Session removed from manager.", zap.String("session_id", session.ID()))
	}

	if err := session.Initialize(ctx); err != nil {
		// Cleanup must not depend on ctx, which may be what failed.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		session.Close(cleanupCtx)
		return nil, fmt.Errorf("browser: failed to initialize session: %w", err)
	}

	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	m.logger.Info("New session created.", zap.String("session_id", session.ID()))
	return session, nil
}

// Shutdown gracefully closes all sessions and the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down browser manager.")

	if m.browserCtx == nil {
		m.logger.Debug("Manager not fully initialized, skipping full shutdown sequence.")
		return nil
	}

	m.mu.RLock()
	sessionsToClose := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessionsToClose = append(sessionsToClose, s)
	}
	m.mu.RUnlock()

	for _, s := range sessionsToClose {
		go func(s *Session) {
			if err := s.Close(ctx); err != nil {
				m.logger.Warn("Error during session close in shutdown.", zap.String("session_id", s.ID()), zap.Error(err))
			}
		}(s)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All sessions closed gracefully.")
	case <-ctx.Done():
		m.logger.Warn("Timeout waiting for sessions to close. Proceeding with forceful shutdown.", zap.Error(ctx.Err()))
	}

	// Graceful browser close, bounded by its own grace period. A fresh
	// context is deliberate: ctx may already be dead.
	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cleanupCancel()

	var shutdownErr error
	closed := make(chan error, 1)
	go func() {
		closed <- chromedp.Cancel(m.browserCtx)
	}()

	select {
	case err := <-closed:
		if err != nil {
			m.logger.Error("Failed to close browser instance.", zap.Error(err))
			shutdownErr = fmt.Errorf("browser: failed to close instance: %w", err)
		}
	case <-cleanupCtx.Done():
		m.logger.Warn("Timeout during graceful browser close; cancelling directly.")
		m.browserCancel()
	}

	m.allocCancel()
	m.logger.Info("Browser manager shutdown complete.")
	return shutdownErr
}
