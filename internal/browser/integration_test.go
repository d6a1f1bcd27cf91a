// internal/browser/integration_test.go
package browser_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/humanoid/internal/browser"
	"github.com/xkilldash9x/humanoid/internal/config"
	"github.com/xkilldash9x/humanoid/internal/humanoid"
)

// browserBinaries are the executables chromedp knows how to launch.
var browserBinaries = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
}

// skipWithoutBrowser skips integration tests on machines without a local
// Chrome or Chromium install.
func skipWithoutBrowser(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}
	for _, bin := range browserBinaries {
		if _, err := exec.LookPath(bin); err == nil {
			return
		}
	}
	t.Skip("no Chrome/Chromium binary found in PATH")
}

// testFixture holds the environment for browser integration tests.
type testFixture struct {
	Manager *browser.Manager
	Config  *config.Config
}

// setupBrowserManager starts a manager tuned for fast, deterministic test
// runs and registers its teardown.
func setupBrowserManager(t *testing.T) *testFixture {
	t.Helper()

	cfg := config.NewDefaultConfig()
	cfg.Browser.PostLoadWait = 200 * time.Millisecond // Faster waits for tests.
	cfg.Browser.Humanoid.Seed = 1337

	mgr := browser.NewManager(cfg, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := mgr.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Failed to launch browser. Ensure Chrome/Chromium is installed: %v", err)
	}

	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := mgr.Shutdown(shutdownCtx); err != nil {
			t.Logf("Error during browser manager shutdown: %v", err)
		}
		cancel()
	})

	return &testFixture{Manager: mgr, Config: cfg}
}

// initializeSession creates a new tab and registers its cleanup.
func (f *testFixture) initializeSession(t *testing.T, ctx context.Context) *browser.Session {
	t.Helper()

	session, err := f.Manager.NewSession(ctx)
	require.NoError(t, err)

	t.Cleanup(func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := session.Close(closeCtx); err != nil {
			t.Logf("Error closing session %s: %v", session.ID(), err)
		}
	})
	return session
}

// createTestServer starts a local HTTP server for the session to drive.
func createTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// targetPageHTML renders one large activation zone so the pointer pipeline
// has an easy, deterministic target.
const targetPageHTML = `<!DOCTYPE html>
<html>
<head><style>
  body { margin: 0; }
  #target {
    position: absolute;
    left: 20%; top: 30%; width: 60%; height: 40%;
    display: block; background: #ddd;
  }
</style></head>
<body>
  <a id="target" href="#clicked">click zone</a>
</body>
</html>`

func TestSessionActivatesLocalPage(t *testing.T) {
	skipWithoutBrowser(t)

	server := createTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(targetPageHTML))
	}))

	fixture := setupBrowserManager(t)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	session := fixture.initializeSession(t, ctx)

	require.NoError(t, session.Navigate(ctx, server.URL))
	require.NoError(t, session.MoveRandomly(ctx, humanoid.MovementRequest{}))

	result, err := session.Activate(ctx, "#target")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "#target", result.Selector)
	assert.Greater(t, result.HoldDuration, time.Duration(0))

	stats := session.GetStatistics()
	assert.Equal(t, 1, stats.TotalActivations)
	assert.GreaterOrEqual(t, stats.TotalMoves, 1)
	assert.Positive(t, stats.TotalSamples)
}

func TestSessionsAreIsolatedTabs(t *testing.T) {
	skipWithoutBrowser(t)

	server := createTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(targetPageHTML))
	}))

	fixture := setupBrowserManager(t)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	first := fixture.initializeSession(t, ctx)
	second := fixture.initializeSession(t, ctx)
	assert.NotEqual(t, first.ID(), second.ID())

	require.NoError(t, first.Navigate(ctx, server.URL))
	require.NoError(t, second.Navigate(ctx, server.URL))

	// Closing one tab must not take the other one down.
	require.NoError(t, first.Close(ctx))
	assert.NoError(t, second.MoveRandomly(ctx, humanoid.MovementRequest{}))
}