// internal/humanoid/geometry.go
package humanoid

import (
	"context"
	"fmt"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// viewportJS reads viewport metrics and document bounds in one round trip.
const viewportJS = `(() => {
	const de = document.documentElement;
	const body = document.body;
	return {
		width: window.innerWidth,
		height: window.innerHeight,
		scrollX: window.scrollX,
		scrollY: window.scrollY,
		docWidth: Math.max(de.scrollWidth, body ? body.scrollWidth : 0, window.innerWidth),
		docHeight: Math.max(de.scrollHeight, body ? body.scrollHeight : 0, window.innerHeight)
	};
})()`

// regionJSTemplate resolves a selector to its bounding client rect.
// Returns null when the node does not exist.
const regionJSTemplate = `((sel) => {
	const node = document.querySelector(sel);
	if (!node) return null;
	const rect = node.getBoundingClientRect();
	return { x: rect.left, y: rect.top, width: rect.width, height: rect.height };
})(%s)`

// activatableJSTemplate checks whether a target would actually receive a
// pointer event. Interior points are sampled against elementFromPoint; a
// majority must resolve to the target or a descendant. Points outside the
// viewport cannot be sampled and are excluded; if nothing is sampleable the
// rendered-state checks decide alone (the scroll phase brings the target in
// before any press happens).
const activatableJSTemplate = `((sel) => {
	const node = document.querySelector(sel);
	if (!node) return { found: false };
	const rect = node.getBoundingClientRect();
	const style = window.getComputedStyle(node);
	const rendered = rect.width > 0 && rect.height > 0 &&
		style.display !== 'none' && style.visibility !== 'hidden' &&
		style.pointerEvents !== 'none' && style.opacity !== '0';
	const disabled = !!node.disabled;
	if (!rendered || disabled) {
		return { found: true, rendered: rendered, disabled: disabled, hits: 0, samples: 0 };
	}
	const fractions = [
		[0.50, 0.50],
		[0.50, 0.15], [0.85, 0.50], [0.50, 0.85], [0.15, 0.50],
		[0.15, 0.15], [0.85, 0.15], [0.85, 0.85], [0.15, 0.85]
	];
	let hits = 0, samples = 0;
	for (const [fx, fy] of fractions) {
		const px = rect.left + rect.width * fx;
		const py = rect.top + rect.height * fy;
		if (px < 0 || py < 0 || px >= window.innerWidth || py >= window.innerHeight) continue;
		samples++;
		const top = document.elementFromPoint(px, py);
		if (top && (top === node || node.contains(top))) hits++;
	}
	return { found: true, rendered: true, disabled: false, hits: hits, samples: samples };
})(%s)`

type viewportResult struct {
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	ScrollX   float64 `json:"scrollX"`
	ScrollY   float64 `json:"scrollY"`
	DocWidth  float64 `json:"docWidth"`
	DocHeight float64 `json:"docHeight"`
}

type regionResult struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type activatableResult struct {
	Found    bool `json:"found"`
	Rendered bool `json:"rendered"`
	Disabled bool `json:"disabled"`
	Hits     int  `json:"hits"`
	Samples  int  `json:"samples"`
}

// geometryProvider answers spatial questions about the page: the viewport,
// target bounding boxes, visibility, and activatability. Viewport reads are
// cached with a short TTL; navigation and resize invalidate the cache from
// the session's event listener, so the cache has its own lock rather than
// sharing the engine mutex.
type geometryProvider struct {
	exec   Executor
	logger *zap.Logger

	ttl       time.Duration
	retries   int
	retryBase time.Duration
	fallback  Viewport

	mu        sync.Mutex
	cached    Viewport
	fetchedAt time.Time
	haveCache bool
}

func newGeometryProvider(cfg Config, exec Executor, logger *zap.Logger) *geometryProvider {
	return &geometryProvider{
		exec:      exec,
		logger:    logger,
		ttl:       cfg.ViewportCacheTTL,
		retries:   cfg.GeometryRetries,
		retryBase: cfg.GeometryRetryBase,
		fallback:  cfg.FallbackViewport,
	}
}

// Invalidate drops the cached viewport. Safe to call from listener
// goroutines while an engine operation is in flight.
func (g *geometryProvider) Invalidate() {
	g.mu.Lock()
	g.haveCache = false
	g.mu.Unlock()
}

// Viewport returns the current viewport, served from cache while fresh.
// A failed driver read degrades to the fixed fallback viewport instead of
// failing the whole operation; the fallback is never cached.
func (g *geometryProvider) Viewport(ctx context.Context) Viewport {
	g.mu.Lock()
	if g.haveCache && time.Since(g.fetchedAt) < g.ttl {
		vp := g.cached
		g.mu.Unlock()
		return vp
	}
	g.mu.Unlock()

	raw, err := g.exec.EvaluateInPage(ctx, viewportJS)
	if err != nil {
		g.logger.Warn("Viewport metrics fetch failed; using fallback viewport.",
			zap.Float64("fallback_width", g.fallback.Width),
			zap.Float64("fallback_height", g.fallback.Height),
			zap.Error(err))
		return g.fallback
	}

	var res viewportResult
	if err := json.Unmarshal(raw, &res); err != nil || res.Width <= 0 || res.Height <= 0 {
		g.logger.Warn("Viewport metrics unreadable; using fallback viewport.", zap.Error(err))
		return g.fallback
	}

	vp := Viewport{
		Width:          res.Width,
		Height:         res.Height,
		ScrollX:        res.ScrollX,
		ScrollY:        res.ScrollY,
		DocumentWidth:  res.DocWidth,
		DocumentHeight: res.DocHeight,
	}

	g.mu.Lock()
	g.cached = vp
	g.fetchedAt = time.Now()
	g.haveCache = true
	g.mu.Unlock()
	return vp
}

// TargetRegion resolves a selector to its bounding box, retrying transient
// failures with exponential backoff before giving up.
func (g *geometryProvider) TargetRegion(ctx context.Context, selector string) (TargetRegion, error) {
	var lastErr error
	attempts := g.retries
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return TargetRegion{}, ctxErr(err)
		}
		if i > 0 {
			backoff := g.retryBase * time.Duration(1<<(i-1))
			if err := g.exec.Sleep(ctx, backoff); err != nil {
				return TargetRegion{}, ctxErr(err)
			}
		}

		region, err := g.fetchRegion(ctx, selector)
		if err != nil {
			lastErr = err
			g.logger.Debug("Target region fetch failed; retrying.",
				zap.String("selector", selector), zap.Int("attempt", i+1), zap.Error(err))
			continue
		}
		if region.IsZero() {
			lastErr = fmt.Errorf("element '%s' has no usable area", selector)
			continue
		}
		return region, nil
	}

	return TargetRegion{}, fmt.Errorf("%w: '%s': %w", ErrGeometryUnavailable, selector, lastErr)
}

func (g *geometryProvider) fetchRegion(ctx context.Context, selector string) (TargetRegion, error) {
	script := fmt.Sprintf(regionJSTemplate, jsonEncode(selector))
	raw, err := g.exec.EvaluateInPage(ctx, script)
	if err != nil {
		return TargetRegion{}, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return TargetRegion{}, fmt.Errorf("element '%s' not found", selector)
	}

	var res regionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return TargetRegion{}, fmt.Errorf("unreadable region payload for '%s': %w", selector, err)
	}
	return TargetRegion{X: res.X, Y: res.Y, Width: res.Width, Height: res.Height}, nil
}

// IsActivatable reports whether the target exists, is rendered, and would
// receive pointer events at a majority of its sampled interior points.
func (g *geometryProvider) IsActivatable(ctx context.Context, selector string) (bool, error) {
	script := fmt.Sprintf(activatableJSTemplate, jsonEncode(selector))
	raw, err := g.exec.EvaluateInPage(ctx, script)
	if err != nil {
		return false, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}

	var res activatableResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return false, fmt.Errorf("unreadable activatable payload for '%s': %w", selector, err)
	}
	if !res.Found || !res.Rendered || res.Disabled {
		return false, nil
	}
	if res.Samples == 0 {
		// Fully off-viewport but rendered; scrolling happens before a press.
		return true, nil
	}
	return res.Hits*2 >= res.Samples, nil
}

// isInsideVisibleArea reports whether the region sits fully inside the
// viewport inset by buffer on every side.
func isInsideVisibleArea(region TargetRegion, vp Viewport, buffer float64) bool {
	return region.X >= buffer &&
		region.Y >= buffer &&
		region.X+region.Width <= vp.Width-buffer &&
		region.Y+region.Height <= vp.Height-buffer
}
