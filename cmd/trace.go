package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/humanoid/internal/browser"
	"github.com/xkilldash9x/humanoid/internal/config"
	"github.com/xkilldash9x/humanoid/internal/humanoid"
	"github.com/xkilldash9x/humanoid/internal/observability"
)

// shutdownTimeout bounds the browser teardown after a trace run finishes.
const shutdownTimeout = 30 * time.Second

// traceResult is the per-page outcome reported at the end of a run.
type traceResult struct {
	URL         string              `json:"url"`
	Activations int                 `json:"activations"`
	Aborts      int                 `json:"aborts"`
	Elapsed     time.Duration       `json:"elapsed"`
	Statistics  humanoid.Statistics `json:"statistics"`
}

// newTraceCmd creates and configures the `trace` command.
func newTraceCmd() *cobra.Command {
	traceCmd := &cobra.Command{
		Use:   "trace [urls...]",
		Short: "Drives humanized pointer sessions against the specified pages",
		Long: `Trace opens each URL in its own browser tab, performs a few warm-up
pointer movements, then locates and activates the target element with the
full humanized pipeline (approach, settle, press, release). Per-page motion
statistics are printed when the run completes.`,
		Args: cobra.MinimumNArgs(1),
		// PreRunE finalizes configuration before the main logic in RunE.
		PreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := viperFromCommand(cmd)
			if err != nil {
				return err
			}
			// Bind flags to their viper keys so command-line values override
			// the config file and environment with the right precedence.
			if err := v.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := v.BindPFlag("browser.humanoid.seed", cmd.Flags().Lookup("seed")); err != nil {
				return err
			}
			// Bind all other flags that don't have a direct mapping.
			return v.BindPFlags(cmd.Flags())
		},
		RunE: runTrace,
	}

	traceCmd.Flags().StringP("selector", "s", "a", "CSS selector of the element to activate on each page")
	traceCmd.Flags().IntP("iterations", "n", 1, "Activation rounds per page.")
	traceCmd.Flags().Int("warmup", 2, "Random pointer moves before each activation.")
	traceCmd.Flags().IntP("concurrency", "j", 1, "Number of pages traced in parallel.")
	traceCmd.Flags().Duration("timeout", 90*time.Second, "Hard deadline per page (0 disables it).")
	traceCmd.Flags().Bool("json", false, "Print per-page statistics as JSON.")

	// Config override flags.
	traceCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	traceCmd.Flags().Int64("seed", 0, "Persona seed; 0 draws a fresh persona. (Overrides config/env)")

	return traceCmd
}

func runTrace(cmd *cobra.Command, args []string) error {
	// Use the context passed from main.go (signal-aware).
	ctx := cmd.Context()
	logger := observability.GetLogger()

	v, err := viperFromCommand(cmd)
	if err != nil {
		return err
	}

	// Re-read the config now that PreRunE has bound the flags, so overrides
	// like --headless land on top of file and env values.
	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Browser.Humanoid.Enabled {
		return fmt.Errorf("the humanoid engine is disabled in configuration; trace requires it")
	}

	urls := make([]string, 0, len(args))
	for _, raw := range args {
		normalized, err := normalizeTraceURL(raw)
		if err != nil {
			return err
		}
		urls = append(urls, normalized)
	}

	cfg.Trace = config.TraceConfig{
		URLs:        urls,
		Selector:    v.GetString("selector"),
		Iterations:  v.GetInt("iterations"),
		WarmupMoves: v.GetInt("warmup"),
		Concurrency: v.GetInt("concurrency"),
		Timeout:     v.GetDuration("timeout"),
		JSONStats:   v.GetBool("json"),
	}
	if cfg.Trace.Iterations < 1 {
		cfg.Trace.Iterations = 1
	}
	if cfg.Trace.Concurrency < 1 {
		cfg.Trace.Concurrency = 1
	}

	traceID := uuid.New().String()
	logger = logger.With(zap.String("trace_id", traceID))
	logger.Info("Starting trace run",
		zap.Strings("urls", cfg.Trace.URLs),
		zap.String("selector", cfg.Trace.Selector),
		zap.Int("iterations", cfg.Trace.Iterations),
		zap.Int("concurrency", cfg.Trace.Concurrency),
		zap.Bool("headless", cfg.Browser.Headless),
	)

	manager := browser.NewManager(cfg, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Error during browser manager shutdown", zap.Error(err))
		}
	}()

	// Launch under the signal context, not a per-page one, so the browser
	// process outlives individual page deadlines.
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	results := make([]traceResult, len(cfg.Trace.URLs))
	g, runCtx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Trace.Concurrency)

	for i, pageURL := range cfg.Trace.URLs {
		i, pageURL := i, pageURL
		g.Go(func() error {
			res, err := tracePage(runCtx, manager, cfg.Trace, logger, pageURL)
			if err != nil {
				return fmt.Errorf("trace of %s failed: %w", pageURL, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Trace run aborted gracefully")
			return fmt.Errorf("trace aborted by user signal")
		}
		return err
	}

	logger.Info("Trace run completed successfully")
	return writeTraceReport(cmd.OutOrStdout(), cfg.Trace, results)
}

// tracePage runs the full warm-up/activate cycle against a single URL in a
// fresh tab. Activation aborts (overlays, detached targets) are recorded and
// the remaining rounds continue; anything else fails the page.
func tracePage(ctx context.Context, manager *browser.Manager, tc config.TraceConfig, logger *zap.Logger, pageURL string) (traceResult, error) {
	pageCtx := ctx
	if tc.Timeout > 0 {
		var cancel context.CancelFunc
		pageCtx, cancel = context.WithTimeout(ctx, tc.Timeout)
		defer cancel()
	}

	session, err := manager.NewSession(pageCtx)
	if err != nil {
		return traceResult{}, fmt.Errorf("session creation failed: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := session.Close(closeCtx); err != nil {
			logger.Debug("Session close failed", zap.String("url", pageURL), zap.Error(err))
		}
	}()

	start := time.Now()
	if err := session.Navigate(pageCtx, pageURL); err != nil {
		return traceResult{}, fmt.Errorf("navigation failed: %w", err)
	}

	result := traceResult{URL: pageURL}
	for round := 0; round < tc.Iterations; round++ {
		for move := 0; move < tc.WarmupMoves; move++ {
			if err := session.MoveRandomly(pageCtx, humanoid.MovementRequest{}); err != nil {
				if pageCtx.Err() != nil {
					return traceResult{}, pageCtx.Err()
				}
				logger.Debug("Warm-up move failed", zap.String("url", pageURL), zap.Error(err))
			}
			if err := session.CognitivePause(pageCtx, 350, 120); err != nil {
				return traceResult{}, err
			}
		}

		activation, err := session.Activate(pageCtx, tc.Selector)
		if err != nil {
			if pageCtx.Err() != nil {
				return traceResult{}, pageCtx.Err()
			}
			var abortErr *humanoid.AbortError
			if errors.As(err, &abortErr) {
				// The engine bailed out mid-activation. That is a legitimate
				// outcome worth reporting, not a failure of the run.
				result.Aborts++
				logger.Warn("Activation aborted",
					zap.String("url", pageURL),
					zap.String("phase", string(abortErr.Phase)),
					zap.Error(err),
				)
				continue
			}
			return traceResult{}, fmt.Errorf("activation failed: %w", err)
		}

		result.Activations++
		logger.Debug("Activation completed",
			zap.String("url", pageURL),
			zap.Float64("click_x", activation.ClickPoint.X),
			zap.Float64("click_y", activation.ClickPoint.Y),
			zap.Duration("duration", activation.Duration),
			zap.Bool("page_changed", activation.PageChanged),
		)
	}

	result.Elapsed = time.Since(start)
	result.Statistics = session.GetStatistics()
	return result, nil
}

// normalizeTraceURL ensures the raw argument is an absolute http(s) URL,
// defaulting to https when no scheme was given.
func normalizeTraceURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("empty URL argument")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q in URL %q", parsed.Scheme, raw)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL %q has no host", raw)
	}
	return parsed.String(), nil
}

// writeTraceReport prints the collected results, either as indented JSON or
// as a short human-readable summary.
func writeTraceReport(w io.Writer, tc config.TraceConfig, results []traceResult) error {
	if tc.JSONStats {
		encoded, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode trace results: %w", err)
		}
		fmt.Fprintln(w, string(encoded))
		return nil
	}

	fmt.Fprintf(w, "\nTrace complete: %d page(s)\n", len(results))
	for _, res := range results {
		stats := res.Statistics
		fmt.Fprintf(w, "\n%s\n", res.URL)
		fmt.Fprintf(w, "  activations: %d  aborts: %d  elapsed: %s\n",
			res.Activations, res.Aborts, res.Elapsed.Round(time.Millisecond))
		fmt.Fprintf(w, "  moves: %d  scrolls: %d  samples: %d  attention: %.2f  fatigue: %.2f\n",
			stats.TotalMoves, stats.TotalScrolls, stats.TotalSamples,
			stats.AttentionSpan, stats.FatigueMultiplier)
	}
	return nil
}
