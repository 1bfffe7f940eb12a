package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/myrjola/velocoach/internal/e2etest"
	"github.com/myrjola/velocoach/internal/logging"
	"golang.org/x/sync/errgroup"
)

const (
	scenarioTimeout         = 30 * time.Second
	maxConcurrentOperations = 20
	successRateThreshold    = 95.0
	minArgsCount            = 2
	percentageMultiplier    = 100
	defaultVisitors         = 50
)

// answers walks the questionnaire up to the equipment step. Submitting is left out so that the load test does
// not spend AI credits or the daily plan quota.
//
//nolint:gochecknoglobals // static scenario data.
var answers = []url.Values{
	{"step": {"goal"}, "goal": {"Gran Fondo"}, "action": {"next"}},
	{"step": {"level"}, "level": {"Intermediate"}, "action": {"next"}},
	{"step": {"schedule"}, "days": {"Di", "Do", "Sa", "So"}, "action": {"next"}},
	{"step": {"metrics"}, "knowledge": {"ftp"}, "ftp": {"240"}, "action": {"next"}},
	{"step": {"details"}, "age": {"42"}, "weight": {"78"}, "gender": {"male"}, "action": {"next"}},
	{"step": {"equipment"}, "equipment": {"Power Meter"}, "action": {"back"}},
}

// VisitorScenario is an anonymous visitor who looks at the sample plan and fills in the questionnaire.
func VisitorScenario(ctx context.Context, client *e2etest.Client) error {
	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		return fmt.Errorf("get landing page: %w", err)
	}
	if _, err = client.GetDoc(ctx, "/plans/GEAR?week=2"); err != nil {
		return fmt.Errorf("get sample plan: %w", err)
	}
	if _, err = client.SubmitForm(ctx, doc, "/start", nil); err != nil {
		return fmt.Errorf("start questionnaire: %w", err)
	}
	for _, values := range answers {
		if doc, err = client.PostForm(ctx, "/questionnaire", values); err != nil {
			return fmt.Errorf("answer %s: %w", values.Get("step"), err)
		}
	}
	if step, _ := doc.Find("input[name=step]").Attr("value"); step != "details" {
		return fmt.Errorf("expected details step after going back, got %q", step)
	}
	if _, err = client.PostForm(ctx, "/questionnaire/cancel", nil); err != nil {
		return fmt.Errorf("cancel questionnaire: %w", err)
	}
	return nil
}

// RunLoadTest runs the visitor scenario for the given number of visitors, each with their own session.
func RunLoadTest(ctx context.Context, baseURL, hostname string, visitors int, logger *slog.Logger) error {
	logger.LogAttrs(ctx, slog.LevelInfo, "Starting load test", slog.Int("num_visitors", visitors))

	var successCount, failureCount int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentOperations)

	for i := range visitors {
		g.Go(func() error {
			scenarioCtx, cancel := context.WithTimeout(ctx, scenarioTimeout)
			defer cancel()

			client, err := e2etest.NewClient(baseURL, hostname, baseURL)
			if err != nil {
				return fmt.Errorf("create client for visitor %d: %w", i, err)
			}
			if err = VisitorScenario(scenarioCtx, client); err != nil {
				atomic.AddInt64(&failureCount, 1)
				// Log individual failures but don't stop the entire test
				logger.LogAttrs(scenarioCtx, slog.LevelWarn, "Scenario failed",
					slog.Int("visitor", i),
					slog.Any("error", err))
				return nil
			}

			atomic.AddInt64(&successCount, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("load test failed: %w", err)
	}

	successRate := float64(successCount) / float64(visitors) * percentageMultiplier

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed",
		slog.Int64("successful", successCount),
		slog.Int64("failed", failureCount),
		slog.Float64("success_rate", successRate))

	if successRate < successRateThreshold {
		return fmt.Errorf("load test failed: success rate %.1f%% below threshold", successRate)
	}

	return nil
}

func main() {
	logger := logging.New(os.Stdout, nil)
	ctx := context.Background()

	if len(os.Args) < minArgsCount {
		logger.LogAttrs(ctx, slog.LevelError, "usage: stresstest <hostname> [visitors]")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		visitors = defaultVisitors
		start    = time.Now()
	)
	if len(os.Args) > minArgsCount {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n < 1 {
			logger.LogAttrs(ctx, slog.LevelError, "visitors must be a positive number",
				slog.String("visitors", os.Args[2]))
			os.Exit(1)
		}
		visitors = n
	}

	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))

	baseURL := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		baseURL = "http://" + hostname
		hostname = "localhost"
	}
	client, err := e2etest.NewClient(baseURL, hostname, baseURL)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}

	if err = RunLoadTest(ctx, baseURL, hostname, visitors, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "load test failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Load test completed successfully 🙌",
		slog.Duration("total_duration", time.Since(start)),
		slog.Int("visitors", visitors))
}
