package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/myrjola/velocoach/internal/e2etest"
	"github.com/myrjola/velocoach/internal/logging"
	"golang.org/x/sync/errgroup"
)

const checkTimeout = 10 * time.Second

func TestAuth(ctx context.Context, client *e2etest.Client) error {
	var err error
	if _, err = client.Register(ctx); err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	if _, err = client.Logout(ctx); err != nil {
		return fmt.Errorf("logout user: %w", err)
	}
	if _, err = client.Login(ctx); err != nil {
		return fmt.Errorf("login user: %w", err)
	}
	return nil
}

// TestSamplePlan opens the sample plan linked from the landing page.
func TestSamplePlan(ctx context.Context, client *e2etest.Client) error {
	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		return fmt.Errorf("get landing page: %w", err)
	}
	href, ok := doc.Find("a.sample").Attr("href")
	if !ok {
		return errors.New("sample plan link not found")
	}
	if doc, err = client.GetDoc(ctx, href); err != nil {
		return fmt.Errorf("get sample plan: %w", err)
	}
	if doc.Find(".week-tabs a").Length() == 0 {
		return errors.New("sample plan has no weeks")
	}
	return nil
}

// TestQuestionnaire starts the questionnaire, answers the first step and cancels without generating a plan.
func TestQuestionnaire(ctx context.Context, client *e2etest.Client) error {
	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		return fmt.Errorf("get landing page: %w", err)
	}
	if _, err = client.SubmitForm(ctx, doc, "/start", nil); err != nil {
		return fmt.Errorf("start questionnaire: %w", err)
	}
	if doc, err = client.PostForm(ctx, "/questionnaire", url.Values{
		"step":   {"goal"},
		"goal":   {"Fitness"},
		"action": {"next"},
	}); err != nil {
		return fmt.Errorf("answer goal: %w", err)
	}
	if step, _ := doc.Find("input[name=step]").Attr("value"); step != "level" {
		return fmt.Errorf("expected level step, got %q", step)
	}
	if doc, err = client.PostForm(ctx, "/questionnaire/cancel", nil); err != nil {
		return fmt.Errorf("cancel questionnaire: %w", err)
	}
	if doc.Url.Path != "/" {
		return fmt.Errorf("expected landing page after cancel, got %s", doc.Url.Path)
	}
	return nil
}

func main() {
	logger := logging.New(os.Stdout, nil)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		client   *e2etest.Client
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	baseURL := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		baseURL = "http://" + hostname
		hostname = "localhost"
	}

	if client, err = e2etest.NewClient(baseURL, hostname, baseURL); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready in time", slog.Any("error", err))
		os.Exit(1)
	}

	checks := map[string]func(context.Context, *e2etest.Client) error{
		"auth":          TestAuth,
		"sample plan":   TestSamplePlan,
		"questionnaire": TestQuestionnaire,
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	for name, check := range checks {
		g.Go(func() error {
			// Every check gets its own session.
			checkClient, clientErr := e2etest.NewClient(baseURL, hostname, baseURL)
			if clientErr != nil {
				return fmt.Errorf("%s: create client: %w", name, clientErr)
			}
			if checkErr := check(gctx, checkClient); checkErr != nil {
				return fmt.Errorf("%s: %w", name, checkErr)
			}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "smoke test failed", slog.Any("error", err))
		os.Exit(1) //nolint:gocritic // exiting skips the deferred cancel which is fine.
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌", slog.Duration("duration", time.Since(start)))
}
