package main

import (
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/myrjola/velocoach/internal/e2etest"
	"github.com/myrjola/velocoach/internal/testhelpers"
	"github.com/playwright-community/playwright-go"
)

// Test_browser renders the main pages in headless Chromium and fails on console errors such as blocked scripts
// or styles. It runs only with VELOCOACH_PLAYWRIGHT=1 and is skipped when the Playwright driver and browsers
// are not installed.
func Test_browser(t *testing.T) {
	if testing.Short() || os.Getenv("VELOCOACH_PLAYWRIGHT") != "1" {
		t.Skip("set VELOCOACH_PLAYWRIGHT=1 to run the browser test")
	}
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Skipf("Playwright not available: %v", err)
	}
	t.Cleanup(func() {
		_ = pw.Stop()
	})
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{ //nolint:exhaustruct // defaults are fine.
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Skipf("Chromium not available: %v", err)
	}
	t.Cleanup(func() {
		_ = browser.Close()
	})

	page, err := browser.NewPage()
	if err != nil {
		t.Fatalf("Failed to open page: %v", err)
	}
	var (
		mu           sync.Mutex
		consoleLines []string
	)
	page.On("console", func(msg playwright.ConsoleMessage) {
		if msg.Type() != "error" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		consoleLines = append(consoleLines, msg.Text())
	})

	if _, err = page.Goto(server.URL() + "/"); err != nil {
		t.Fatalf("Failed to open landing page: %v", err)
	}
	if err = page.Locator("button:has-text('Start questionnaire')").Click(); err != nil {
		t.Fatalf("Failed to start questionnaire: %v", err)
	}
	if err = page.WaitForURL("**/questionnaire"); err != nil {
		t.Fatalf("Expected questionnaire page: %v", err)
	}
	if err = page.Locator("label:has-text('Gran Fondo')").Click(); err != nil {
		t.Fatalf("Failed to choose goal: %v", err)
	}
	if err = page.Locator(".actions button:has-text('Next')").Click(); err != nil {
		t.Fatalf("Failed to advance: %v", err)
	}
	if err = page.Locator("input[name=level]").First().WaitFor(); err != nil {
		t.Fatalf("Expected level step: %v", err)
	}
	label, err := page.Locator(".progress-label").TextContent()
	if err != nil {
		t.Fatalf("Failed to read progress label: %v", err)
	}
	if got := strings.Join(strings.Fields(label), " "); got != "Step 2 of 6" {
		t.Errorf("Expected level step, got %q", got)
	}

	if _, err = page.Goto(server.URL() + "/plans/GEAR"); err != nil {
		t.Fatalf("Failed to open sample plan: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(consoleLines) > 0 {
		t.Errorf("Expected no console errors, got:\n%s", strings.Join(consoleLines, "\n"))
	}
}
