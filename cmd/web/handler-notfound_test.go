package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/velocoach/internal/e2etest"
	"github.com/myrjola/velocoach/internal/testhelpers"
)

func Test_application_notFound(t *testing.T) {
	ctx := t.Context()
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()

	tests := []struct {
		name string
		path string
	}{
		{name: "Nonexistent path", path: "/nonexistent"},
		{name: "Nested nonexistent path", path: "/plans/GEAR/export"},
		{name: "Unknown plan code", path: "/plans/ZZZZ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.Get(ctx, tt.path)
			if err != nil {
				t.Fatalf("Failed to get %s: %v", tt.path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("Expected status code %d, got %d", http.StatusNotFound, resp.StatusCode)
			}

			doc, err := goquery.NewDocumentFromReader(resp.Body)
			if err != nil {
				t.Fatalf("Failed to parse 404 document: %v", err)
			}
			checkCustom404Content(t, doc)
		})
	}
}

// checkCustom404Content verifies the not found page is rendered within the layout.
func checkCustom404Content(t *testing.T, doc *goquery.Document) {
	t.Helper()

	if title := doc.Find("h1").Text(); !strings.Contains(title, "Page not found") {
		t.Errorf("Expected not found title, got: %s", title)
	}

	homeLinks := doc.Find(".error-page a[href='/']")
	if homeLinks.Length() == 0 {
		t.Error("Expected not found page to contain a link to the home page")
	} else if text := homeLinks.First().Text(); !strings.Contains(text, "Back to start") {
		t.Errorf("Expected home link to say 'Back to start', got: %s", text)
	}

	if doc.Find("footer a[href='/privacy']").Length() == 0 {
		t.Error("Expected not found page to be rendered with the footer")
	}
}
