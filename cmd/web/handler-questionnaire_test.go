package main

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/velocoach/internal/e2etest"
	"github.com/myrjola/velocoach/internal/testhelpers"
)

// answer posts the values of the current step together with action.
func answer(
	ctx context.Context,
	t *testing.T,
	client *e2etest.Client,
	step, action string,
	values url.Values,
) *goquery.Document {
	t.Helper()
	form := url.Values{"step": {step}}
	if action != "" {
		form.Set("action", action)
	}
	for key, vs := range values {
		form[key] = vs
	}
	doc, err := client.PostForm(ctx, "/questionnaire", form)
	if err != nil {
		t.Fatalf("Failed to answer step %s: %v", step, err)
	}
	return doc
}

func progressLabel(doc *goquery.Document) string {
	return strings.Join(strings.Fields(doc.Find(".progress-label").Text()), " ")
}

// fillQuestionnaire starts the questionnaire and answers every step up to the equipment step.
func fillQuestionnaire(ctx context.Context, t *testing.T, client *e2etest.Client) {
	t.Helper()
	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		t.Fatalf("Failed to get home page: %v", err)
	}
	if doc, err = client.SubmitForm(ctx, doc, "/start", nil); err != nil {
		t.Fatalf("Failed to start questionnaire: %v", err)
	}
	if doc.Url.Path != "/questionnaire" {
		t.Fatalf("Expected questionnaire after start, got %s", doc.Url.Path)
	}

	answer(ctx, t, client, "goal", "next", url.Values{"goal": {"Gran Fondo"}})
	answer(ctx, t, client, "level", "next", url.Values{"level": {"Intermediate"}})
	answer(ctx, t, client, "schedule", "next", url.Values{"days": {"Di", "Do", "Sa", "So"}})
	answer(ctx, t, client, "metrics", "next", url.Values{"knowledge": {"hr"}, "max_heart_rate": {"185"}})
	doc = answer(ctx, t, client, "details", "next",
		url.Values{"age": {"38"}, "weight": {"74"}, "gender": {"female"}})
	if got := progressLabel(doc); got != "Step 6 of 6" {
		t.Fatalf("Expected equipment as last step, got %q", got)
	}
}

// submitQuestionnaire submits the equipment step and returns the page the submission lands on.
func submitQuestionnaire(ctx context.Context, t *testing.T, client *e2etest.Client) *goquery.Document {
	t.Helper()
	doc, err := client.PostForm(ctx, "/questionnaire/submit", url.Values{
		"step":      {"equipment"},
		"equipment": {"Heart Rate Monitor"},
	})
	if err != nil {
		t.Fatalf("Failed to submit questionnaire: %v", err)
	}
	return doc
}

// waitForPlan polls the loading page until the generation finishes.
func waitForPlan(ctx context.Context, t *testing.T, client *e2etest.Client, doc *goquery.Document) *goquery.Document {
	t.Helper()
	var err error
	for range 100 {
		if doc.Url.Path != "/plan/loading" {
			return doc
		}
		time.Sleep(20 * time.Millisecond) //nolint:mnd // polling interval.
		if doc, err = client.GetDoc(ctx, "/plan/loading"); err != nil {
			t.Fatalf("Failed to poll loading page: %v", err)
		}
	}
	t.Fatal("Plan generation did not finish in time")
	return nil
}

func Test_application_questionnaire(t *testing.T) {
	ctx := t.Context()
	ai := newFakeAI(t, fakePlanJSON(t))
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), aiLookupEnv(ai, nil), run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()

	t.Run("Incomplete step stays in place", func(t *testing.T) {
		doc, err := client.GetDoc(ctx, "/")
		if err != nil {
			t.Fatalf("Failed to get home page: %v", err)
		}
		if doc, err = client.SubmitForm(ctx, doc, "/start", nil); err != nil {
			t.Fatalf("Failed to start questionnaire: %v", err)
		}
		if got := progressLabel(doc); got != "Step 1 of 6" {
			t.Errorf("Expected first step, got %q", got)
		}
		doc = answer(ctx, t, client, "goal", "next", nil)
		if got := progressLabel(doc); got != "Step 1 of 6" {
			t.Errorf("Expected to stay on the goal step without a goal, got %q", got)
		}
	})

	t.Run("Schedule updates hours range", func(t *testing.T) {
		answer(ctx, t, client, "goal", "next", url.Values{"goal": {"Fitness"}})
		answer(ctx, t, client, "level", "next", url.Values{"level": {"Beginner"}})
		doc := answer(ctx, t, client, "schedule", "update", url.Values{"days": {"Mo"}})
		if diff := cmp.Diff([]string{"Mo"}, e2etest.CheckedValues(doc, "days")); diff != "" {
			t.Errorf("Expected only Monday to be checked (-want +got):\n%s", diff)
		}
		hours := doc.Find("input#hours")
		if minimum, _ := hours.Attr("min"); minimum != "2" {
			t.Errorf("Expected minimum 2 hours for one day, got %q", minimum)
		}
		if maximum, _ := hours.Attr("max"); maximum != "5" {
			t.Errorf("Expected maximum 5 hours for one day, got %q", maximum)
		}

		doc = answer(ctx, t, client, "schedule", "update", nil)
		if doc.Find("input#hours").Length() != 0 {
			t.Error("Expected hours input to be hidden without training days")
		}
	})

	t.Run("Invalid FTP is reported on blur", func(t *testing.T) {
		answer(ctx, t, client, "schedule", "next", url.Values{"days": {"Di", "Sa"}})
		doc := answer(ctx, t, client, "metrics", "blur", url.Values{"knowledge": {"ftp"}, "ftp": {"20"}})
		if status := doc.Find(".status--invalid").Text(); !strings.Contains(status, "FTP must be between") {
			t.Errorf("Expected invalid FTP status, got %q", status)
		}
		doc = answer(ctx, t, client, "metrics", "next", url.Values{"knowledge": {"ftp"}, "ftp": {"20"}})
		if got := progressLabel(doc); got != "Step 4 of 6" {
			t.Errorf("Expected to stay on metrics with invalid FTP, got %q", got)
		}
	})

	t.Run("Smart trainer with split week adds preference step", func(t *testing.T) {
		answer(ctx, t, client, "metrics", "next", url.Values{"knowledge": {"ftp"}, "ftp": {"250"}})
		answer(ctx, t, client, "details", "next",
			url.Values{"age": {"45"}, "weight": {"80"}, "gender": {"male"}})
		doc := answer(ctx, t, client, "equipment", "next", url.Values{"equipment": {"Smart Trainer"}})
		if got := progressLabel(doc); got != "Step 7 of 7" {
			t.Errorf("Expected preference step, got %q", got)
		}
	})

	t.Run("Go to earlier step", func(t *testing.T) {
		doc := answer(ctx, t, client, "preference", "goto:goal", nil)
		if got := progressLabel(doc); got != "Step 1 of 7" {
			t.Errorf("Expected goal step, got %q", got)
		}
		if diff := cmp.Diff([]string{"Fitness"}, e2etest.CheckedValues(doc, "goal")); diff != "" {
			t.Errorf("Expected goal answer to be kept (-want +got):\n%s", diff)
		}
	})

	t.Run("Cancel returns home", func(t *testing.T) {
		doc, err := client.PostForm(ctx, "/questionnaire/cancel", nil)
		if err != nil {
			t.Fatalf("Failed to cancel: %v", err)
		}
		if doc.Url.Path != "/" {
			t.Errorf("Expected landing page after cancel, got %s", doc.Url.Path)
		}
		if doc, err = client.GetDoc(ctx, "/questionnaire"); err != nil {
			t.Fatalf("Failed to get questionnaire: %v", err)
		}
		if doc.Url.Path != "/" {
			t.Errorf("Expected questionnaire to redirect home after cancel, got %s", doc.Url.Path)
		}
	})

	t.Run("Submit generates plan", func(t *testing.T) {
		fillQuestionnaire(ctx, t, client)
		doc := waitForPlan(ctx, t, client, submitQuestionnaire(ctx, t, client))
		if doc.Url.Path != "/plan" {
			t.Fatalf("Expected plan page, got %s", doc.Url.Path)
		}
		if title := doc.Find("h1").Text(); title != fakePlanTitle {
			t.Errorf("Expected plan title %q, got %q", fakePlanTitle, title)
		}
		code := doc.Find("[data-plan-code]").Text()
		if len(code) != 4 {
			t.Errorf("Expected 4 character plan code, got %q", code)
		}
		var stored int
		if scanErr := server.DB().QueryRowContext(ctx,
			"SELECT COUNT(*) FROM training_plans WHERE code = ?", code).Scan(&stored); scanErr != nil {
			t.Fatalf("Failed to count stored plans: %v", scanErr)
		}
		if stored != 1 {
			t.Errorf("Expected plan %s to be stored once, got %d", code, stored)
		}
		if tabs := doc.Find(".week-tabs a").Length(); tabs != 4 {
			t.Errorf("Expected 4 week tabs, got %d", tabs)
		}
		if rest := doc.Find(".session--rest .badge").Length(); rest != 0 {
			t.Errorf("Expected rest sessions without intensity badge, got %d", rest)
		}
		if strong := doc.Find(".plan__summary em").Text(); strong != "progressive" {
			t.Errorf("Expected markdown summary, got %q", strong)
		}

		if doc, err = client.GetDoc(ctx, "/"); err != nil {
			t.Fatalf("Failed to get home page: %v", err)
		}
		if doc.Url.Path != "/plan" {
			t.Errorf("Expected home to redirect to the displayed plan, got %s", doc.Url.Path)
		}
	})

	t.Run("Week tabs", func(t *testing.T) {
		doc, err := client.GetDoc(ctx, "/plan?week=3")
		if err != nil {
			t.Fatalf("Failed to get week 3: %v", err)
		}
		active := doc.Find(".week-tabs a[aria-current=page] small").Text()
		if active != "Threshold" {
			t.Errorf("Expected week 3 focus Threshold, got %q", active)
		}
	})

	t.Run("Reset starts over", func(t *testing.T) {
		doc, err := client.PostForm(ctx, "/plan/reset", nil)
		if err != nil {
			t.Fatalf("Failed to reset: %v", err)
		}
		if doc.Url.Path != "/" {
			t.Errorf("Expected landing page after reset, got %s", doc.Url.Path)
		}
		checkButtonPresence(t, doc, "Start questionnaire", 1)
	})
}

func Test_application_questionnaire_dailyLimit(t *testing.T) {
	ctx := t.Context()
	ai := newFakeAI(t, fakePlanJSON(t))
	lookupEnv := aiLookupEnv(ai, map[string]string{"VELOCOACH_DAILY_PLAN_LIMIT": "1"})
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), lookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()

	fillQuestionnaire(ctx, t, client)
	doc := waitForPlan(ctx, t, client, submitQuestionnaire(ctx, t, client))
	if doc.Url.Path != "/plan" {
		t.Fatalf("Expected first plan to be generated, got %s", doc.Url.Path)
	}
	if _, err = client.PostForm(ctx, "/plan/reset", nil); err != nil {
		t.Fatalf("Failed to reset: %v", err)
	}

	fillQuestionnaire(ctx, t, client)
	doc = submitQuestionnaire(ctx, t, client)
	if doc.Url.Path != "/questionnaire" {
		t.Fatalf("Expected to stay in the questionnaire, got %s", doc.Url.Path)
	}
	banner := doc.Find(".error-banner").Text()
	if !strings.Contains(banner, "daily limit") || !strings.Contains(banner, "come back tomorrow") {
		t.Errorf("Expected daily limit banner, got %q", banner)
	}
	if strings.Contains(banner, "Please try again") {
		t.Errorf("Expected daily limit banner instead of the generic failure, got %q", banner)
	}
	if quota := doc.Find(".quota").Text(); !strings.Contains(quota, "0 / 1") {
		t.Errorf("Expected exhausted quota, got %q", quota)
	}
	if got := progressLabel(doc); got != "Step 6 of 6" {
		t.Errorf("Expected answers to be kept at the last step, got %q", got)
	}
}

func Test_application_questionnaire_unavailable(t *testing.T) {
	ctx := t.Context()
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), testLookupEnv, run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()

	fillQuestionnaire(ctx, t, client)
	doc := waitForPlan(ctx, t, client, submitQuestionnaire(ctx, t, client))
	if doc.Url.Path != "/questionnaire" {
		t.Fatalf("Expected failed generation to return to the questionnaire, got %s", doc.Url.Path)
	}
	if banner := doc.Find(".error-banner").Text(); !strings.Contains(banner, "currently unavailable") {
		t.Errorf("Expected unavailable banner, got %q", banner)
	}
}

func Test_application_questionnaire_invalidResponse(t *testing.T) {
	ctx := t.Context()
	ai := newFakeAI(t, `{"planTitle":"Broken","weeks":[]}`)
	server, err := e2etest.StartServer(t, testhelpers.NewWriter(t), aiLookupEnv(ai, nil), run)
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	client := server.Client()

	fillQuestionnaire(ctx, t, client)
	doc := waitForPlan(ctx, t, client, submitQuestionnaire(ctx, t, client))
	if doc.Url.Path != "/questionnaire" {
		t.Fatalf("Expected failed generation to return to the questionnaire, got %s", doc.Url.Path)
	}
	if banner := doc.Find(".error-banner").Text(); !strings.Contains(banner, "Creating your plan failed") {
		t.Errorf("Expected generic error banner, got %q", banner)
	}
}
