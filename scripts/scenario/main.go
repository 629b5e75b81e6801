package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/pkg/client"
	"github.com/noah-isme/survey-api/pkg/client/charts"
	"github.com/noah-isme/survey-api/pkg/client/respond"
	"github.com/noah-isme/survey-api/pkg/survey"
)

type check struct {
	Name     string
	Expected interface{}
	Actual   interface{}
	Error    error
}

func (c check) ok() bool {
	return c.Error == nil && reflect.DeepEqual(c.Expected, c.Actual)
}

func main() {
	var (
		base     string
		email    string
		password string
		register bool
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api", "API base URL")
	flag.StringVar(&email, "email", "scenario@example.com", "Account email")
	flag.StringVar(&password, "password", "scenario-secret", "Account password")
	flag.BoolVar(&register, "register", false, "Register the account before logging in")
	flag.DurationVar(&timeout, "timeout", time.Minute, "Overall scenario timeout")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	checks, err := run(ctx, base, email, password, register, logger)
	printReport(checks)
	if err != nil {
		fmt.Printf("Scenario aborted: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, c := range checks {
		if !c.ok() {
			failed++
		}
	}
	fmt.Printf("Checks: %d, Failed: %d\n", len(checks), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func run(ctx context.Context, base, email, password string, register bool, logger *zap.Logger) ([]check, error) {
	author := client.New(base, client.WithLogger(logger))
	if register {
		if _, err := author.Auth.Register(ctx, email, password, "Scenario Author"); err != nil && !client.IsStatus(err, 409) {
			return nil, fmt.Errorf("register: %w", err)
		}
	}
	if _, err := author.Auth.Login(ctx, email, password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	defer author.Auth.Logout(context.Background()) //nolint:errcheck

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	campaign, err := author.Campaigns.Create(ctx, client.NewCampaign{Name: "Q1 Survey", StartDate: &start, EndDate: &end})
	if err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	form, err := author.Forms.Create(ctx, campaign.ID, client.NewForm{
		Title:         "Service Form",
		AccessMode:    survey.AccessPublic,
		AnonymousMode: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}

	choice, err := author.Questions.CreateChoice(ctx, form.ID, "", client.NewChoice{
		QuestionBase:  client.QuestionBase{Prompt: "How was the service?", Required: true},
		SelectionMode: survey.SelectionSingle,
		Options:       []client.OptionInput{{Label: "Good"}, {Label: "Bad"}},
	})
	if err != nil {
		return nil, fmt.Errorf("create choice question: %w", err)
	}
	text, err := author.Questions.CreateText(ctx, form.ID, "", client.NewText{
		QuestionBase:        client.QuestionBase{Prompt: "Anything else?"},
		TextSettingsRequest: client.TextSettings{TextMode: survey.TextShort},
	})
	if err != nil {
		return nil, fmt.Errorf("create text question: %w", err)
	}

	link, err := author.Forms.Publish(ctx, form.ID, false)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	checks := []check{{Name: "public code issued", Expected: true, Actual: link.Code != ""}}

	respondent := client.New(base, client.WithLogger(logger))
	flow := respond.New(respondent, respond.WithLogger(logger))
	if err := flow.Load(ctx, link.Code, "/respond/"+link.Code); err != nil {
		return checks, fmt.Errorf("load public form: %w", err)
	}
	checks = append(checks, check{Name: "window open", Expected: survey.WindowOpen, Actual: flow.Window()})

	good := -1
	for i, opt := range flow.Form().Questions[indexOf(flow.Form().Questions, choice.ID)].Options {
		if opt.Label == "Good" {
			good = i
		}
	}
	if good < 0 {
		return checks, fmt.Errorf("option Good missing from public form")
	}
	if err := flow.Select(choice.ID, good); err != nil {
		return checks, err
	}
	if err := flow.SetText(text.ID, "fine"); err != nil {
		return checks, err
	}
	sub, err := flow.Submit(ctx, "")
	checks = append(checks, check{Name: "anonymous submission", Expected: survey.SubmissionSubmitted, Actual: statusOf(sub), Error: err})
	if err != nil {
		return checks, nil
	}

	report, err := author.Reports.FormReport(ctx, form.ID, false)
	if err != nil {
		return checks, fmt.Errorf("form report: %w", err)
	}
	series := charts.FromReport([]client.Question{*choice, *text}, *report)
	goodCount, _ := series[0].Count("Good")
	badCount, _ := series[0].Count("Bad")
	checks = append(checks,
		check{Name: "choice counts", Expected: map[string]int{"Good": 1, "Bad": 0}, Actual: map[string]int{"Good": goodCount, "Bad": badCount}},
		check{Name: "text responses", Expected: []string{"fine"}, Actual: series[1].Responses},
		check{Name: "submitted count", Expected: 1, Actual: report.SubmittedCount},
	)
	return checks, nil
}

func indexOf(questions []client.Question, id string) int {
	for i, q := range questions {
		if q.ID == id {
			return i
		}
	}
	return 0
}

func statusOf(sub *client.Submission) survey.SubmissionStatus {
	if sub == nil {
		return ""
	}
	return sub.Status
}

func printReport(checks []check) {
	fmt.Println("Scenario Report")
	fmt.Println("===============")
	for _, c := range checks {
		status := "OK"
		if c.Error != nil {
			status = "ERROR"
		} else if !c.ok() {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s\n", status, c.Name)
		if c.Error != nil {
			fmt.Printf("  Error: %v\n", c.Error)
			continue
		}
		if status == "DIFF" {
			fmt.Printf("  Expected: %v\n  Actual:   %v\n", c.Expected, c.Actual)
		}
	}
	fmt.Println(strings.Repeat("-", 15))
}
