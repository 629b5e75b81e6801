// Package charts turns form reports into chart ready series.
//
// A server report is preferred. Raw submissions are the fallback when the
// report is unavailable. When a report claims answers but itemises none, the
// answered count is split evenly across the buckets and the series is flagged
// with HasDataIssue.
package charts

import (
	"fmt"
	"strings"

	"github.com/noah-isme/survey-api/pkg/client"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// Kind is how a series is displayed.
type Kind string

const (
	KindPie      Kind = "pie"
	KindDoughnut Kind = "doughnut"
	KindTable    Kind = "table"
)

// DefaultKind returns the initial view for a question type. CHOICE and
// TRUE_FALSE are proportions; everything else is tabular.
func DefaultKind(t survey.QuestionType) Kind {
	switch t {
	case survey.QuestionChoice, survey.QuestionTrueFalse:
		return KindPie
	default:
		return KindTable
	}
}

// Series is one question's chart data.
type Series struct {
	QuestionID   string
	Type         survey.QuestionType
	Prompt       string
	Labels       []string
	Counts       []int
	Responses    []string
	Answered     int
	Omitted      int
	HasDataIssue bool
	Kind         Kind
}

// Total sums the bucket counts.
func (s Series) Total() int {
	total := 0
	for _, c := range s.Counts {
		total += c
	}
	return total
}

// Count returns the count of a bucket by label.
func (s Series) Count(label string) (int, bool) {
	for i, l := range s.Labels {
		if l == label {
			return s.Counts[i], true
		}
	}
	return 0, false
}

// SetKind switches the view. Proportion charts need buckets.
func (s *Series) SetKind(kind Kind) error {
	switch kind {
	case KindTable:
	case KindPie, KindDoughnut:
		if len(s.Labels) == 0 {
			return fmt.Errorf("%s chart needs buckets", kind)
		}
	default:
		return fmt.Errorf("unknown chart kind %q", kind)
	}
	s.Kind = kind
	return nil
}

// Split divides total evenly over n buckets. The first total%n buckets get
// one extra.
func Split(total, n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	if total <= 0 {
		return out
	}
	q, r := total/n, total%n
	for i := range out {
		out[i] = q
		if i < r {
			out[i]++
		}
	}
	return out
}

// TrueFalseLabels returns the display labels of a TRUE_FALSE question.
func TrueFalseLabels(q client.Question) (string, string) {
	trueLabel, falseLabel := survey.DefaultTrueLabel, survey.DefaultFalseLabel
	if q.Settings.TrueLabel != "" {
		trueLabel = q.Settings.TrueLabel
	}
	if q.Settings.FalseLabel != "" {
		falseLabel = q.Settings.FalseLabel
	}
	if len(q.Options) == 2 {
		if q.Options[0].Label != "" {
			trueLabel = q.Options[0].Label
		}
		if q.Options[1].Label != "" {
			falseLabel = q.Options[1].Label
		}
	}
	return trueLabel, falseLabel
}

func newSeries(q client.Question) Series {
	return Series{QuestionID: q.ID, Type: q.Type, Prompt: q.Prompt, Kind: DefaultKind(q.Type)}
}

// FromReport builds one series per question, in question order, from a
// server report.
func FromReport(questions []client.Question, report client.FormReport) []Series {
	byID := make(map[string]client.QuestionReport, len(report.Questions))
	for _, qr := range report.Questions {
		byID[qr.QuestionID] = qr
	}

	out := make([]Series, 0, len(questions))
	for _, q := range questions {
		qr := byID[q.ID]
		s := newSeries(q)
		s.Answered = qr.AnsweredCount
		s.Omitted = qr.OmittedCount

		switch q.Type {
		case survey.QuestionChoice:
			s.Labels, s.Counts = choiceBuckets(q)
			index := optionIndex(q)
			for _, oc := range qr.Options {
				if i, ok := index[oc.OptionID]; ok {
					s.Counts[i] += oc.Count
				}
			}
		case survey.QuestionTrueFalse:
			t, f := TrueFalseLabels(q)
			s.Labels = []string{t, f}
			s.Counts = []int{deref(qr.TrueCount), deref(qr.FalseCount)}
			if qr.TrueCount == nil && qr.FalseCount == nil {
				for _, oc := range qr.Options {
					switch oc.OptionID {
					case "true":
						s.Counts[0] += oc.Count
					case "false":
						s.Counts[1] += oc.Count
					}
				}
			}
		case survey.QuestionText:
			s.Responses = append([]string(nil), qr.Responses...)
		case survey.QuestionMatching:
			for _, pc := range qr.Pairs {
				s.Labels = append(s.Labels, pairLabel(pc.LeftLabel, pc.RightLabel))
				s.Counts = append(s.Counts, pc.Count)
			}
		}

		degrade(&s)
		out = append(out, s)
	}
	return out
}

// degrade replaces all-zero buckets with an even split of the answered count.
func degrade(s *Series) {
	if s.Answered <= 0 || len(s.Counts) == 0 || s.Total() > 0 {
		return
	}
	s.Counts = Split(s.Answered, len(s.Counts))
	s.HasDataIssue = true
}

// FromSubmissions counts answers directly. Drafts are skipped unless
// includeDrafts is set.
func FromSubmissions(questions []client.Question, submissions []client.Submission, includeDrafts bool) []Series {
	var counted []client.Submission
	for _, sub := range submissions {
		if includeDrafts || sub.Status == survey.SubmissionSubmitted {
			counted = append(counted, sub)
		}
	}

	out := make([]Series, 0, len(questions))
	for _, q := range questions {
		s := newSeries(q)
		var pairIndex map[string]int
		var index map[string]int
		switch q.Type {
		case survey.QuestionChoice:
			s.Labels, s.Counts = choiceBuckets(q)
			index = optionIndex(q)
		case survey.QuestionTrueFalse:
			t, f := TrueFalseLabels(q)
			s.Labels = []string{t, f}
			s.Counts = []int{0, 0}
		case survey.QuestionMatching:
			pairIndex = make(map[string]int)
		}

		for _, sub := range counted {
			a, ok := findAnswer(sub, q.ID)
			if !ok {
				s.Omitted++
				continue
			}
			switch q.Type {
			case survey.QuestionChoice:
				if len(a.OptionIDs) == 0 {
					s.Omitted++
					continue
				}
				for _, id := range a.OptionIDs {
					if i, ok := index[id]; ok {
						s.Counts[i]++
					}
				}
			case survey.QuestionTrueFalse:
				if a.BoolValue == nil {
					s.Omitted++
					continue
				}
				if *a.BoolValue {
					s.Counts[0]++
				} else {
					s.Counts[1]++
				}
			case survey.QuestionText:
				if a.TextValue == nil || strings.TrimSpace(*a.TextValue) == "" {
					s.Omitted++
					continue
				}
				s.Responses = append(s.Responses, *a.TextValue)
			case survey.QuestionMatching:
				if len(a.Pairs) == 0 {
					s.Omitted++
					continue
				}
				for _, p := range a.Pairs {
					label := pairLabel(itemLabel(q.Settings.LeftItems, p.LeftID), itemLabel(q.Settings.RightItems, p.RightID))
					i, ok := pairIndex[label]
					if !ok {
						i = len(s.Labels)
						pairIndex[label] = i
						s.Labels = append(s.Labels, label)
						s.Counts = append(s.Counts, 0)
					}
					s.Counts[i]++
				}
			}
			s.Answered++
		}
		out = append(out, s)
	}
	return out
}

func choiceBuckets(q client.Question) ([]string, []int) {
	labels := make([]string, len(q.Options))
	for i, opt := range q.Options {
		labels[i] = opt.Label
	}
	return labels, make([]int, len(q.Options))
}

func optionIndex(q client.Question) map[string]int {
	index := make(map[string]int, len(q.Options))
	for i, opt := range q.Options {
		index[opt.ID] = i
	}
	return index
}

func findAnswer(sub client.Submission, questionID string) (client.Answer, bool) {
	for _, a := range sub.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return client.Answer{}, false
}

func itemLabel(items []client.MatchingItem, id string) string {
	for _, it := range items {
		if it.ID == id {
			return it.Label
		}
	}
	return id
}

func pairLabel(left, right string) string {
	return left + " → " + right
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
