package charts

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/survey-api/pkg/client"
	"github.com/noah-isme/survey-api/pkg/survey"
)

func intPtr(n int) *int { return &n }
func boolPtr(b bool) *bool { return &b }
func strPtr(s string) *string { return &s }

func questions() []client.Question {
	return []client.Question{
		{
			ID: "q-choice", Type: survey.QuestionChoice, Prompt: "How was it?",
			Options: []client.QuestionOption{{ID: "o1", Label: "Good"}, {ID: "o2", Label: "Bad"}, {ID: "o3", Label: "Ugly"}},
		},
		{
			ID: "q-tf", Type: survey.QuestionTrueFalse, Prompt: "Return?",
			Options: []client.QuestionOption{{ID: "true", Label: "Yes"}, {ID: "false", Label: "No"}},
		},
		{ID: "q-text", Type: survey.QuestionText, Prompt: "Comments"},
		{
			ID: "q-match", Type: survey.QuestionMatching, Prompt: "Pair them",
			Settings: client.QuestionSettings{
				LeftItems:  []client.MatchingItem{{ID: "l1", Label: "Cat"}},
				RightItems: []client.MatchingItem{{ID: "r1", Label: "Meow"}},
			},
		},
	}
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []int{3, 2, 2}, Split(7, 3))
	assert.Equal(t, []int{4, 3}, Split(7, 2))
	assert.Equal(t, []int{2, 2}, Split(4, 2))
	assert.Equal(t, []int{1, 0, 0}, Split(1, 3))
	assert.Equal(t, []int{0, 0}, Split(0, 2))
	assert.Nil(t, Split(5, 0))

	for total := 0; total < 30; total++ {
		for n := 1; n < 6; n++ {
			parts := Split(total, n)
			sum := 0
			for i, p := range parts {
				sum += p
				if i > 0 {
					assert.LessOrEqual(t, p, parts[i-1])
				}
			}
			assert.Equal(t, total, sum)
		}
	}
}

func TestDefaultKind(t *testing.T) {
	assert.Equal(t, KindPie, DefaultKind(survey.QuestionChoice))
	assert.Equal(t, KindPie, DefaultKind(survey.QuestionTrueFalse))
	assert.Equal(t, KindTable, DefaultKind(survey.QuestionText))
	assert.Equal(t, KindTable, DefaultKind(survey.QuestionMatching))
}

func TestSetKind(t *testing.T) {
	s := Series{Labels: []string{"a"}, Counts: []int{1}, Kind: KindPie}
	require.NoError(t, s.SetKind(KindDoughnut))
	assert.Equal(t, KindDoughnut, s.Kind)
	require.NoError(t, s.SetKind(KindTable))
	assert.Error(t, s.SetKind("radar"))

	text := Series{Kind: KindTable}
	assert.Error(t, text.SetKind(KindPie))
	assert.Equal(t, KindTable, text.Kind)
}

func TestTrueFalseLabels(t *testing.T) {
	tr, fa := TrueFalseLabels(client.Question{})
	assert.Equal(t, survey.DefaultTrueLabel, tr)
	assert.Equal(t, survey.DefaultFalseLabel, fa)

	tr, fa = TrueFalseLabels(client.Question{Settings: client.QuestionSettings{TrueLabel: "Agree", FalseLabel: "Disagree"}})
	assert.Equal(t, "Agree", tr)
	assert.Equal(t, "Disagree", fa)

	tr, fa = TrueFalseLabels(questions()[1])
	assert.Equal(t, "Yes", tr)
	assert.Equal(t, "No", fa)
}

func TestFromReport(t *testing.T) {
	report := client.FormReport{
		FormID: "form-1",
		Questions: []client.QuestionReport{
			{QuestionID: "q-choice", AnsweredCount: 3, Options: []client.OptionCount{
				{OptionID: "o2", Label: "Bad", Count: 1},
				{OptionID: "o1", Label: "Good", Count: 2},
				{OptionID: "gone", Label: "Removed", Count: 9},
			}},
			{QuestionID: "q-tf", AnsweredCount: 2, TrueCount: intPtr(2), FalseCount: intPtr(0)},
			{QuestionID: "q-text", AnsweredCount: 1, OmittedCount: 2, Responses: []string{"fine"}},
			{QuestionID: "q-match", AnsweredCount: 1, Pairs: []client.PairCount{{LeftLabel: "Cat", RightLabel: "Meow", Count: 1}}},
		},
	}

	series := FromReport(questions(), report)
	require.Len(t, series, 4)

	choice := series[0]
	assert.Equal(t, []string{"Good", "Bad", "Ugly"}, choice.Labels)
	assert.Equal(t, []int{2, 1, 0}, choice.Counts)
	assert.False(t, choice.HasDataIssue)
	assert.Equal(t, KindPie, choice.Kind)

	tf := series[1]
	assert.Equal(t, []string{"Yes", "No"}, tf.Labels)
	assert.Equal(t, []int{2, 0}, tf.Counts)

	text := series[2]
	assert.Equal(t, []string{"fine"}, text.Responses)
	assert.Equal(t, 1, text.Answered)
	assert.Equal(t, 2, text.Omitted)
	assert.Equal(t, KindTable, text.Kind)
	assert.False(t, text.HasDataIssue)

	match := series[3]
	n, ok := match.Count("Cat → Meow")
	assert.True(t, ok)
	assert.Equal(t, 1, n)
}

func TestFromReportDegradedSplit(t *testing.T) {
	report := client.FormReport{Questions: []client.QuestionReport{
		{QuestionID: "q-choice", AnsweredCount: 7},
		{QuestionID: "q-tf", AnsweredCount: 7},
		{QuestionID: "q-text", AnsweredCount: 7},
	}}

	series := FromReport(questions(), report)
	assert.Equal(t, []int{3, 2, 2}, series[0].Counts)
	assert.True(t, series[0].HasDataIssue)
	assert.Equal(t, 7, series[0].Total())

	assert.Equal(t, []int{4, 3}, series[1].Counts)
	assert.True(t, series[1].HasDataIssue)

	assert.False(t, series[2].HasDataIssue)
	assert.Empty(t, series[2].Counts)

	assert.False(t, series[3].HasDataIssue)
}

func TestFromReportTrueFalseOptionFallback(t *testing.T) {
	report := client.FormReport{Questions: []client.QuestionReport{
		{QuestionID: "q-tf", AnsweredCount: 3, Options: []client.OptionCount{{OptionID: "false", Count: 1}, {OptionID: "true", Count: 2}}},
	}}
	series := FromReport(questions(), report)
	assert.Equal(t, []int{2, 1}, series[1].Counts)
	assert.False(t, series[1].HasDataIssue)
}

func TestFromSubmissions(t *testing.T) {
	subs := []client.Submission{
		{ID: "s1", Status: survey.SubmissionSubmitted, Answers: []client.Answer{
			{QuestionID: "q-choice", OptionIDs: []string{"o1"}},
			{QuestionID: "q-tf", BoolValue: boolPtr(true)},
			{QuestionID: "q-text", TextValue: strPtr("fine")},
			{QuestionID: "q-match", Pairs: []client.MatchingPair{{LeftID: "l1", RightID: "r1"}}},
		}},
		{ID: "s2", Status: survey.SubmissionSubmitted, Answers: []client.Answer{
			{QuestionID: "q-choice", OptionIDs: []string{"o2"}},
			{QuestionID: "q-text", TextValue: strPtr("  ")},
		}},
		{ID: "s3", Status: survey.SubmissionDraft, Answers: []client.Answer{
			{QuestionID: "q-choice", OptionIDs: []string{"o1"}},
		}},
	}

	series := FromSubmissions(questions(), subs, false)
	assert.Equal(t, []int{1, 1, 0}, series[0].Counts)
	assert.Equal(t, 2, series[0].Answered)
	assert.Equal(t, []int{1, 0}, series[1].Counts)
	assert.Equal(t, 1, series[1].Omitted)
	assert.Equal(t, []string{"fine"}, series[2].Responses)
	assert.Equal(t, 1, series[2].Omitted)
	assert.Equal(t, []string{"Cat → Meow"}, series[3].Labels)

	withDrafts := FromSubmissions(questions(), subs, true)
	assert.Equal(t, []int{2, 1, 0}, withDrafts[0].Counts)
}

type fakeSource struct {
	questions []client.Question
	report    *client.FormReport
	reportErr error
	listed    []client.Submission
	full      map[string]client.Submission
	getErr    error
}

func (f *fakeSource) Questions(context.Context, string) ([]client.Question, error) {
	return f.questions, nil
}

func (f *fakeSource) Report(context.Context, string, bool) (*client.FormReport, error) {
	return f.report, f.reportErr
}

func (f *fakeSource) Submissions(context.Context, string) ([]client.Submission, error) {
	return f.listed, nil
}

func (f *fakeSource) Submission(_ context.Context, id string) (*client.Submission, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	sub := f.full[id]
	return &sub, nil
}

func TestLoaderPrefersReport(t *testing.T) {
	src := &fakeSource{
		questions: questions(),
		report:    &client.FormReport{Questions: []client.QuestionReport{{QuestionID: "q-choice", AnsweredCount: 1, Options: []client.OptionCount{{OptionID: "o1", Count: 1}}}}},
	}
	series, err := NewLoaderWithSource(src, nil).Load(context.Background(), "form-1", false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0}, series[0].Counts)
}

func TestLoaderFallsBackToSubmissions(t *testing.T) {
	src := &fakeSource{
		questions: questions(),
		reportErr: &client.APIError{Status: http.StatusInternalServerError},
		listed:    []client.Submission{{ID: "s1"}, {ID: "s2"}},
		full: map[string]client.Submission{
			"s1": {ID: "s1", Status: survey.SubmissionSubmitted, Answers: []client.Answer{{QuestionID: "q-choice", OptionIDs: []string{"o3"}}}},
			"s2": {ID: "s2", Status: survey.SubmissionSubmitted, Answers: []client.Answer{{QuestionID: "q-choice", OptionIDs: []string{"o3"}}}},
		},
	}
	series, err := NewLoaderWithSource(src, nil).Load(context.Background(), "form-1", false)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 2}, series[0].Counts)
}

func TestLoaderErrors(t *testing.T) {
	forbidden := &fakeSource{questions: questions(), reportErr: &client.APIError{Status: http.StatusForbidden}}
	_, err := NewLoaderWithSource(forbidden, nil).Load(context.Background(), "form-1", false)
	assert.True(t, client.IsStatus(err, http.StatusForbidden))

	broken := &fakeSource{
		questions: questions(),
		reportErr: errors.New("report down"),
		listed:    []client.Submission{{ID: "s1"}},
		getErr:    errors.New("fetch failed"),
	}
	_, err = NewLoaderWithSource(broken, nil).Load(context.Background(), "form-1", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report down")
	assert.Contains(t, err.Error(), "fetch failed")
}
