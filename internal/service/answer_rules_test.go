package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/pkg/survey"
)

func TestCheckAnswer(t *testing.T) {
	multi := models.Question{
		ID:       "q-multi",
		Type:     survey.QuestionChoice,
		Required: true,
		Settings: models.QuestionSettings{SelectionMode: survey.SelectionMulti, MinSelections: intRef(2), MaxSelections: intRef(2)},
		Options:  models.QuestionOptions{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	}
	text := models.Question{
		ID:       "q-text",
		Type:     survey.QuestionText,
		Settings: models.QuestionSettings{TextMode: survey.TextLong, MinLength: intRef(3)},
	}
	matching := models.Question{
		ID:   "q-match",
		Type: survey.QuestionMatching,
		Settings: models.QuestionSettings{
			LeftItems:  []models.MatchingItem{{ID: "l1"}, {ID: "l2"}},
			RightItems: []models.MatchingItem{{ID: "r1"}, {ID: "r2"}},
		},
	}

	cases := []struct {
		name    string
		q       models.Question
		a       *models.SubmissionAnswer
		final   bool
		wantErr bool
	}{
		{"required missing on draft", multi, nil, false, false},
		{"required missing on submit", multi, nil, true, true},
		{"below minimum on draft", multi, &models.SubmissionAnswer{OptionIDs: []string{"a"}}, false, false},
		{"below minimum on submit", multi, &models.SubmissionAnswer{OptionIDs: []string{"a"}}, true, true},
		{"above maximum", multi, &models.SubmissionAnswer{OptionIDs: []string{"a", "b", "c"}}, false, true},
		{"duplicate option", multi, &models.SubmissionAnswer{OptionIDs: []string{"a", "a"}}, false, true},
		{"within bounds", multi, &models.SubmissionAnswer{OptionIDs: []string{"a", "c"}}, true, false},
		{"short text on draft", text, &models.SubmissionAnswer{TextValue: strRef("ab")}, false, false},
		{"short text on submit", text, &models.SubmissionAnswer{TextValue: strRef("ab")}, true, true},
		{"optional blank text", text, &models.SubmissionAnswer{TextValue: strRef("  ")}, true, false},
		{"valid pairs", matching, &models.SubmissionAnswer{Pairs: models.MatchingPairs{{LeftID: "l1", RightID: "r2"}, {LeftID: "l2", RightID: "r1"}}}, true, false},
		{"partial pairs", matching, &models.SubmissionAnswer{Pairs: models.MatchingPairs{{LeftID: "l1", RightID: "r2"}}}, true, false},
		{"reused right item", matching, &models.SubmissionAnswer{Pairs: models.MatchingPairs{{LeftID: "l1", RightID: "r1"}, {LeftID: "l2", RightID: "r1"}}}, false, true},
		{"unknown left item", matching, &models.SubmissionAnswer{Pairs: models.MatchingPairs{{LeftID: "x", RightID: "r1"}}}, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkAnswer(tc.q, tc.a, tc.final)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			var vErr *survey.ValidationError
			if assert.True(t, errors.As(err, &vErr)) {
				assert.Equal(t, tc.q.ID, vErr.Field)
			}
		})
	}
}
