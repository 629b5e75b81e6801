package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// answerEmpty reports whether an answer carries no value for its question type.
func answerEmpty(q models.Question, a *models.SubmissionAnswer) bool {
	if a == nil {
		return true
	}
	switch q.Type {
	case survey.QuestionChoice:
		return len(a.OptionIDs) == 0
	case survey.QuestionTrueFalse:
		return a.BoolValue == nil
	case survey.QuestionText:
		return a.TextValue == nil || strings.TrimSpace(*a.TextValue) == ""
	case survey.QuestionMatching:
		return len(a.Pairs) == 0
	default:
		return true
	}
}

// checkAnswer validates an answer against its question. Completeness rules
// (required, minimum selections and minimum length) only apply when final is
// set so drafts can be saved piecemeal.
func checkAnswer(q models.Question, a *models.SubmissionAnswer, final bool) error {
	if answerEmpty(q, a) {
		if final && q.Required {
			return answerInvalid(q, "an answer is required")
		}
		return nil
	}

	switch q.Type {
	case survey.QuestionChoice:
		known := make(map[string]struct{}, len(q.Options))
		for _, opt := range q.Options {
			known[opt.ID] = struct{}{}
		}
		seen := make(map[string]struct{}, len(a.OptionIDs))
		for _, id := range a.OptionIDs {
			if _, ok := known[id]; !ok {
				return answerInvalid(q, fmt.Sprintf("option %s does not belong to the question", id))
			}
			if _, dup := seen[id]; dup {
				return answerInvalid(q, fmt.Sprintf("option %s selected twice", id))
			}
			seen[id] = struct{}{}
		}
		count := len(a.OptionIDs)
		if q.Settings.SelectionMode != survey.SelectionMulti {
			if count > 1 {
				return answerInvalid(q, "exactly one option must be selected")
			}
			return nil
		}
		if limit := q.Settings.MaxSelections; limit != nil && count > *limit {
			return answerInvalid(q, fmt.Sprintf("select at most %d options", *limit))
		}
		if limit := q.Settings.MinSelections; final && limit != nil && count < *limit {
			return answerInvalid(q, fmt.Sprintf("select at least %d options", *limit))
		}
	case survey.QuestionText:
		length := utf8.RuneCountInString(strings.TrimSpace(*a.TextValue))
		if limit := q.Settings.MaxLength; limit != nil && length > *limit {
			return answerInvalid(q, fmt.Sprintf("answer exceeds %d characters", *limit))
		}
		if limit := q.Settings.MinLength; final && limit != nil && length < *limit {
			return answerInvalid(q, fmt.Sprintf("answer needs at least %d characters", *limit))
		}
	case survey.QuestionMatching:
		left := itemIDs(q.Settings.LeftItems)
		right := itemIDs(q.Settings.RightItems)
		usedLeft := make(map[string]struct{}, len(a.Pairs))
		usedRight := make(map[string]struct{}, len(a.Pairs))
		for _, p := range a.Pairs {
			if _, ok := left[p.LeftID]; !ok {
				return answerInvalid(q, fmt.Sprintf("left item %s does not belong to the question", p.LeftID))
			}
			if _, ok := right[p.RightID]; !ok {
				return answerInvalid(q, fmt.Sprintf("right item %s does not belong to the question", p.RightID))
			}
			if _, dup := usedLeft[p.LeftID]; dup {
				return answerInvalid(q, fmt.Sprintf("left item %s matched twice", p.LeftID))
			}
			if _, dup := usedRight[p.RightID]; dup {
				return answerInvalid(q, fmt.Sprintf("right item %s used twice", p.RightID))
			}
			usedLeft[p.LeftID] = struct{}{}
			usedRight[p.RightID] = struct{}{}
		}
	}
	return nil
}

func answerInvalid(q models.Question, message string) *survey.ValidationError {
	return &survey.ValidationError{Field: q.ID, Message: message}
}

func itemIDs(items []models.MatchingItem) map[string]struct{} {
	ids := make(map[string]struct{}, len(items))
	for _, item := range items {
		ids[item.ID] = struct{}{}
	}
	return ids
}
