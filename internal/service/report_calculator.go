package service

import (
	"math"
	"time"

	"github.com/noah-isme/survey-api/internal/models"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// buildFormReport aggregates answers per question. Only SUBMITTED
// submissions are counted unless includeDrafts is set.
func buildFormReport(form *models.Form, questions []models.Question, submissions []models.Submission, answers []models.SubmissionAnswer, includeDrafts bool, now time.Time) *models.FormReport {
	report := &models.FormReport{
		FormID:           form.ID,
		Title:            form.Title,
		IncludeDrafts:    includeDrafts,
		TotalSubmissions: len(submissions),
		Questions:        make([]models.QuestionReport, 0, len(questions)),
		GeneratedAt:      now,
	}

	counted := make([]string, 0, len(submissions))
	for _, sub := range submissions {
		if sub.Status == survey.SubmissionSubmitted {
			report.SubmittedCount++
		} else {
			report.DraftCount++
		}
		if sub.Status == survey.SubmissionSubmitted || includeDrafts {
			counted = append(counted, sub.ID)
		}
	}
	report.CompletionRate = completionRate(report.SubmittedCount, report.TotalSubmissions)

	bySubmission := make(map[string]map[string]*models.SubmissionAnswer, len(counted))
	for i := range answers {
		a := &answers[i]
		if bySubmission[a.SubmissionID] == nil {
			bySubmission[a.SubmissionID] = make(map[string]*models.SubmissionAnswer)
		}
		bySubmission[a.SubmissionID][a.QuestionID] = a
	}

	for _, q := range questions {
		qr := models.QuestionReport{QuestionID: q.ID, Type: q.Type, Prompt: q.Prompt}
		var collected []*models.SubmissionAnswer
		for _, subID := range counted {
			a := bySubmission[subID][q.ID]
			if answerEmpty(q, a) {
				qr.OmittedCount++
				continue
			}
			qr.AnsweredCount++
			collected = append(collected, a)
		}
		switch q.Type {
		case survey.QuestionChoice:
			qr.Options = tallyOptions(q.Options, collected, func(a *models.SubmissionAnswer) []string { return a.OptionIDs })
		case survey.QuestionTrueFalse:
			qr.Options = tallyOptions(q.Options, collected, func(a *models.SubmissionAnswer) []string {
				if *a.BoolValue {
					return []string{TrueOptionID}
				}
				return []string{FalseOptionID}
			})
			trueCount, falseCount := 0, 0
			for _, a := range collected {
				if *a.BoolValue {
					trueCount++
				} else {
					falseCount++
				}
			}
			qr.TrueCount = &trueCount
			qr.FalseCount = &falseCount
		case survey.QuestionText:
			qr.Responses = make([]string, 0, len(collected))
			for _, a := range collected {
				qr.Responses = append(qr.Responses, *a.TextValue)
			}
		case survey.QuestionMatching:
			qr.Pairs = tallyPairs(q.Settings, collected)
		}
		report.Questions = append(report.Questions, qr)
	}
	return report
}

// tallyOptions counts selections per option, keeping declaration order.
func tallyOptions(options models.QuestionOptions, answers []*models.SubmissionAnswer, selected func(*models.SubmissionAnswer) []string) []models.OptionCount {
	counts := make([]models.OptionCount, len(options))
	index := make(map[string]int, len(options))
	for i, opt := range options {
		counts[i] = models.OptionCount{OptionID: opt.ID, Label: opt.Label}
		index[opt.ID] = i
	}
	for _, a := range answers {
		for _, id := range selected(a) {
			if i, ok := index[id]; ok {
				counts[i].Count++
			}
		}
	}
	return counts
}

// tallyPairs counts each observed left/right pairing, ordered by the left
// column and then the right column.
func tallyPairs(settings models.QuestionSettings, answers []*models.SubmissionAnswer) []models.PairCount {
	type key struct{ left, right string }
	seen := make(map[key]int)
	for _, a := range answers {
		for _, p := range a.Pairs {
			seen[key{p.LeftID, p.RightID}]++
		}
	}
	pairs := make([]models.PairCount, 0, len(seen))
	for _, left := range settings.LeftItems {
		for _, right := range settings.RightItems {
			if n := seen[key{left.ID, right.ID}]; n > 0 {
				pairs = append(pairs, models.PairCount{LeftID: left.ID, LeftLabel: left.Label, RightID: right.ID, RightLabel: right.Label, Count: n})
			}
		}
	}
	return pairs
}

// completionRate is the submitted share as a percentage with two decimals.
func completionRate(submitted, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(submitted)/float64(total)*10000) / 100
}

// mergeCampaignReport sums form reports into a campaign report.
func mergeCampaignReport(campaign *models.Campaign, forms []models.FormReport, now time.Time) *models.CampaignReport {
	report := &models.CampaignReport{
		CampaignID:  campaign.ID,
		Name:        campaign.Name,
		FormsCount:  len(forms),
		Forms:       forms,
		GeneratedAt: now,
	}
	if report.Forms == nil {
		report.Forms = []models.FormReport{}
	}
	for _, f := range forms {
		report.TotalSubmissions += f.TotalSubmissions
		report.SubmittedCount += f.SubmittedCount
		report.DraftCount += f.DraftCount
	}
	report.CompletionRate = completionRate(report.SubmittedCount, report.TotalSubmissions)
	return report
}
