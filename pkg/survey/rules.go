package survey

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports a rule violation on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ValidateSchedule requires end to be strictly after start when both are set.
func ValidateSchedule(start, end *time.Time) error {
	if start == nil || end == nil {
		return nil
	}
	if !end.After(*start) {
		return invalid("schedule", "end must be after start")
	}
	return nil
}

// ApplyAccessMode returns the anonymity flag that results from switching to mode.
// Anything other than PUBLIC forces anonymous mode off.
func ApplyAccessMode(mode AccessMode, anonymous bool) bool {
	if mode != AccessPublic {
		return false
	}
	return anonymous
}

// ValidateAnonymous rejects anonymous mode on non-public forms.
func ValidateAnonymous(mode AccessMode, anonymous bool) error {
	if anonymous && mode != AccessPublic {
		return invalid("anonymousMode", "anonymous mode requires PUBLIC access")
	}
	return nil
}

// ValidateLimitPolicy checks the response limit mode and its N.
func ValidateLimitPolicy(mode ResponseLimitMode, limitedN *int) error {
	switch mode {
	case LimitLimitedN:
		if limitedN == nil || *limitedN < 1 {
			return invalid("limitedN", "limitedN must be at least 1")
		}
	case LimitOnePerUser, LimitUnlimited:
		if limitedN != nil {
			return invalid("limitedN", "limitedN only applies to LIMITED_N")
		}
	default:
		return invalid("responseLimitMode", "unknown response limit mode")
	}
	return nil
}

// ValidateTheme checks the theme mode and primary color.
func ValidateTheme(mode ThemeMode, primary string) error {
	if mode != ThemeLight && mode != ThemeDark {
		return invalid("themeMode", "theme mode must be light or dark")
	}
	primary = strings.TrimSpace(primary)
	if primary == "" {
		return invalid("themePrimary", "primary color is required")
	}
	if len(primary) > MaxThemePrimaryLength {
		return invalid("themePrimary", fmt.Sprintf("primary color exceeds %d characters", MaxThemePrimaryLength))
	}
	return nil
}

// ValidateTitle checks a required, bounded title.
func ValidateTitle(field, title string, max int) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return invalid(field, "is required")
	}
	if len([]rune(title)) > max {
		return invalid(field, fmt.Sprintf("exceeds %d characters", max))
	}
	return nil
}

// ValidateChoiceOptions checks that a CHOICE question has enough options and
// that selection bounds fit the option count.
func ValidateChoiceOptions(labels []string, mode SelectionMode, minSel, maxSel *int) error {
	if len(labels) < 2 {
		return invalid("options", "at least two options are required")
	}
	for i, label := range labels {
		if strings.TrimSpace(label) == "" {
			return invalid("options", fmt.Sprintf("option %d has an empty label", i+1))
		}
	}
	if mode != SelectionSingle && mode != SelectionMulti {
		return invalid("selectionMode", "selection mode must be SINGLE or MULTI")
	}
	if mode == SelectionSingle && (minSel != nil || maxSel != nil) {
		return invalid("selectionMode", "selection bounds only apply to MULTI")
	}
	if minSel != nil && *minSel < 0 {
		return invalid("minSelections", "must not be negative")
	}
	if maxSel != nil && (*maxSel < 1 || *maxSel > len(labels)) {
		return invalid("maxSelections", "must be between 1 and the number of options")
	}
	if minSel != nil && maxSel != nil && *minSel > *maxSel {
		return invalid("minSelections", "must not exceed maxSelections")
	}
	return nil
}

// ValidateTextBounds checks TEXT length bounds.
func ValidateTextBounds(minLen, maxLen *int) error {
	if minLen != nil && *minLen < 0 {
		return invalid("minLength", "must not be negative")
	}
	if maxLen != nil && *maxLen < 1 {
		return invalid("maxLength", "must be positive")
	}
	if minLen != nil && maxLen != nil && *minLen > *maxLen {
		return invalid("minLength", "must not exceed maxLength")
	}
	return nil
}

// KeyPair maps a left item index to a right item index.
type KeyPair struct {
	LeftIndex  int `json:"leftIndex"`
	RightIndex int `json:"rightIndex"`
}

// ValidateMatchingKey checks matching items and the answer key.
func ValidateMatchingKey(left, right []string, key []KeyPair) error {
	if len(left) == 0 || len(right) == 0 {
		return invalid("items", "both columns need at least one item")
	}
	usedLeft := make(map[int]struct{}, len(key))
	for _, p := range key {
		if p.LeftIndex < 0 || p.LeftIndex >= len(left) {
			return invalid("keyPairs", fmt.Sprintf("left index %d out of range", p.LeftIndex))
		}
		if p.RightIndex < 0 || p.RightIndex >= len(right) {
			return invalid("keyPairs", fmt.Sprintf("right index %d out of range", p.RightIndex))
		}
		if _, dup := usedLeft[p.LeftIndex]; dup {
			return invalid("keyPairs", fmt.Sprintf("left index %d mapped twice", p.LeftIndex))
		}
		usedLeft[p.LeftIndex] = struct{}{}
	}
	return nil
}

var formTransitions = map[FormStatus][]FormStatus{
	FormDraft:     {FormPublished, FormArchived},
	FormPublished: {FormClosed, FormArchived},
	FormClosed:    {FormArchived},
}

// CanTransitionForm reports whether a form may move from one status to another.
// Staying in the same status is always allowed.
func CanTransitionForm(from, to FormStatus) bool {
	if from == to {
		return true
	}
	for _, next := range formTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:  {CampaignActive, CampaignArchived},
	CampaignActive: {CampaignClosed, CampaignArchived},
	CampaignClosed: {CampaignArchived},
}

// CanTransitionCampaign reports whether a campaign may move between statuses.
func CanTransitionCampaign(from, to CampaignStatus) bool {
	if from == to {
		return true
	}
	for _, next := range campaignTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
