// Package survey holds the domain vocabulary and invariants shared by the API
// and the client SDK.
package survey

// AccessMode controls who may open a form.
type AccessMode string

const (
	AccessPublic     AccessMode = "PUBLIC"
	AccessPrivate    AccessMode = "PRIVATE"
	AccessRestricted AccessMode = "RESTRICTED"
)

// Valid reports whether the access mode is known.
func (m AccessMode) Valid() bool {
	return m == AccessPublic || m == AccessPrivate || m == AccessRestricted
}

// FormStatus is the form lifecycle state.
type FormStatus string

const (
	FormDraft     FormStatus = "DRAFT"
	FormPublished FormStatus = "PUBLISHED"
	FormClosed    FormStatus = "CLOSED"
	FormArchived  FormStatus = "ARCHIVED"
)

// CampaignStatus is the campaign lifecycle state.
type CampaignStatus string

const (
	CampaignDraft    CampaignStatus = "DRAFT"
	CampaignActive   CampaignStatus = "ACTIVE"
	CampaignClosed   CampaignStatus = "CLOSED"
	CampaignArchived CampaignStatus = "ARCHIVED"
)

// ResponseLimitMode caps how many submissions a form accepts.
type ResponseLimitMode string

const (
	LimitOnePerUser ResponseLimitMode = "ONE_PER_USER"
	LimitLimitedN   ResponseLimitMode = "LIMITED_N"
	LimitUnlimited  ResponseLimitMode = "UNLIMITED"
)

// ThemeMode selects the light or dark palette.
type ThemeMode string

const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
)

// DefaultThemePrimary is applied when a form is created without a color.
const DefaultThemePrimary = "#3b82f6"

// QuestionType discriminates the four question variants.
type QuestionType string

const (
	QuestionChoice    QuestionType = "CHOICE"
	QuestionTrueFalse QuestionType = "TRUE_FALSE"
	QuestionText      QuestionType = "TEXT"
	QuestionMatching  QuestionType = "MATCHING"
)

// Valid reports whether the question type is known.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionChoice, QuestionTrueFalse, QuestionText, QuestionMatching:
		return true
	default:
		return false
	}
}

// Endpoint returns the path segment used to create questions of this type.
func (t QuestionType) Endpoint() string {
	switch t {
	case QuestionChoice:
		return "choice"
	case QuestionTrueFalse:
		return "true-false"
	case QuestionText:
		return "text"
	case QuestionMatching:
		return "matching"
	default:
		return ""
	}
}

// SelectionMode applies to CHOICE questions.
type SelectionMode string

const (
	SelectionSingle SelectionMode = "SINGLE"
	SelectionMulti  SelectionMode = "MULTI"
)

// TextMode applies to TEXT questions.
type TextMode string

const (
	TextShort TextMode = "SHORT"
	TextLong  TextMode = "LONG"
)

// SubmissionStatus is the submission lifecycle state.
type SubmissionStatus string

const (
	SubmissionDraft     SubmissionStatus = "DRAFT"
	SubmissionSubmitted SubmissionStatus = "SUBMITTED"
)

// RespondentType identifies how a submission was attributed.
type RespondentType string

const (
	RespondentUser      RespondentType = "USER"
	RespondentAnonymous RespondentType = "ANONYMOUS"
)

// Default true/false labels used when a question does not override them.
const (
	DefaultTrueLabel  = "True"
	DefaultFalseLabel = "False"
)

// Field length limits.
const (
	MaxTitleLength        = 200
	MaxCampaignNameLength = 150
	MaxThemePrimaryLength = 20
)
