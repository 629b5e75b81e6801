package charts

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/noah-isme/survey-api/pkg/client"
)

var errNoReport = errors.New("report missing")

// Source is the subset of the API used to build charts.
type Source interface {
	Questions(ctx context.Context, formID string) ([]client.Question, error)
	Report(ctx context.Context, formID string, includeDrafts bool) (*client.FormReport, error)
	Submissions(ctx context.Context, formID string) ([]client.Submission, error)
	Submission(ctx context.Context, id string) (*client.Submission, error)
}

// Loader fetches a form's questions and report and builds its series.
type Loader struct {
	src    Source
	logger *zap.Logger
}

// NewLoader builds a loader over an API client.
func NewLoader(c *client.Client, logger *zap.Logger) *Loader {
	return NewLoaderWithSource(apiSource{c: c}, logger)
}

// NewLoaderWithSource builds a loader over an explicit source.
func NewLoaderWithSource(src Source, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{src: src, logger: logger}
}

// Load returns one series per question. The report endpoint is preferred;
// if it fails with anything but an authorization error the series are
// counted from raw submissions.
func (l *Loader) Load(ctx context.Context, formID string, includeDrafts bool) ([]Series, error) {
	var (
		wg        sync.WaitGroup
		questions []client.Question
		report    *client.FormReport
		qErr      error
		rErr      error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		questions, qErr = l.src.Questions(ctx, formID)
	}()
	go func() {
		defer wg.Done()
		report, rErr = l.src.Report(ctx, formID, includeDrafts)
	}()
	wg.Wait()

	if qErr != nil {
		return nil, qErr
	}
	if rErr == nil && report == nil {
		rErr = errNoReport
	}
	if rErr == nil {
		return FromReport(questions, *report), nil
	}
	if client.IsStatus(rErr, http.StatusUnauthorized) || client.IsStatus(rErr, http.StatusForbidden) {
		return nil, rErr
	}
	l.logger.Warn("report unavailable, counting raw submissions", zap.String("form_id", formID), zap.Error(rErr))

	subs, err := l.fetchSubmissions(ctx, formID)
	if err != nil {
		return nil, multierr.Append(rErr, err)
	}
	return FromSubmissions(questions, subs, includeDrafts), nil
}

// fetchSubmissions lists submissions and loads their answers concurrently.
func (l *Loader) fetchSubmissions(ctx context.Context, formID string) ([]client.Submission, error) {
	listed, err := l.src.Submissions(ctx, formID)
	if err != nil {
		return nil, err
	}

	full := make([]client.Submission, len(listed))
	errs := make([]error, len(listed))
	var wg sync.WaitGroup
	for i, sub := range listed {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			got, err := l.src.Submission(ctx, id)
			if err != nil {
				errs[i] = err
				return
			}
			full[i] = *got
		}(i, sub.ID)
	}
	wg.Wait()

	if err := multierr.Combine(errs...); err != nil {
		return nil, err
	}
	return full, nil
}

type apiSource struct {
	c *client.Client
}

func (s apiSource) Questions(ctx context.Context, formID string) ([]client.Question, error) {
	return s.c.Questions.All(ctx, formID)
}

func (s apiSource) Report(ctx context.Context, formID string, includeDrafts bool) (*client.FormReport, error) {
	return s.c.Reports.FormReport(ctx, formID, includeDrafts)
}

func (s apiSource) Submissions(ctx context.Context, formID string) ([]client.Submission, error) {
	var all []client.Submission
	for page := 1; ; page++ {
		res, err := s.c.Submissions.List(ctx, formID, client.ListOptions{Page: page, Size: 100})
		if err != nil {
			return nil, err
		}
		all = append(all, res.Items...)
		if len(res.Items) == 0 || len(all) >= res.Total {
			return all, nil
		}
	}
}

func (s apiSource) Submission(ctx context.Context, id string) (*client.Submission, error) {
	return s.c.Submissions.Get(ctx, id)
}
