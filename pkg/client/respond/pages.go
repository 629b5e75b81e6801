package respond

import (
	"github.com/noah-isme/survey-api/pkg/client"
	"github.com/noah-isme/survey-api/pkg/survey"
)

// PageCount is the number of pages. Paginated forms show one question per
// page; otherwise the whole form is one page.
func (f *Flow) PageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageCount()
}

func (f *Flow) pageCount() int {
	if f.form == nil {
		return 0
	}
	if !f.form.Paginated {
		return 1
	}
	return len(f.form.Questions)
}

// Page returns the zero based current page.
func (f *Flow) Page() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page
}

// PageQuestions returns the questions shown on the current page.
func (f *Flow) PageQuestions() []client.Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.form == nil {
		return nil
	}
	if !f.form.Paginated {
		return f.form.Questions
	}
	if f.page >= len(f.form.Questions) {
		return nil
	}
	return f.form.Questions[f.page : f.page+1]
}

// Next advances one page and reports whether it moved.
func (f *Flow) Next() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.page+1 >= f.pageCount() {
		return false
	}
	f.page++
	return true
}

// Prev goes back one page and reports whether it moved.
func (f *Flow) Prev() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.page == 0 {
		return false
	}
	f.page--
	return true
}

// Progress returns the completion percentage of the current page. ok is false
// when the form hides its progress bar.
func (f *Flow) Progress() (percent int, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.form == nil || !f.form.ShowProgress {
		return 0, false
	}
	return survey.Progress(f.page, f.pageCount()), true
}
