// package history implements the paginated read model over the user's jobs.
//
// Pager keeps one window of jobs plus the cursor state derived from the
// latest response. It never merges results across pages: a successful fetch
// replaces the window wholesale, and a failed fetch leaves the prior window
// visible behind an inline error. Overlapping fetches are defused by tagging
// each request with a sequence number and discarding any response that is no
// longer for the currently requested page.
package history

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/restora-app/restora/internal/models"
	"github.com/restora-app/restora/internal/shared"
)

// PageSize is the fixed job-listing window, matching the backend default.
const PageSize = 5

// JobLister is the slice of the backend API the pager consumes.
type JobLister interface {
	ListJobs(ctx context.Context, page, limit int) (*models.JobPage, error)
}

// State is a renderable snapshot of the pager.
type State struct {
	Jobs       []models.Job
	Page       int
	LastPage   int
	Total      int
	Loading    bool
	Refreshing bool
	Err        string
}

// Pager is a manually-refreshed, paginated view over previously created
// jobs. It is independent of the upload pipeline: a completed upload never
// refreshes it.
type Pager struct {
	jobs   JobLister
	logger *log.Logger

	mu         sync.Mutex
	page       int
	lastPage   int
	total      int
	list       []models.Job
	loading    bool
	refreshing bool
	errMsg     string
	seq        uint64
}

// NewPager creates a pager positioned on page 1 with nothing fetched yet.
func NewPager(jobs JobLister, logger *log.Logger) *Pager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Pager{jobs: jobs, logger: logger, page: 1, lastPage: 1}
}

// FetchPage requests the 1-indexed page n and applies the result only if the
// pager still wants that page when the response lands. Stale responses are
// logged and dropped.
func (p *Pager) FetchPage(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}

	p.mu.Lock()
	p.seq++
	id := p.seq
	p.page = n
	p.loading = true
	p.errMsg = ""
	p.mu.Unlock()

	result, err := p.jobs.ListJobs(ctx, n, PageSize)

	p.mu.Lock()
	defer p.mu.Unlock()

	if id != p.seq || n != p.page {
		p.logger.Debugf("discarding stale response for page %d", n)
		return nil
	}

	p.loading = false
	p.refreshing = false

	if err != nil {
		p.errMsg = "Failed to load jobs."
		p.logger.Warnf("job fetch failed: %v", err)
		return err
	}

	p.list = result.Jobs
	p.total = result.Total
	p.lastPage = result.LastPage
	return nil
}

// Refresh re-issues the fetch for the current page. Behavior is identical to
// FetchPage; the refreshing flag only drives presentation.
func (p *Pager) Refresh(ctx context.Context) error {
	p.mu.Lock()
	page := p.page
	p.refreshing = true
	p.mu.Unlock()
	return p.FetchPage(ctx, page)
}

// Next advances one page when allowed.
func (p *Pager) Next(ctx context.Context) error {
	p.mu.Lock()
	if p.loading || p.page >= p.lastPage {
		p.mu.Unlock()
		return nil
	}
	page := p.page + 1
	p.mu.Unlock()
	return p.FetchPage(ctx, page)
}

// Prev steps back one page when allowed.
func (p *Pager) Prev(ctx context.Context) error {
	p.mu.Lock()
	if p.loading || p.page <= 1 {
		p.mu.Unlock()
		return nil
	}
	page := p.page - 1
	p.mu.Unlock()
	return p.FetchPage(ctx, page)
}

// CanPrev reports whether the previous-page affordance is enabled.
func (p *Pager) CanPrev() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.loading && p.page > 1
}

// CanNext reports whether the next-page affordance is enabled.
func (p *Pager) CanNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.loading && p.page < p.lastPage
}

// State returns a renderable snapshot.
func (p *Pager) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	jobs := make([]models.Job, len(p.list))
	copy(jobs, p.list)
	return State{
		Jobs:       jobs,
		Page:       p.page,
		LastPage:   p.lastPage,
		Total:      p.total,
		Loading:    p.loading,
		Refreshing: p.refreshing,
		Err:        p.errMsg,
	}
}
