package main

import (
	"context"
	"errors"
	"time"

	"github.com/restora-app/restora/internal/formatter"
	"github.com/restora-app/restora/internal/history"
	"github.com/restora-app/restora/internal/models"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// JobsList prints one page of the logged-in user's jobs. With --cached the
// page is served from the local cache without touching the backend.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.guard.Require(); err != nil {
		return err
	}

	page := int(cmd.Int("page"))
	if page < 1 {
		page = 1
	}

	if cmd.Bool("cached") {
		return r.listCached(page, cmd.Bool("json"), cmd.Bool("csv"))
	}

	result, err := r.client.ListJobs(ctx, page, history.PageSize)
	if err != nil {
		return err
	}

	r.cachePage(page, result.Jobs)
	return r.renderJobs(result, cmd.Bool("json"), cmd.Bool("csv"))
}

// listCached serves the requested page from the local cache. Last-known data
// only; the banner makes that explicit.
func (r *Runner) listCached(page int, asJSON, asCSV bool) error {
	sess, _ := r.guard.Current()
	jobs, err := r.jobCache()
	if err != nil {
		return err
	}

	cached, err := jobs.Page(sess.SubjectID, page)
	if err != nil {
		return err
	}

	if !asJSON && !asCSV {
		r.writePlain("(cached copy, may be stale)\n")
	}
	return r.renderJobs(&models.JobPage{Jobs: cached, Page: page, LastPage: page, Total: len(cached)}, asJSON, asCSV)
}

// cachePage stores a freshly fetched page; a cache failure is logged, never
// surfaced, because the live response already answered the user.
func (r *Runner) cachePage(page int, jobs []models.Job) {
	sess, ok := r.guard.Current()
	if !ok {
		return
	}
	store, err := r.jobCache()
	if err != nil {
		r.logger.Warnf("job cache unavailable: %v", err)
		return
	}
	if err := store.ReplacePage(sess.SubjectID, page, jobs); err != nil {
		r.logger.Warnf("failed to cache jobs: %v", err)
	}
}

func (r *Runner) renderJobs(page *models.JobPage, asJSON, asCSV bool) error {
	switch {
	case asJSON:
		return r.writeJSON(page.Jobs, true)
	case asCSV:
		data, err := formatter.ExportToCSV(page.Jobs)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	default:
		return r.writePlain("%s", formatter.ExportToText(page, history.PageSize))
	}
}

// JobsWatch polls the requested page until the context is cancelled. Polling
// is paced by a rate limiter rather than a bare ticker so a slow backend
// response never stacks requests.
func (r *Runner) JobsWatch(ctx context.Context, cmd *cli.Command) error {
	if err := r.guard.Require(); err != nil {
		return err
	}

	page := int(cmd.Int("page"))
	if page < 1 {
		page = 1
	}
	interval := time.Duration(cmd.Int("interval")) * time.Second
	if interval < time.Second {
		interval = time.Second
	}

	pager := history.NewPager(r.client, r.logger)
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	r.writePlain("Watching page %d every %s (ctrl+c to stop)\n\n", page, interval)
	for {
		if err := limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if err := pager.FetchPage(ctx, page); err != nil {
			return err
		}

		state := pager.State()
		r.cachePage(page, state.Jobs)
		r.writePlain("--- %s ---\n", time.Now().Local().Format(time.Kitchen))
		r.writePlain("%s", formatter.ExportToText(&models.JobPage{
			Jobs:     state.Jobs,
			Page:     state.Page,
			LastPage: state.LastPage,
			Total:    state.Total,
		}, history.PageSize))
	}
}
