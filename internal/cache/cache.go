// package cache provides a local read-through cache of fetched job pages.
//
// The backend is the source of truth; the cache only holds the last page the
// client saw per subject so `restora jobs list --cached` works offline and
// the TUI can paint last-known status before the first fetch lands. Pages are
// replaced wholesale, mirroring the history view's no-merge rule.
package cache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/restora-app/restora/internal/models"
)

// JobCache stores job projections in a local SQLite database.
type JobCache struct {
	db *sql.DB
}

// NewJobCache creates a cache over the given database connection and ensures
// the schema exists.
func NewJobCache(db *sql.DB) (*JobCache, error) {
	c := &JobCache{db: db}
	if err := c.ensureSchema(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *JobCache) ensureSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS jobs (
			id INTEGER NOT NULL,
			owner_id TEXT NOT NULL,
			image_name TEXT NOT NULL,
			storage_key TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			page INTEGER NOT NULL,
			fetched_at TIMESTAMP NOT NULL,
			PRIMARY KEY (id, owner_id)
		)
	`
	if _, err := c.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}
	return nil
}

// ReplacePage swaps the cached rows for one page of one subject's listing.
// Rows from a prior fetch of the same page never survive, matching the
// view's replace-not-merge contract.
func (c *JobCache) ReplacePage(ownerID string, page int, jobs []models.Job) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM jobs WHERE owner_id = ? AND page = ?`, ownerID, page); err != nil {
		return fmt.Errorf("failed to clear cached page: %w", err)
	}

	now := time.Now()
	for _, job := range jobs {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO jobs (id, owner_id, image_name, storage_key, status, created_at, page, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID, ownerID, job.ImageName, job.StorageKey, string(job.Status), job.CreatedAt, page, now,
		)
		if err != nil {
			return fmt.Errorf("failed to cache job %d: %w", job.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache transaction: %w", err)
	}
	return nil
}

// Page returns the cached rows for one page of one subject's listing, newest
// first. A page that was never fetched comes back empty, not as an error.
func (c *JobCache) Page(ownerID string, page int) ([]models.Job, error) {
	rows, err := c.db.Query(`
		SELECT id, image_name, storage_key, status, created_at
		FROM jobs
		WHERE owner_id = ? AND page = ?
		ORDER BY created_at DESC`,
		ownerID, page,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached jobs: %w", err)
	}
	defer rows.Close()

	return c.scan(rows)
}

// Recent returns up to limit cached jobs for the subject across all pages,
// newest first.
func (c *JobCache) Recent(ownerID string, limit int) ([]models.Job, error) {
	rows, err := c.db.Query(`
		SELECT id, image_name, storage_key, status, created_at
		FROM jobs
		WHERE owner_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached jobs: %w", err)
	}
	defer rows.Close()

	return c.scan(rows)
}

// Clear drops every cached row for the subject. Called on logout so one
// user's history never leaks into another's session.
func (c *JobCache) Clear(ownerID string) error {
	if _, err := c.db.Exec(`DELETE FROM jobs WHERE owner_id = ?`, ownerID); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (c *JobCache) scan(rows *sql.Rows) ([]models.Job, error) {
	var jobs []models.Job
	for rows.Next() {
		var job models.Job
		var status string
		if err := rows.Scan(&job.ID, &job.ImageName, &job.StorageKey, &status, &job.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cached job: %w", err)
		}
		job.Status = models.JobStatus(status)
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cached jobs: %w", err)
	}
	return jobs, nil
}
