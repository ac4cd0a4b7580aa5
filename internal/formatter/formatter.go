// package formatter provides functions to render job listings to various formats (CSV, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/restora-app/restora/internal/models"
)

// ExportToCSV converts a job listing to CSV format with columns: ID, ImageName, Status, StorageKey, CreatedAt
func ExportToCSV(jobs []models.Job) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "ImageName", "Status", "StorageKey", "CreatedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, job := range jobs {
		record := []string{
			strconv.FormatInt(job.ID, 10),
			job.ImageName,
			string(job.Status),
			job.StorageKey,
			job.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText converts one page of a job listing to an aligned plain-text
// table. Row numbers continue across pages, so the page size used for the
// fetch is required.
func ExportToText(page *models.JobPage, pageSize int) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%-4s %-30s %-12s %s\n", "#", "IMAGE NAME", "STATUS", "CREATED AT"))
	for i, job := range page.Jobs {
		row := (page.Page-1)*pageSize + i + 1
		buf.WriteString(fmt.Sprintf("%-4d %-30s %-12s %s\n",
			row,
			truncate(job.ImageName, 30),
			job.Status,
			job.CreatedAt.Local().Format("Jan 2 2006 15:04"),
		))
	}
	if len(page.Jobs) == 0 {
		buf.WriteString("No jobs found.\n")
	}
	buf.WriteString(fmt.Sprintf("\nPage %d of %d (%d total)\n", page.Page, page.LastPage, page.Total))

	return buf.Bytes()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
