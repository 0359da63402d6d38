package bot

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"board_mirror/internal/model"
	"board_mirror/internal/syncer"
)

const (
	dateLayout  = "2006-01-02 15:04 UTC"
	previewSize = 300
)

// FormatStatus formats the cursor, stored thread count and last pass reports.
func FormatStatus(cur model.SyncCursor, threads int, reports []syncer.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stored threads: %d\n", threads)
	if cur.StorageRoot != "" {
		fmt.Fprintf(&b, "Storage: %s\n", cur.StorageRoot)
	}
	fmt.Fprintf(&b, "Catalog synced: %s\n", formatDate(cur.CatalogModifiedAt))
	fmt.Fprintf(&b, "Archive synced: %s\n", formatDate(cur.ArchiveModifiedAt))
	if cur.LastArchiveThreadID != 0 {
		fmt.Fprintf(&b, "Last archived thread: #%d\n", cur.LastArchiveThreadID)
	}

	if len(reports) == 0 {
		b.WriteString("\nNo pass has run yet.")
		return b.String()
	}
	for _, r := range reports {
		b.WriteString("\n")
		b.WriteString(FormatReport(r))
	}
	return b.String()
}

// FormatReport formats the result of one pass.
func FormatReport(r syncer.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s pass at %s (%s)", r.Kind, formatDate(r.StartedAt), r.Duration.Round(time.Second))
	if r.Err != nil {
		fmt.Fprintf(&b, " FAILED: %v", r.Err)
	}
	fmt.Fprintf(&b, "\n   %d new, %d updated, %d skipped, %d unchanged, %d failed\n",
		r.Created, r.Appended, r.Skipped, r.Unchanged, r.Failed)
	return b.String()
}

// FormatThread formats a stored thread record.
func FormatThread(id int64, rec *model.ThreadRecord) string {
	var b strings.Builder
	title := rec.Title
	if title == "" {
		title = "(no subject)"
	}
	fmt.Fprintf(&b, "#%d %s\n", id, title)
	fmt.Fprintf(&b, "Posted: %s\n", formatDate(rec.Date))
	fmt.Fprintf(&b, "Replies: %d", len(rec.Replies))
	if n := len(rec.Replies); n > 0 {
		fmt.Fprintf(&b, " (last %s)", formatDate(rec.Replies[n-1].Date))
	}
	b.WriteString("\n")
	if rec.ImageLink != "" {
		fmt.Fprintf(&b, "Image: %s\n", rec.ImageLink)
	}
	if rec.Text != "" {
		b.WriteString("\n")
		b.WriteString(preview(rec.Text))
	}
	return b.String()
}

// FormatAlert formats a forwarded log line.
func FormatAlert(level slog.Level, message string) string {
	return fmt.Sprintf("[%s] %s", level, message)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format(dateLayout)
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewSize {
		return s
	}
	return string(r[:previewSize]) + "..."
}
