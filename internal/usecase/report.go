package usecase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Message renders the summary as a short Markdown notification.
func (s Summary) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Design run %s*\n", s.RunID)
	if s.DryRun {
		b.WriteString("_dry run, nothing published_\n")
	}
	fmt.Fprintf(&b, "uploaded: %d\nskipped: %d\nfailed: %d\ntotal: %d\n",
		s.Uploaded, s.Skipped, s.Failed, s.Total)
	fmt.Fprintf(&b, "took %s", s.Finished.Sub(s.Started).Round(time.Second))
	return b.String()
}

// WriteReport persists a run summary as JSON for whatever reads run
// history later, cron mails or a dashboard.
func WriteReport(path string, summary Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write run report: %w", err)
	}
	return nil
}
