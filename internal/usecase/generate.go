package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"teepress/internal/ports"
)

// Generator produces fresh design images for a collection and hands them
// straight to the pipeline.
type Generator struct {
	client   ports.Generator
	pipeline *Pipeline
	dir      string
	logger   *slog.Logger

	now  func() time.Time
	pick func(n int) int
}

func NewGenerator(client ports.Generator, pipeline *Pipeline, dir string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:   client,
		pipeline: pipeline,
		dir:      dir,
		logger:   logger,
		now:      time.Now,
		pick:     rand.Intn,
	}
}

// GenerateBatch creates count designs for the collection, stages them in
// the designs directory, and runs the pipeline over the staged files.
// Generation failures skip the design; they do not abort the batch.
func (g *Generator) GenerateBatch(ctx context.Context, key string, themes []string, count int) (Summary, error) {
	if len(themes) == 0 {
		return Summary{}, fmt.Errorf("collection %q has no themes", key)
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create designs dir: %w", err)
	}

	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return Summary{}, fmt.Errorf("generation interrupted: %w", err)
		}

		theme := themes[g.pick(len(themes))]
		if hint := seasonalHint(g.now().Month()); hint != "" {
			theme = theme + " " + hint
		}

		g.logger.Info("generating design", "collection", key, "theme", theme)
		content, err := g.client.Generate(ctx, theme)
		if err != nil {
			g.logger.Error("generate design", "theme", theme, "error", err)
			continue
		}

		path := g.stagePath(key, theme)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			g.logger.Error("stage design", "path", path, "error", err)
			continue
		}
		paths = append(paths, path)
	}

	if len(paths) == 0 {
		return Summary{}, fmt.Errorf("no designs were generated")
	}
	return g.pipeline.ProcessBatch(ctx, paths)
}

// stagePath builds a filename the scanner and name parser both accept.
func (g *Generator) stagePath(key, theme string) string {
	slug := strings.ReplaceAll(strings.ToLower(theme), " ", "_")
	name := fmt.Sprintf("design_%s_%s_%d.png", key, slug, g.now().UnixMilli())
	return filepath.Join(g.dir, name)
}

// seasonalHint biases prompts toward what customers search for in the
// weeks the run happens.
func seasonalHint(m time.Month) string {
	switch m {
	case time.December:
		return "with subtle Christmas elements"
	case time.June, time.July, time.August:
		return "with summer vibes"
	case time.October:
		return "with Halloween twist"
	default:
		return ""
	}
}
