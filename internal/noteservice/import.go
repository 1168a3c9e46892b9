package noteservice

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/notekeep/internal/models"
	"github.com/starford/notekeep/internal/parser"
)

// DefaultImportCategory is used for Markdown files without a category or tags.
const DefaultImportCategory = "Personal"

// ImportReport summarises an ImportMarkdown run.
type ImportReport struct {
	Imported   int      `json:"imported"`
	Skipped    []string `json:"skipped,omitempty"`
	Categories []string `json:"categoriesCreated,omitempty"`
}

// ImportMarkdown creates one note per .md file under dir for userID. Files
// with an empty body or an invalid category name are skipped. Categories are matched ignoring case and
// created when missing.
func (s *Service) ImportMarkdown(ctx context.Context, userID, dir string) (ImportReport, error) {
	var report ImportReport

	info, err := os.Stat(dir)
	if err != nil {
		return report, fmt.Errorf("import: %w", err)
	}
	if !info.IsDir() {
		return report, fmt.Errorf("import: %s is not a directory", dir)
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}

		rel, _ := filepath.Rel(dir, path)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}

		res := parser.Parse(data)
		content := strings.TrimSpace(res.Body)
		if content == "" {
			report.Skipped = append(report.Skipped, rel)
			return nil
		}

		title := res.Title
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		category := res.Category
		if category == "" {
			category = DefaultImportCategory
		}
		in := CategoryInput{Name: category}
		if err := check(&in); err != nil {
			s.logger.Warn("import skipped file with invalid category",
				slog.String("file", rel), slog.String("error", err.Error()))
			report.Skipped = append(report.Skipped, rel)
			return nil
		}
		category = in.Name

		if c, ok := s.findCategory(ctx, userID, category); ok {
			category = c.Name
		} else {
			if _, err := s.store.AddCategory(ctx, userID, category); err != nil {
				return fmt.Errorf("create category %q: %w", category, err)
			}
			report.Categories = append(report.Categories, category)
		}

		n, err := s.store.AddNote(ctx, models.NoteDraft{
			UserID:    userID,
			Title:     title,
			Content:   content,
			Category:  category,
			DateAdded: res.Created,
		})
		if err != nil {
			return fmt.Errorf("import %s: %w", rel, err)
		}
		report.Imported++
		s.logger.Debug("note imported", slog.String("file", rel), slog.String("id", n.ID))
		return nil
	})
	if err != nil {
		return report, err
	}

	if report.Imported > 0 {
		s.events.PublishChange(TopicNoteCreated, map[string]string{"userId": userID, "source": "import"})
	}
	s.logger.Info("markdown import finished",
		slog.String("dir", dir),
		slog.Int("imported", report.Imported),
		slog.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}
