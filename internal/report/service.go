// Package report serves the dashboard's data: cached loaders over the store
// (available session files, stats rows, the metrics glossary) and the
// reshaped session, player and load-profile views built from them.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"gps-report/internal/domain"
	"gps-report/internal/store"
)

// Tables read by the service.
const (
	FilesTable = "file_available"
	StatsTable = "stats"
)

// FileEntry is one imported session file.
type FileEntry struct {
	FileName string    `json:"file_name"`
	Date     time.Time `json:"date"`
	Type     string    `json:"type"`
	Category string    `json:"category"`
}

// Service loads and reshapes report data. Loader results are shared through
// the cache and must not be modified by callers.
type Service struct {
	store       *store.Store
	metricsPath string
	cache       *Cache
	logger      *slog.Logger
}

// NewService creates a Service reading from st and the glossary at metricsPath.
func NewService(st *store.Store, metricsPath string, cache *Cache, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NewCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, metricsPath: metricsPath, cache: cache, logger: logger}
}

// Invalidate drops every cached result so the next call reads the store again.
func (s *Service) Invalidate() {
	s.cache.Invalidate()
	s.logger.Info("report cache invalidated", "generation", s.cache.Stats().Generation)
}

// CacheStats exposes the cache counters.
func (s *Service) CacheStats() CacheStats { return s.cache.Stats() }

// Files returns the imported session files ordered by date, then file name.
func (s *Service) Files(ctx context.Context) ([]FileEntry, error) {
	return cached(s.cache, "files", nil, func() ([]FileEntry, error) {
		res, err := s.store.SelectFrom(ctx, FilesTable, []string{"file_name", "date", "type", "category"}, "")
		if err != nil {
			return nil, fmt.Errorf("load files: %w", err)
		}
		files := make([]FileEntry, 0, res.Len())
		for _, row := range res.Rows {
			d, err := time.Parse(time.DateOnly, text(row[1]))
			if err != nil {
				return nil, fmt.Errorf("load files: %s: %w", text(row[0]), err)
			}
			files = append(files, FileEntry{
				FileName: text(row[0]),
				Date:     d,
				Type:     text(row[2]),
				Category: text(row[3]),
			})
		}
		sort.SliceStable(files, func(i, j int) bool {
			if !files[i].Date.Equal(files[j].Date) {
				return files[i].Date.Before(files[j].Date)
			}
			return files[i].FileName < files[j].FileName
		})
		return files, nil
	})
}

// Stats returns the stats rows selected by f.
func (s *Service) Stats(ctx context.Context, f Filter) (*store.Result, error) {
	return cached(s.cache, "stats", []any{f}, func() (*store.Result, error) {
		ok, err := s.store.TableExists(ctx, StatsTable)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrNotFound("table %s does not exist", StatsTable)
		}
		where := f.Where()
		s.logger.Debug("loading stats", "where", where)
		return s.store.SelectFrom(ctx, StatsTable, nil, where)
	})
}

// Metrics returns the metrics glossary.
func (s *Service) Metrics() (Glossary, error) {
	return cached(s.cache, "metrics", []any{s.metricsPath}, func() (Glossary, error) {
		return LoadGlossary(s.metricsPath)
	})
}

// Categories returns the distinct file categories in first-seen order.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	files, err := s.Files(ctx)
	if err != nil {
		return nil, err
	}
	return distinct(files, func(f FileEntry) (string, bool) { return f.Category, true }), nil
}

// SessionTypes returns the distinct session types recorded for category.
func (s *Service) SessionTypes(ctx context.Context, category string) ([]string, error) {
	files, err := s.Files(ctx)
	if err != nil {
		return nil, err
	}
	return distinct(files, func(f FileEntry) (string, bool) {
		return f.Type, f.Category == category
	}), nil
}

// SessionDates returns the distinct YYYY-MM-DD dates recorded for category
// and session type.
func (s *Service) SessionDates(ctx context.Context, category, sessionType string) ([]string, error) {
	files, err := s.Files(ctx)
	if err != nil {
		return nil, err
	}
	return distinct(files, func(f FileEntry) (string, bool) {
		return f.Date.Format(time.DateOnly), f.Category == category && f.Type == sessionType
	}), nil
}

// DateRange returns the first and last file dates, or empty strings when no
// file is recorded.
func (s *Service) DateRange(ctx context.Context) (string, string, error) {
	files, err := s.Files(ctx)
	if err != nil || len(files) == 0 {
		return "", "", err
	}
	return files[0].Date.Format(time.DateOnly), files[len(files)-1].Date.Format(time.DateOnly), nil
}

// Players returns the distinct players present in the stats rows selected by
// f, excluding the team average row.
func (s *Service) Players(ctx context.Context, f Filter) ([]string, error) {
	res, err := s.Stats(ctx, f)
	if err != nil {
		return nil, err
	}
	var players []string
	for _, v := range res.Column("Player") {
		p := text(v)
		if p == "" || p == TeamAverage || slices.Contains(players, p) {
			continue
		}
		players = append(players, p)
	}
	return players, nil
}

func distinct(files []FileEntry, pick func(FileEntry) (string, bool)) []string {
	out := []string{}
	for _, f := range files {
		v, ok := pick(f)
		if ok && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
