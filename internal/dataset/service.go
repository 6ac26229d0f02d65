// Package dataset loads the auxiliary CSV dataset that the assistant can
// reference as extra context and query through the analyze_data tool.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrNotLoaded indicates no dataset is currently available.
var ErrNotLoaded = errors.New("dataset not loaded")

// Table is one immutable snapshot of the CSV contents.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Service owns the dataset snapshot and refreshes it when the backing file
// changes. Reads and reloads may interleave freely.
type Service struct {
	logger *slog.Logger
	path   string

	mu      sync.RWMutex
	table   *Table
	modTime time.Time
}

// NewService creates a dataset service for the given CSV path.
func NewService(log *slog.Logger, path string) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		logger: log.With(slog.String("service", "dataset")),
		path:   path,
	}
}

// Load reads the CSV file into a fresh snapshot. A missing file is not an
// error: the service simply stays empty.
func (s *Service) Load() error {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("dataset file not found", slog.String("path", s.path))
			return nil
		}
		return fmt.Errorf("stat dataset: %w", err)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("parse dataset: %w", err)
	}
	if len(records) == 0 {
		s.logger.Warn("dataset file is empty", slog.String("path", s.path))
		return nil
	}

	table := &Table{Columns: records[0], Rows: records[1:]}

	s.mu.Lock()
	s.table = table
	s.modTime = info.ModTime()
	s.mu.Unlock()

	s.logger.Info("dataset loaded",
		slog.String("path", s.path),
		slog.Int("columns", len(table.Columns)),
		slog.Int("rows", len(table.Rows)))
	return nil
}

// Reload re-reads the file only when its modification time changed since
// the last load. Scheduled periodically; errors are logged by the caller.
func (s *Service) Reload() error {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat dataset: %w", err)
	}

	s.mu.RLock()
	loadedAt := s.modTime
	s.mu.RUnlock()

	if !info.ModTime().After(loadedAt) {
		return nil
	}
	return s.Load()
}

// Loaded reports whether a snapshot is available.
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table != nil && len(s.table.Rows) > 0
}

func (s *Service) snapshot() *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Describe returns a per-column statistics summary of the whole dataset,
// suitable for inclusion in assistant context.
func (s *Service) Describe() (string, error) {
	table := s.snapshot()
	if table == nil || len(table.Rows) == 0 {
		return "", ErrNotLoaded
	}
	return describeTable(table), nil
}

// Analyze answers an analyze_data tool query. Column-name matches win over
// row matches; no match at all yields a plain "no data" sentence rather
// than an error so the result can be fed back to the model as-is.
func (s *Service) Analyze(query string) string {
	table := s.snapshot()
	if table == nil || len(table.Rows) == 0 {
		return "No data available for analysis."
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return describeTable(table)
	}

	var matched []int
	for i, col := range table.Columns {
		if strings.Contains(strings.ToLower(col), q) {
			matched = append(matched, i)
		}
	}
	if len(matched) > 0 {
		var b strings.Builder
		for _, i := range matched {
			writeColumnStats(&b, table.Columns[i], columnValues(table.Rows, i))
		}
		return strings.TrimRight(b.String(), "\n")
	}

	filtered := filterRows(table, q)
	if len(filtered) == 0 {
		return fmt.Sprintf("No data found matching '%s'.", strings.TrimSpace(query))
	}
	return describeTable(&Table{Columns: table.Columns, Rows: filtered})
}

func filterRows(table *Table, loweredQuery string) [][]string {
	var out [][]string
	for _, row := range table.Rows {
		for _, cell := range row {
			if strings.Contains(strings.ToLower(cell), loweredQuery) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

func columnValues(rows [][]string, idx int) []string {
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if idx < len(row) {
			values = append(values, row[idx])
		}
	}
	return values
}

// lastReloadAt is exposed for tests.
func (s *Service) lastReloadAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modTime
}
