package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TableExporter provides the tables to export.
type TableExporter interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)
}

// DataCleaner removes audit rows past retention.
type DataCleaner interface {
	DeleteOlderThan(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Filename names a monthly report, e.g. "audit_2025-03.xlsx".
func Filename(t time.Time) string {
	return fmt.Sprintf("audit_%s.xlsx", t.Format("2006-01"))
}

// Export writes every exporter table as a sheet of one workbook.
func Export(ctx context.Context, exporter TableExporter, out io.Writer) error {
	tables, err := exporter.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("get table names: %w", err)
	}

	excel := NewExcelWriter()
	defer excel.Close()

	for _, tableName := range tables {
		data, columns, err := exporter.GetTableData(ctx, tableName)
		if err != nil {
			return fmt.Errorf("table %s: %w", tableName, err)
		}
		if err := excel.AddSheet(tableName); err != nil {
			return err
		}
		if err := excel.WriteHeader(columns); err != nil {
			return fmt.Errorf("table %s header: %w", tableName, err)
		}
		for _, row := range data {
			rowData := make([]interface{}, len(columns))
			for i, col := range columns {
				rowData[i] = row[col]
			}
			if err := excel.WriteRow(rowData); err != nil {
				return fmt.Errorf("table %s row: %w", tableName, err)
			}
		}
	}

	if err := excel.Save(out); err != nil {
		return fmt.Errorf("save excel: %w", err)
	}
	return nil
}

// Service writes a monthly report to disk and then prunes old rows.
type Service struct {
	exporter  TableExporter
	cleaner   DataCleaner
	dir       string
	retention time.Duration
	logger    zerolog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewService(exporter TableExporter, cleaner DataCleaner, dir string, retention time.Duration, logger *zerolog.Logger) *Service {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &Service{
		exporter:  exporter,
		cleaner:   cleaner,
		dir:       dir,
		retention: retention,
		logger:    logger.With().Str("component", "audit").Logger(),
		stopCh:    make(chan struct{}),
	}
}

// Start begins the monthly scheduler.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()
	s.logger.Info().Dur("retention", s.retention).Msg("Audit service started")
}

// Stop waits for the scheduler to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
}

func (s *Service) loop() {
	defer s.wg.Done()

	nextRun := nextFirstOfMonth(time.Now())
	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			if _, err := s.RunNow(ctx, time.Now().AddDate(0, -1, 0)); err != nil {
				s.logger.Error().Err(err).Msg("Monthly audit failed")
			}
			cancel()

			nextRun = nextFirstOfMonth(time.Now())
			timer.Reset(time.Until(nextRun))
		}
	}
}

func nextFirstOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 1, 0, 0, now.Location())
}

// RunNow writes the report for month into dir and then prunes old rows.
func (s *Service) RunNow(ctx context.Context, month time.Time) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.dir, Filename(month))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := Export(ctx, s.exporter, f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	s.logger.Info().Str("path", path).Msg("Audit report written")

	if s.cleaner != nil {
		deleted, err := s.cleaner.DeleteOlderThan(ctx, s.retention)
		if err != nil {
			return path, fmt.Errorf("cleanup: %w", err)
		}
		s.logger.Info().Int64("deleted", deleted).Msg("Cleaned up old audit rows")
	}
	return path, nil
}
