package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/qoox/smartcsv/modules/content/domain/record"
	"github.com/qoox/smartcsv/pkg/csvio"
	"github.com/qoox/smartcsv/pkg/serrors"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

type ExportCriteria struct {
	Type     string
	Statuses []string
	Limit    int
	Offset   int
	DateFrom *time.Time
	DateTo   *time.Time
	// Fields restricts the exported columns to the listed keys. Empty
	// means every discovered field.
	Fields []string
	// Format is csv or xlsx, csv when empty.
	Format string
}

type ExportResult struct {
	Filename string
	Path     string
}

type ExportServiceConfig struct {
	RecordRepo   record.Repository
	FieldService *FieldService
	Resolver     *FieldResolver
	ExportDir    string
	// Keep caps how many export files survive in ExportDir.
	Keep   int
	Logger *logrus.Logger
}

type ExportService struct {
	records  record.Repository
	fields   *FieldService
	resolver *FieldResolver
	dir      string
	keep     int
	log      *logrus.Logger
}

func NewExportService(cfg ExportServiceConfig) *ExportService {
	keep := cfg.Keep
	if keep <= 0 {
		keep = 4
	}
	return &ExportService{
		records:  cfg.RecordRepo,
		fields:   cfg.FieldService,
		resolver: cfg.Resolver,
		dir:      cfg.ExportDir,
		keep:     keep,
		log:      cfg.Logger,
	}
}

// Dir is the directory export files are written to.
func (s *ExportService) Dir() string {
	return s.dir
}

type exportColumn struct {
	key   string
	group string
}

func (s *ExportService) Export(ctx context.Context, criteria ExportCriteria) (*ExportResult, error) {
	if strings.TrimSpace(criteria.Type) == "" {
		return nil, serrors.NewError(CodeValidationError, "record type is required", "")
	}
	format := criteria.Format
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return nil, serrors.NewError(CodeValidationError, fmt.Sprintf("unsupported export format %q", criteria.Format), "")
	}

	recs, err := s.records.List(ctx, record.Query{
		Type:     criteria.Type,
		Statuses: criteria.Statuses,
		Limit:    criteria.Limit,
		Offset:   criteria.Offset,
		DateFrom: criteria.DateFrom,
		DateTo:   criteria.DateTo,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNoData
	}

	columns, err := s.columns(ctx, criteria.Type, criteria.Fields)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(recs)+1)
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.key
	}
	rows = append(rows, header)

	for _, rec := range recs {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = s.resolver.Resolve(ctx, rec, col.key, col.group)
		}
		rows = append(rows, row)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, serrors.NewError(CodeIOError, "failed to create export directory", "")
	}

	filename := fmt.Sprintf("%s_export_%s.%s", criteria.Type, time.Now().Format("20060102_150405"), format)
	path := filepath.Join(s.dir, filename)

	switch format {
	case FormatXLSX:
		err = writeXLSX(path, rows)
	default:
		err = writeCSV(path, rows)
	}
	if err != nil {
		return nil, serrors.NewError(CodeIOError, "failed to write export file", "")
	}

	s.pruneOldExports()

	if s.log != nil {
		s.log.WithFields(logrus.Fields{
			"type":     criteria.Type,
			"records":  len(recs),
			"filename": filename,
		}).Info("exported records")
	}
	return &ExportResult{Filename: filename, Path: path}, nil
}

// columns builds the export header from discovery, restricted to the
// selected keys when a selection is given. Discovery order wins.
func (s *ExportService) columns(ctx context.Context, recordType string, selected []string) ([]exportColumn, error) {
	groups, err := s.fields.GetAvailableFields(ctx, recordType)
	if err != nil {
		return nil, err
	}

	var columns []exportColumn
	for _, group := range groups {
		for _, field := range group.Fields {
			if len(selected) > 0 && !slices.Contains(selected, field.Key) {
				continue
			}
			columns = append(columns, exportColumn{key: field.Key, group: group.Key})
		}
	}
	if len(columns) == 0 {
		return nil, serrors.NewError(CodeValidationError, "no exportable fields selected", "")
	}
	return columns, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csvio.NewWriter(f)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// pruneOldExports keeps the newest export files up to the configured
// cap, judged by modification time. Failures are logged and swallowed.
func (s *ExportService) pruneOldExports() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.warn("failed to list export directory", err)
		return
	}

	type exportFile struct {
		name    string
		modTime time.Time
	}
	var files []exportFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), "_export_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, exportFile{name: entry.Name(), modTime: info.ModTime()})
	}
	if len(files) <= s.keep {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })
	for _, f := range files[s.keep:] {
		if err := os.Remove(filepath.Join(s.dir, f.name)); err != nil {
			s.warn("failed to remove old export file", err)
		}
	}
}

func (s *ExportService) warn(msg string, err error) {
	if s.log != nil {
		s.log.WithError(err).Warn(msg)
	}
}
