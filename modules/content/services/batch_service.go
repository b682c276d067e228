package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/qoox/smartcsv/pkg/csvio"
	"github.com/qoox/smartcsv/pkg/serrors"
)

// DefaultChunkSize bounds one applyBatch call when the caller does not
// choose a size.
const DefaultChunkSize = 10

var stagedFilePattern = regexp.MustCompile(`^import_[0-9a-f-]+\.csv$`)

type CountResult struct {
	TotalRows  int
	StagedFile string
}

type BatchResult struct {
	Processed  int
	Tally      Tally
	HasMore    bool
	NextOffset int
}

type BatchServiceConfig struct {
	Importer   *ImportService
	StagingDir string
	// DefaultChunk replaces a non-positive chunk size in ApplyBatch,
	// DefaultChunkSize when unset.
	DefaultChunk int
	Logger       *logrus.Logger
}

// BatchService drives the three-step resumable import protocol:
// Count stages the upload and counts its rows, ApplyBatch processes
// one chunk, Cleanup wipes the staging area. The server keeps no job
// state between calls; the staged file name is the whole handle.
type BatchService struct {
	importer     *ImportService
	dir          string
	defaultChunk int
	log          *logrus.Logger
}

func NewBatchService(cfg BatchServiceConfig) *BatchService {
	defaultChunk := cfg.DefaultChunk
	if defaultChunk <= 0 {
		defaultChunk = DefaultChunkSize
	}
	return &BatchService{
		importer:     cfg.Importer,
		dir:          cfg.StagingDir,
		defaultChunk: defaultChunk,
		log:          cfg.Logger,
	}
}

// Count stages the uploaded CSV under a fresh name and returns its
// data row count. Stale staged files from interrupted jobs are wiped
// first; only one job is supported at a time.
func (s *BatchService) Count(ctx context.Context, src io.Reader) (*CountResult, error) {
	s.removeStagedFiles()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, serrors.NewError(CodeIOError, "failed to create staging directory", "")
	}

	name := fmt.Sprintf("import_%s.csv", uuid.NewString())
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, serrors.NewError(CodeIOError, "failed to stage uploaded file", "")
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return nil, serrors.NewError(CodeIOError, "failed to stage uploaded file", "")
	}
	if err := f.Close(); err != nil {
		return nil, serrors.NewError(CodeIOError, "failed to stage uploaded file", "")
	}

	total, err := s.countRows(path)
	if err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.WithFields(logrus.Fields{
			"staged_file": name,
			"total_rows":  total,
		}).Info("staged import file")
	}
	return &CountResult{TotalRows: total, StagedFile: name}, nil
}

func (s *BatchService) countRows(path string) (int, error) {
	r, closeFn, err := csvio.Open(path)
	if err != nil {
		return 0, serrors.NewError(CodeIOError, "failed to read staged file", "")
	}
	defer func() { _ = closeFn() }()

	if _, err := r.ReadHeader(); err != nil {
		return 0, ErrMissingHeader
	}

	total := 0
	for {
		if _, err := r.Read(); err != nil {
			if err == io.EOF {
				break
			}
			return 0, serrors.NewError(CodeFormatError, "malformed csv file", "")
		}
		total++
	}
	return total, nil
}

// ApplyBatch processes up to chunkSize rows starting at offset.
// HasMore is true exactly when a full chunk was processed; a short
// chunk signals completion.
func (s *BatchService) ApplyBatch(ctx context.Context, stagedFile string, offset, chunkSize int, mode ImportMode) (*BatchResult, error) {
	if !stagedFilePattern.MatchString(stagedFile) {
		return nil, serrors.NewError(CodeValidationError, "invalid staged file name", "")
	}
	if offset < 0 {
		return nil, serrors.NewError(CodeValidationError, "offset must not be negative", "")
	}
	if chunkSize <= 0 {
		chunkSize = s.defaultChunk
	}

	r, closeFn, err := csvio.Open(filepath.Join(s.dir, stagedFile))
	if err != nil {
		return nil, ErrStagedFileMissing
	}
	defer func() { _ = closeFn() }()

	header, err := r.ReadHeader()
	if err != nil {
		return nil, ErrMissingHeader
	}

	if _, err := r.Skip(offset); err != nil {
		return nil, serrors.NewError(CodeFormatError, "malformed csv file", "")
	}

	result := &BatchResult{}
	for result.Processed < chunkSize {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed row costs one error, not the batch.
			result.Processed++
			result.Tally.Errors++
			continue
		}

		result.Processed++
		action, rowErr := s.importer.ProcessRow(ctx, MapRow(header, row), mode)
		if rowErr != nil {
			result.Tally.Errors++
			if s.log != nil {
				s.log.WithError(rowErr).WithField("offset", offset+result.Processed-1).Warn("row import failed")
			}
			continue
		}
		result.Tally.Count(action)
	}

	result.HasMore = result.Processed == chunkSize
	result.NextOffset = offset + result.Processed
	return result, nil
}

// Cleanup removes the whole staging area. It is idempotent and never
// fails the operation it trails; problems are logged and swallowed.
func (s *BatchService) Cleanup(ctx context.Context) {
	if err := os.RemoveAll(s.dir); err != nil {
		if s.log != nil {
			s.log.WithError(err).Warn("failed to clean staging directory")
		}
	}
}

// removeStagedFiles deletes staged import files by pattern, leaving
// anything else in the directory alone.
func (s *BatchService) removeStagedFiles() {
	matches, err := filepath.Glob(filepath.Join(s.dir, "import_*.csv"))
	if err != nil {
		return
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && s.log != nil {
			s.log.WithError(err).Warn("failed to remove stale staged file")
		}
	}
}

// StagedFilePath maps a staged file name to its on-disk path. Names
// that do not match the staged pattern resolve to an empty string.
func (s *BatchService) StagedFilePath(name string) string {
	if !stagedFilePattern.MatchString(name) {
		return ""
	}
	return filepath.Join(s.dir, name)
}
