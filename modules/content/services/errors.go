package services

import (
	"fmt"

	"github.com/qoox/smartcsv/pkg/serrors"
)

// Error codes shared across the pipeline. Fatal errors carry one of
// these codes; row-level failures only ever surface as a counter.
const (
	CodeFormatError     = "FORMAT_ERROR"
	CodeIOError         = "IO_ERROR"
	CodeNoData          = "NO_DATA"
	CodeValidationError = "VALIDATION_ERROR"
)

var (
	ErrNoData            = serrors.NewError(CodeNoData, "no records matched the export criteria", "")
	ErrMissingHeader     = serrors.NewError(CodeFormatError, "csv file has no header row", "")
	ErrStagedFileMissing = serrors.NewError(CodeIOError, "staged import file not found", "")
)

// RowError wraps a failure inside the per-row upsert. It is caught by
// the batch loop and counted, never propagated past it.
type RowError struct {
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row import failed: %v", e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
