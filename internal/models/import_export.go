package models

import "time"

type ImportStatus string

const (
	ImportCompleted        ImportStatus = "completed"
	ImportPartial          ImportStatus = "partial"
	ImportValidationFailed ImportStatus = "validation_failed"
)

// ImportValidationError describes one rejected cell of an item import file.
// Row numbers are 1-based and count the header row.
type ImportValidationError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value"`
}

// ImportSummary reports the outcome of an item calibration import
type ImportSummary struct {
	FileName       string                  `json:"file_name"`
	Status         ImportStatus            `json:"status"`
	TotalRows      int                     `json:"total_rows"`
	SuccessCount   int                     `json:"success_count"`
	ErrorCount     int                     `json:"error_count"`
	ImportedIDs    []string                `json:"imported_ids"`
	Errors         []ImportValidationError `json:"errors"`
	ProcessingTime time.Duration           `json:"processing_time"`
}
