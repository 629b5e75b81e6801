package models

import (
	"database/sql/driver"
	"strings"
	"time"
)

// ExportFormat enumerates supported report export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "CSV"
	ExportFormatPDF  ExportFormat = "PDF"
	ExportFormatXLSX ExportFormat = "XLSX"
)

// ParseExportFormat normalises user input. Unknown formats return "".
func ParseExportFormat(raw string) ExportFormat {
	switch ExportFormat(strings.ToUpper(strings.TrimSpace(raw))) {
	case ExportFormatCSV:
		return ExportFormatCSV
	case ExportFormatPDF:
		return ExportFormatPDF
	case ExportFormatXLSX:
		return ExportFormatXLSX
	default:
		return ""
	}
}

// Extension returns the file extension for the format.
func (f ExportFormat) Extension() string {
	return strings.ToLower(string(f))
}

// ContentType returns the MIME type for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatPDF:
		return "application/pdf"
	case ExportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob persisted background export metadata.
type ExportJob struct {
	ID           string          `db:"id" json:"id"`
	FormID       string          `db:"form_id" json:"formId"`
	Params       ExportJobParams `db:"params" json:"params"`
	Status       ExportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultURL    *string         `db:"result_url" json:"resultUrl,omitempty"`
	CreatedBy    string          `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finishedAt,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"errorMessage,omitempty"`
}

// ExportJobParams stores request-scoped options persisted as JSONB.
type ExportJobParams struct {
	Format        ExportFormat      `json:"format"`
	IncludeDrafts bool              `json:"includeDrafts"`
	Extras        map[string]string `json:"extras,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p ExportJobParams) Value() (driver.Value, error) {
	if p.Extras == nil {
		p.Extras = map[string]string{}
	}
	return jsonbValue(p, "export job params")
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ExportJobParams) Scan(value interface{}) error {
	var out ExportJobParams
	if _, err := jsonbScan(value, &out, "export job params"); err != nil {
		return err
	}
	*p = out
	return nil
}
