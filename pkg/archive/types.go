package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mercator-hq/compliance/pkg/engine"
	"mercator-hq/compliance/pkg/rules"
)

// Kind distinguishes archived document reports from project reports.
type Kind string

const (
	// KindDocument marks a single-document report.
	KindDocument Kind = "document"

	// KindProject marks a project batch report.
	KindProject Kind = "project"
)

// Record is one archived report. The summary columns are copied from the
// report so listings do not need to decode Payload.
type Record struct {
	ID             string          `json:"id"`
	Kind           Kind            `json:"kind"`
	SubjectID      string          `json:"subject_id"`
	Name           string          `json:"name"`
	Score          float64         `json:"score"`
	Level          rules.Level     `json:"level"`
	RulesetVersion uint64          `json:"ruleset_version"`
	RecordedAt     time.Time       `json:"recorded_at"`
	Payload        json.RawMessage `json:"payload"`
}

// NewDocumentRecord wraps a document report in a new record.
func NewDocumentRecord(report *engine.DocumentReport, recordedAt time.Time) (*Record, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document report: %w", err)
	}
	return &Record{
		ID:             uuid.NewString(),
		Kind:           KindDocument,
		SubjectID:      report.DocumentID,
		Name:           report.DocumentName,
		Score:          report.ComplianceScore,
		Level:          report.OverallCompliance,
		RulesetVersion: report.RulesetVersion,
		RecordedAt:     recordedAt.UTC(),
		Payload:        payload,
	}, nil
}

// NewProjectRecord wraps a project report in a new record.
func NewProjectRecord(report *engine.ProjectReport, recordedAt time.Time) (*Record, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode project report: %w", err)
	}
	return &Record{
		ID:             uuid.NewString(),
		Kind:           KindProject,
		SubjectID:      report.ProjectID,
		Name:           report.ProjectName,
		Score:          report.ComplianceScore,
		Level:          report.OverallCompliance,
		RulesetVersion: report.RulesetVersion,
		RecordedAt:     recordedAt.UTC(),
		Payload:        payload,
	}, nil
}

// ProjectReport decodes the payload of a project record.
func (r *Record) ProjectReport() (*engine.ProjectReport, error) {
	if r.Kind != KindProject {
		return nil, fmt.Errorf("record %s is a %s report", r.ID, r.Kind)
	}
	var report engine.ProjectReport
	if err := json.Unmarshal(r.Payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode project report %s: %w", r.ID, err)
	}
	return &report, nil
}

// DocumentReport decodes the payload of a document record.
func (r *Record) DocumentReport() (*engine.DocumentReport, error) {
	if r.Kind != KindDocument {
		return nil, fmt.Errorf("record %s is a %s report", r.ID, r.Kind)
	}
	var report engine.DocumentReport
	if err := json.Unmarshal(r.Payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode document report %s: %w", r.ID, err)
	}
	return &report, nil
}

// Query selects records. Zero-valued fields do not filter.
type Query struct {
	// IDs restricts the result to the given record IDs.
	IDs []string

	Kind      Kind
	SubjectID string
	Level     rules.Level

	// After and Before bound RecordedAt. After is inclusive, Before is
	// exclusive.
	After  *time.Time
	Before *time.Time

	// OldestFirst reverses the default newest-first order.
	OldestFirst bool

	// Limit caps the number of records returned. Zero means no limit.
	Limit int

	// Offset skips records for pagination.
	Offset int
}

// Storage persists archived reports.
type Storage interface {
	// Store persists a record. Records are immutable once stored.
	Store(ctx context.Context, record *Record) error

	// Get returns the record with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records matching the query, newest first unless
	// OldestFirst is set.
	List(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of records matching the query. Limit and
	// Offset are ignored.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the query and returns how many were
	// removed. Limit and Offset are ignored.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases the backend.
	Close() error
}
