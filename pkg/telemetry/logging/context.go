package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	// ProjectIDKey is the context key for project identifiers.
	ProjectIDKey contextKey = "project_id"

	// DocumentIDKey is the context key for document identifiers.
	DocumentIDKey contextKey = "document_id"

	// RunIDKey is the context key for the identifier of one CLI run or
	// watch cycle.
	RunIDKey contextKey = "run_id"
)

// WithProjectID adds a project ID to the context.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, ProjectIDKey, projectID)
}

// GetProjectID retrieves the project ID from the context.
func GetProjectID(ctx context.Context) string {
	return stringValue(ctx, ProjectIDKey)
}

// WithDocumentID adds a document ID to the context.
func WithDocumentID(ctx context.Context, documentID string) context.Context {
	return context.WithValue(ctx, DocumentIDKey, documentID)
}

// GetDocumentID retrieves the document ID from the context.
func GetDocumentID(ctx context.Context) string {
	return stringValue(ctx, DocumentIDKey)
}

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	return stringValue(ctx, RunIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// contextAttrs returns the identifiers present in ctx, run first.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range []contextKey{RunIDKey, ProjectIDKey, DocumentIDKey} {
		if v := stringValue(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}
