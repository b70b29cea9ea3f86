// Package logging builds the structured loggers used by the compliance
// service.
//
// New returns a plain *slog.Logger so every package can accept the standard
// type. The handler chain adds two behaviors on top of the slog JSON or text
// handler:
//
//   - Context fields: run_id, project_id and document_id stored with
//     WithRunID, WithProjectID and WithDocumentID are appended to records
//     logged through the *Context methods.
//   - Redaction: when RedactSecrets is set, repository credentials, access
//     tokens, resident ID numbers, mobile numbers and e-mail addresses are
//     masked in attribute values, and attributes whose key names a secret
//     (token, password, passphrase) are replaced with "***".
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	if err != nil {
//	    return err
//	}
//	ctx = logging.WithProjectID(ctx, "P-2024-017")
//	logger.InfoContext(ctx, "project evaluated", "score", 73.33)
package logging
