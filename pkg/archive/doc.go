// Package archive stores compliance reports produced by the CLI so they can
// be listed and retrieved later.
//
// The engine itself never persists anything; callers archive the reports
// they receive. Each Record keeps the report's summary (subject, score,
// level, rule set version) in columns and the full report as a JSON payload.
//
// Two backends are available:
//
//   - SQLiteStorage: driver "sqlite" (modernc.org/sqlite, pure Go) or
//     "sqlite3" (github.com/mattn/go-sqlite3, cgo). WAL mode and the busy
//     timeout are set per connection.
//   - MemoryStorage: map-backed, used by tests and the "memory" driver.
//
// Retention is enforced by a Pruner (age and record count) which a
// Scheduler can run on a cron schedule.
//
//	store, err := archive.Open(cfg.Archive, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	record, err := archive.NewProjectRecord(report, time.Now())
//	if err != nil {
//	    return err
//	}
//	err = store.Store(ctx, record)
package archive
