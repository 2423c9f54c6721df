// Package queue persists conversion jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, stuck-job recovery, and the status transitions that mirror the
// public job states. Job rows capture scalar state only: names, formats,
// progress, and outcomes. Payload bytes never touch the database; they live
// with the batch coordinator for the duration of a run.
//
// The database is treated as a catalog of current and recent jobs rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
//
// Treat this package as the single source of truth for job semantics; when
// you add new statuses or fields, update schema.sql and bump schemaVersion.
package queue
