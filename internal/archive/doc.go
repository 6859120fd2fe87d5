// Package archive persists dispatched notifications to PostgreSQL.
//
// Rows are batched and written with pgx.Batch. Inserts are idempotent on the
// message ID, so a replayed batch never duplicates rows.
package archive
