// Package store persists encoded analysis reports keyed by owner and record
// id.
//
// Two backends implement the same Store interface: SQLite through
// modernc.org/sqlite (the default, one file under data_dir) and PostgreSQL
// through pgx. Rows are written whole in a single statement; nothing here
// retries a completed write. The SQLite backend retries a statement only while
// the database reports SQLITE_BUSY.
//
// Rows written by older deployments kept the payload as a JSON object keyed by
// byte index in the payload_json column. Those rows are returned with the
// decoded object as Record.Payload so blobcodec can normalize them; new rows
// always use the binary payload column.
//
// The database carries a single schema_version row. Schema changes bump
// schemaVersion and require a fresh database.
package store
