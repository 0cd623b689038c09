// Package exchange imports and exports table rows as JSONL files and
// SQLite databases.
//
// The package focuses on:
//   - Moving a single table between a store and a file below a root
//     directory, with every user supplied path checked by guard.SafePath
//   - All-or-nothing imports: rows are inserted in one store batch and
//     every failing line or row is reported in one error
//   - Enforcing the import caps (file size, line count, per-line size,
//     nesting depth)
//
// Key Components:
//
//   - Adaptor: Holds the filesystem and root. JSONL goes through afero so
//     tests can run on an in-memory filesystem; SQLite goes through
//     database/sql with the pure Go modernc.org/sqlite driver.
//
//   - ExportJSONL / ImportJSONL: One JSON object per line, "id" first on
//     export and ignored on import.
//
//   - ExportSQLite / ImportSQLite: One SQL table per store table. Column
//     types follow the schema; documents and arrays are stored as JSON text
//     and read back according to the target schema.
package exchange
