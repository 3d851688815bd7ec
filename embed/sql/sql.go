package sql

import _ "embed"

// Schema creates the tables used by the SQLite store.
//
//go:embed schema.sql
var Schema string
