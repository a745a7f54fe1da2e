package migrations

import "embed"

// FS contains the PostgreSQL schema for the course ledger.
//
//go:embed *.sql
var FS embed.FS
