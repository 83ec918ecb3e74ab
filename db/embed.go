// Package db embeds the SQL schema so the binary can migrate itself: the API
// server applies it on startup and cmd/seed-db applies it before seeding.
package db

import _ "embed"

// Schema is the full DDL, applied idempotently (CREATE ... IF NOT EXISTS).
//
//go:embed migrations/001_schema.sql
var Schema string
