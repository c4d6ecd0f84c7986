// Package db embeds the database schema applied on startup.
package db

import _ "embed"

// Schema contains the DDL for the storefront tables. It is idempotent and is
// executed as a single batch by repository.RunMigrations.
//
//go:embed migrations/001_schema.sql
var Schema string
