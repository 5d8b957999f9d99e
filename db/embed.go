// Package db provides embedded database schema and seed files.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Catalog is the storefront's seed catalog in the JSON format read by
// catalog.DecodeDataset.
//
//go:embed seed/catalog.json
var Catalog []byte
