package db

import "embed"

// Migrations holds the snapshot store schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS
