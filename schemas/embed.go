// Package schemas provides embedded SQL migration files.
package schemas

import "embed"

// Migrations contains the SQL migration files, one directory per database driver.
//
//go:embed migrations/*/*.sql
var Migrations embed.FS
