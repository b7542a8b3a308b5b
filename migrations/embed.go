// Package migrations embeds the goose SQL migrations for every supported
// database dialect. Each dialect lives in its own directory; callers pick one
// with Dir.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// Dir returns the migration files for dialect ("sqlite" or "postgres") as a
// filesystem rooted at that dialect's directory, ready for goose.NewProvider.
func Dir(dialect string) (fs.FS, error) {
	switch dialect {
	case "sqlite", "postgres":
		return fs.Sub(files, dialect)
	default:
		return nil, fmt.Errorf("migrations: unknown dialect %q", dialect)
	}
}
