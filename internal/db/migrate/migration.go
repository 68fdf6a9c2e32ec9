// Package migrate applies the embedded schema migrations and tracks which
// versions have been applied.
package migrate

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed sql/*.sql
var embedded embed.FS

// Migration represents a single database migration
type Migration struct {
	Version   int64     // Ordering key taken from the file prefix
	Name      string    // Human-readable name
	Up        string    // SQL to apply
	Down      string    // SQL to rollback
	Applied   bool      // Whether this migration has been applied
	AppliedAt time.Time // When the migration was applied
}

var fileName = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// Embedded returns the migrations compiled into the binary.
func Embedded() ([]*Migration, error) {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// Load reads NNNN_name.up.sql / NNNN_name.down.sql pairs from fsys and
// returns them ordered by version. A version without an up file is an error.
func Load(fsys fs.FS) ([]*Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[int64]*Migration)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fileName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}

		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid migration version in %s: %w", e.Name(), err)
		}

		body, err := fs.ReadFile(fsys, path.Clean(e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: m[1] + "_" + m[2]}
			byVersion[version] = mig
		}
		if m[3] == "up" {
			mig.Up = string(body)
		} else {
			mig.Down = string(body)
		}
	}

	out := make([]*Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		if strings.TrimSpace(mig.Up) == "" {
			return nil, fmt.Errorf("migration %s has no up SQL", mig.Name)
		}
		out = append(out, mig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })

	return out, nil
}

var forbidden = []string{"DROP DATABASE", "DROP SCHEMA", "TRUNCATE", "GRANT ", "REVOKE "}

// Check rejects up SQL that contains statements a schema migration must
// never run.
func Check(m *Migration) error {
	if strings.TrimSpace(m.Up) == "" {
		return fmt.Errorf("migration %s has no up SQL", m.Name)
	}
	upper := strings.ToUpper(m.Up)
	for _, stmt := range forbidden {
		if strings.Contains(upper, stmt) {
			return fmt.Errorf("migration %s contains forbidden statement %q", m.Name, strings.TrimSpace(stmt))
		}
	}
	return nil
}
