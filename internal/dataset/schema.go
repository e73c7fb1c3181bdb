// Package dataset creates the measurement and station tables and bulk-loads
// them from the published CSV files. The query service never writes; this is
// the one-off populator it expects to have run.
package dataset

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

//go:embed sql/schema/*.sql
var schemaFS embed.FS

const schemaDir = "sql/schema"

var schemaFileRe = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type schemaStep struct {
	version    string
	name       string
	statements []string
}

// CreateSchema creates both tables and their indexes if they do not exist.
// Files run in version order, one statement at a time.
func CreateSchema(ctx context.Context, db execer) error {
	steps, err := schemaSteps()
	if err != nil {
		return err
	}
	for _, s := range steps {
		for _, stmt := range s.statements {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("schema %s_%s: %w", s.version, s.name, err)
			}
		}
		slog.Debug("schema step applied", "version", s.version, "name", s.name)
	}
	return nil
}

func schemaSteps() ([]schemaStep, error) {
	entries, err := fs.ReadDir(schemaFS, schemaDir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}

	var steps []schemaStep
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, name, ok := parseSchemaFilename(e.Name())
		if !ok {
			continue
		}
		body, err := fs.ReadFile(schemaFS, schemaDir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		steps = append(steps, schemaStep{
			version:    version,
			name:       name,
			statements: splitStatements(string(body)),
		})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

func parseSchemaFilename(filename string) (version, name string, ok bool) {
	m := schemaFileRe.FindStringSubmatch(filename)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// splitStatements splits on ';'. The schema files contain no string literals,
// so a plain split is enough.
func splitStatements(body string) []string {
	var out []string
	for _, part := range strings.Split(body, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
