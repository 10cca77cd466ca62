// Package registry records installed packages in a SQLite database under
// the packages root. `sagara install` copies a package directory there
// and inserts a row.
package registry

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/internal/config"
)

type Record struct {
	ID          string
	Name        string
	Source      string
	InstalledAt time.Time
}

type Registry struct {
	root string
	db   *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS installs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	source TEXT NOT NULL,
	installed_at TIMESTAMP NOT NULL
)`

// Open prepares the packages root and its registry database.
func Open(root string) (*Registry, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filepath.Join(root, config.RegistryFileName))
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Registry{root: root, db: db}, nil
}

func (r *Registry) Close() error { return r.db.Close() }

// Install copies a package directory into the packages root and records
// it. The package name is the directory base name.
func (r *Registry) Install(sourceDir string) (*Record, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", sourceDir)
	}
	name := filepath.Base(filepath.Clean(sourceDir))
	dest := filepath.Join(r.root, name)
	if err := copyTree(sourceDir, dest); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:          uuid.NewString(),
		Name:        name,
		Source:      sourceDir,
		InstalledAt: time.Now().UTC(),
	}
	_, err = r.db.Exec(
		"INSERT INTO installs (id, name, source, installed_at) VALUES (?, ?, ?, ?)",
		rec.ID, rec.Name, rec.Source, rec.InstalledAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns install records newest first.
func (r *Registry) List() ([]Record, error) {
	rows, err := r.db.Query("SELECT id, name, source, installed_at FROM installs ORDER BY installed_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Source, &rec.InstalledAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// copyTree copies source files, skipping hidden entries.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(filepath.Base(path), ".") && path != src {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
