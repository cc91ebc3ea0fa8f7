// Package backup writes gzip-compressed SQL dumps of the license database.
package backup

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"castypos.com/posserver/internal/sqlite"
)

// Suffix ends every backup file name.
const Suffix = "_posdump.sql.gz"

const timestampLayout = "2006-01-02_15.04.05"

type Service struct {
	db     *sqlx.DB
	dbPath string
	now    func() time.Time
}

func NewService(db *sqlx.DB, dbPath string) *Service {
	return &Service{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}
}

// Dir is where backups are written: a backups directory next to the database file.
func (s *Service) Dir() string {
	return filepath.Join(filepath.Dir(s.dbPath), "backups")
}

// Result describes a backup file.
type Result struct {
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"modTime"`
}

// CreateBackup snapshots the database with VACUUM INTO and writes it as a gzip SQL dump.
func (s *Service) CreateBackup(ctx context.Context) (*Result, error) {
	backupDir := s.Dir()
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	filename := s.now().Format(timestampLayout) + Suffix
	backupPath := filepath.Join(backupDir, filename)

	tempPath := filepath.Join(backupDir, "temp_backup.db")
	os.Remove(tempPath)
	defer os.Remove(tempPath)

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, tempPath); err != nil {
		return nil, fmt.Errorf("vacuum into temp: %w", err)
	}

	snapshot, err := sqlx.Open("sqlite3", "file:"+tempPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer snapshot.Close()

	file, err := os.Create(backupPath)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	buf := bufio.NewWriter(gz)
	if err := writeDump(ctx, snapshot, buf, s.now()); err != nil {
		os.Remove(backupPath)
		return nil, fmt.Errorf("generate dump: %w", err)
	}
	if err := buf.Flush(); err != nil {
		return nil, fmt.Errorf("flush dump: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat backup file: %w", err)
	}
	return &Result{
		Filename: filename,
		Path:     backupPath,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
	}, nil
}

// List returns existing backups, newest first.
func (s *Service) List() ([]Result, error) {
	entries, err := os.ReadDir(s.Dir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var out []Result
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Suffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, Result{
			Filename: e.Name(),
			Path:     filepath.Join(s.Dir(), e.Name()),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}
	// timestamped names sort chronologically
	sort.Slice(out, func(i, j int) bool { return out[i].Filename > out[j].Filename })
	return out, nil
}

func writeDump(ctx context.Context, db *sqlx.DB, w io.Writer, at time.Time) error {
	fmt.Fprintf(w, "-- posserver database backup\n")
	fmt.Fprintf(w, "-- Generated: %s\n", at.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "PRAGMA application_id = %d;\n", sqlite.ApplicationID)
	fmt.Fprintf(w, "PRAGMA foreign_keys=OFF;\n")
	fmt.Fprintf(w, "BEGIN TRANSACTION;\n\n")

	schemas, err := getSchemas(ctx, db)
	if err != nil {
		return err
	}
	for _, schema := range schemas {
		fmt.Fprintf(w, "%s;\n", schema.SQL)
	}
	fmt.Fprintln(w)

	tables, err := getUserTables(ctx, db)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if err := writeInserts(ctx, db, w, table); err != nil {
			return fmt.Errorf("generate inserts for %s: %w", table, err)
		}
	}

	fmt.Fprintf(w, "COMMIT;\n")
	_, err = fmt.Fprintf(w, "PRAGMA journal_mode=WAL;\n")
	return err
}

type schemaObject struct {
	Type string `db:"type"`
	Name string `db:"name"`
	SQL  string `db:"sql"`
}

func getSchemas(ctx context.Context, db *sqlx.DB) ([]schemaObject, error) {
	var schemas []schemaObject
	query := `
		SELECT type, name, sql
		FROM sqlite_master
		WHERE sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY
			CASE type
				WHEN 'table' THEN 1
				WHEN 'index' THEN 2
				WHEN 'trigger' THEN 3
				WHEN 'view' THEN 4
			END,
			name
	`
	if err := db.SelectContext(ctx, &schemas, query); err != nil {
		return nil, fmt.Errorf("query schemas: %w", err)
	}
	return schemas, nil
}

func getUserTables(ctx context.Context, db *sqlx.DB) ([]string, error) {
	var tables []string
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`
	if err := db.SelectContext(ctx, &tables, query); err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	return tables, nil
}

func writeInserts(ctx context.Context, db *sqlx.DB, w io.Writer, table string) error {
	rows, err := db.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %q", table))
	if err != nil {
		return fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = fmt.Sprintf("%q", col)
	}
	prefix := fmt.Sprintf("INSERT INTO %q (%s) VALUES (", table, strings.Join(quoted, ", "))

	wrote := false
	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		values := make([]string, len(row))
		for i, v := range row {
			values[i] = formatValue(v)
		}
		if _, err := fmt.Fprintf(w, "%s%s);\n", prefix, strings.Join(values, ", ")); err != nil {
			return err
		}
		wrote = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}
	if wrote {
		fmt.Fprintln(w)
	}
	return nil
}

// sqliteTimeLayout matches the format go-sqlite3 writes for time.Time values.
const sqliteTimeLayout = "2006-01-02 15:04:05.999999999-07:00"

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}

	switch val := v.(type) {
	case []byte:
		return quote(string(val))
	case string:
		return quote(val)
	case time.Time:
		return quote(val.Format(sqliteTimeLayout))
	case int, int32, int64, float32, float64:
		return fmt.Sprintf("%v", val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return quote(fmt.Sprintf("%v", val))
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
