package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/GuiaBolso/darwin"
	_ "github.com/mattn/go-sqlite3"
)

// ApplicationID is the SQLite application_id for posserver databases.
// "CSTY" in ASCII: C=0x43, S=0x53, T=0x54, Y=0x59
const ApplicationID = 0x43535459

// ErrInvalidDatabase is returned when the database is not a valid posserver database.
var ErrInvalidDatabase = errors.New("not a valid 'posserver' database")

// defineMigrations returns a slice of database migrations
// comments must only appear after sql on a line and cannot span lines (comments are stripped before checksum calc)
// *NEVER* change/remove a step once released! (because a checksum of the script is saved with the migration)
func defineMigrations() []darwin.Migration {
	m := []darwin.Migration{

		// Major version per database release, minor version per step. Versions must ascend.

		{Version: 1.00, Description: "Set application_id", Script: `
		PRAGMA application_id = 0x43535459;`},

		{Version: 1.01, Description: "Create Table 'tenant'", Script: `
		CREATE TABLE IF NOT EXISTS tenant (
			tenant_id VARCHAR(36) PRIMARY KEY,
			tenant_name VARCHAR(255) NOT NULL UNIQUE COLLATE NOCASE,
			created_at DATETIME NOT NULL
		);`},

		{Version: 1.02, Description: "Create Table 'customer'", Script: `
		CREATE TABLE IF NOT EXISTS customer (
			customer_id VARCHAR(36) PRIMARY KEY,
			tenant_id VARCHAR(36) NOT NULL,
			customer_name VARCHAR(255) NOT NULL,
			contact_name VARCHAR(255) NOT NULL DEFAULT '',
			email VARCHAR(255) NOT NULL DEFAULT '',
			phone VARCHAR(255) NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			FOREIGN KEY (tenant_id) REFERENCES tenant (tenant_id) ON DELETE CASCADE
		);`},

		{Version: 1.03, Description: "Create Unique Index 'idx_customer_tenant_name'", Script: `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_customer_tenant_name ON customer (tenant_id, customer_name COLLATE NOCASE);`},

		{Version: 1.04, Description: "Create Table 'license'", Script: `
		CREATE TABLE IF NOT EXISTS license (
			license_id VARCHAR(36) PRIMARY KEY,
			tenant_id VARCHAR(36) NOT NULL,
			customer_id VARCHAR(36),
			subscription_id VARCHAR(255),
			license_key VARCHAR(24) NOT NULL COLLATE NOCASE,
			plan VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL CHECK (status in ('active','inactive','expired','revoked','blocked')),
			max_devices INTEGER,
			valid_from DATETIME NOT NULL,
			valid_until DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (tenant_id) REFERENCES tenant (tenant_id) ON DELETE CASCADE,
			FOREIGN KEY (customer_id) REFERENCES customer (customer_id) ON DELETE SET NULL
		);`},

		{Version: 1.05, Description: "Create Unique Index 'idx_license_key'", Script: `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_license_key ON license (license_key);`},

		{Version: 1.06, Description: "Create Index 'idx_license_tenant_id'", Script: `
		CREATE INDEX IF NOT EXISTS idx_license_tenant_id ON license (tenant_id ASC);`},

		{Version: 1.07, Description: "Create Table 'device'", Script: `
		CREATE TABLE IF NOT EXISTS device (
			device_id VARCHAR(36) PRIMARY KEY,
			tenant_id VARCHAR(36) NOT NULL,
			customer_id VARCHAR(36),
			license_id VARCHAR(36),
			device_name VARCHAR(255) NOT NULL,
			device_type VARCHAR(50) NOT NULL DEFAULT 'pos',
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			fingerprint VARCHAR(255),
			last_heartbeat_at DATETIME,
			last_seen_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (tenant_id) REFERENCES tenant (tenant_id) ON DELETE CASCADE,
			FOREIGN KEY (license_id) REFERENCES license (license_id) ON DELETE SET NULL
		);`},

		{Version: 1.08, Description: "Create Index 'idx_device_license_id'", Script: `
		CREATE INDEX IF NOT EXISTS idx_device_license_id ON device (license_id ASC);`},

		{Version: 1.09, Description: "Create Unique Index 'idx_device_tenant_fingerprint'", Script: `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_device_tenant_fingerprint ON device (tenant_id, fingerprint);`},

		{Version: 1.10, Description: "Create Table 'license_event'", Script: `
		CREATE TABLE IF NOT EXISTS license_event (
			event_id VARCHAR(26) PRIMARY KEY,
			tenant_id VARCHAR(36) NOT NULL,
			license_id VARCHAR(36) NOT NULL,
			event_type VARCHAR(20) NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			FOREIGN KEY (license_id) REFERENCES license (license_id) ON DELETE CASCADE
		);`},

		{Version: 1.11, Description: "Create Index 'idx_license_event_license_id'", Script: `
		CREATE INDEX IF NOT EXISTS idx_license_event_license_id ON license_event (license_id ASC, event_id ASC);`},
	}
	return m
}

// changes returns a user-friendly display of database version changes
func changes(v1, v2 float64) string {
	if v1 != v2 {
		return fmt.Sprintf("DB Version: %.2f (migrated from %.2f to %.2f)", v2, v1, v2)
	}
	return fmt.Sprintf("DB Version: %.2f", v1)
}

// currentVersion reads from migration table to get the latest version and number of steps applied
func currentVersion(db *sql.DB) (count int, ver float64, err error) {
	// might not have any migrations yet...
	s := `select count(*) as n from sqlite_master where tbl_name = 'darwin_migrations';`
	err = db.QueryRow(s).Scan(&count)
	if err != nil || count == 0 {
		return 0, 0, err
	}

	s = `select count(*) as n, max(version) as ver from darwin_migrations;`
	err = db.QueryRow(s).Scan(&count, &ver)
	return count, ver, err
}

// minifiedMigrations returns our migrations with minified scripts so comments or formatting changes
// will not generate a new checksum
func minifiedMigrations() []darwin.Migration {
	migrations := defineMigrations()
	for i := range migrations {
		migrations[i].Script = minify(migrations[i].Script)
	}
	return migrations
}

// minify simplifies the script to keep certain changes (spaces, tabs, case and comments) from
// creating a new checksum
func minify(script string) string {
	b := strings.Builder{}
	s := strings.ToLower(strings.ReplaceAll(script, "/*", "--"))
	lines := strings.Split(s, "\n")
	for _, line := range lines {
		if i := strings.Index(line, "--"); i != -1 {
			line = line[0:i]
		}
		b.WriteString(strings.TrimSpace(line) + "\n")
	}
	result := strings.TrimSpace(strings.ReplaceAll(b.String(), "\t", " "))
	before := 0
	for len(result) != before {
		before = len(result)
		result = strings.ReplaceAll(result, "  ", " ")
	}
	return strings.TrimSpace(result)
}

// progress returns the steps attempted during this migration
func progress(ch <-chan darwin.MigrationInfo) string {
	var b strings.Builder

	for info := range ch {
		_, _ = fmt.Fprintf(&b, "v%.2f: \"%s\" (%s) Error: %v\n",
			info.Migration.Version, info.Migration.Description, info.Status.String(), info.Error)
	}
	return b.String()
}

// Schema returns the current sqlite definitions as a string for display (without comments)
func Schema() string {
	var b strings.Builder

	schema := defineMigrations()
	for _, m := range schema {
		_, _ = fmt.Fprintf(&b, "-- %s (%.2f)\n%s\n\n", m.Description, m.Version, m.Script)
	}
	return b.String()
}

// VerifyApplicationID checks that the database has the correct application_id.
// Empty databases (application_id = 0, no tables) are accepted.
func VerifyApplicationID(db *sql.DB) error {
	var appID int
	if err := db.QueryRow("PRAGMA application_id;").Scan(&appID); err != nil {
		return fmt.Errorf("read application_id: %w", err)
	}

	// Accept our application ID
	if appID == ApplicationID {
		return nil
	}

	// Reject non-zero application IDs that aren't ours
	if appID != 0 {
		return fmt.Errorf("%w (application_id 0x%X)", ErrInvalidDatabase, appID)
	}

	// appID is 0 - only accept if database is empty (no user tables)
	var tableCount int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'`).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check tables: %w", err)
	}
	if tableCount > 0 {
		return fmt.Errorf("%w (has tables but no application_id)", ErrInvalidDatabase)
	}

	return nil
}

// RunMigrations applies all migrations to an already-open *sql.DB.
func RunMigrations(db *sql.DB) error {
	_, err := Migrate(db)
	return err
}

// Migrate applies pending migrations and returns a display line describing the version change.
func Migrate(db *sql.DB) (string, error) {
	if err := VerifyApplicationID(db); err != nil {
		return "", err
	}

	count, v1, err := currentVersion(db)
	if err != nil {
		return "", err
	}

	migrations := minifiedMigrations()
	if count == len(migrations) && v1 == migrations[count-1].Version {
		return changes(v1, v1), nil
	}

	// setup for the migrations
	driver := darwin.NewGenericDriver(db, darwin.SqliteDialect{})
	infoChan := make(chan darwin.MigrationInfo, len(migrations))
	d := darwin.New(driver, migrations, infoChan)

	// perform the migrations
	var v2 float64
	if err := d.Migrate(); err != nil {
		close(infoChan)
		_, v2, _ = currentVersion(db)
		prog := progress(infoChan)
		return "", fmt.Errorf("migration (was v%.2f now v%.2f): %w\n%s", v1, v2, err, prog)
	}
	close(infoChan)

	_, v2, err = currentVersion(db)
	if err != nil {
		return "", err
	}

	return changes(v1, v2), nil
}
