package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI against a database in dir and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DB_PATH", filepath.Join(dir, "pos.db"))
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "missing.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSchemaCmd(t *testing.T) {
	out, err := run(t, t.TempDir(), "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS license")
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS device")
}

func TestRoutesCmd(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "routes")
	require.NoError(t, err)
	assert.Contains(t, out, "POST   /api/v1/licenses/verify")
	assert.Contains(t, out, "GET    /metrics")

	_, err = os.Stat(filepath.Join(dir, "pos.db"))
	assert.True(t, os.IsNotExist(err), "routes must not create the database")
}

func TestLicenseWorkflow(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "tenant", "add", "Sunrise Diner")
	require.NoError(t, err)
	assert.Contains(t, out, "Sunrise Diner")

	out, err = run(t, dir, "customer", "add", "Sunrise Main St", "--tenant", "sunrise diner", "--email", "ops@sunrise.test")
	require.NoError(t, err)
	customerID := strings.Fields(out)[0]

	out, err = run(t, dir, "license", "issue",
		"--tenant", "Sunrise Diner",
		"--customer", customerID,
		"--plan", "pro",
		"--key", "CSTY-SUNR-2345-6789",
		"--valid-until", "2099-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "CSTY-SUNR-2345-6789")
	assert.Contains(t, out, "Pro")
	assert.Contains(t, out, "2099-01-01")

	out, err = run(t, dir, "license", "activate", "csty-sunr-2345-6789", "--plan", "starter")
	require.NoError(t, err)
	assert.Contains(t, out, "Starter")

	out, err = run(t, dir, "license", "revoke", "CSTY-SUNR-2345-6789", "--reason", "closed")
	require.NoError(t, err)
	assert.Contains(t, out, "revoked CSTY-SUNR-2345-6789")

	out, err = run(t, dir, "license", "list", "--tenant", "Sunrise Diner")
	require.NoError(t, err)
	assert.Contains(t, out, "revoked")

	out, err = run(t, dir, "license", "events", "CSTY-SUNR-2345-6789")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "\n"), "issued, activated and revoked")
	assert.Contains(t, out, "issued")

	out, err = run(t, dir, "backup")
	require.NoError(t, err)
	assert.Contains(t, out, "_posdump.sql.gz")

	out, err = run(t, dir, "backup", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "_posdump.sql.gz")
}

func TestLicenseIssueErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "license", "issue", "--tenant", "nobody")
	assert.ErrorContains(t, err, `tenant "nobody" not found`)

	_, err = run(t, dir, "license", "issue", "--tenant", "x", "--plan", "gold")
	assert.Error(t, err)

	_, err = run(t, dir, "license", "issue", "--tenant", "x", "--valid-until", "01/02/2030")
	assert.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestCustomerWorkflow(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "tenant", "add", "Harbor Bakery")
	require.NoError(t, err)

	out, err := run(t, dir, "customer", "add", "Harbor Pier", "--tenant", "Harbor Bakery", "--contact", "Ana")
	require.NoError(t, err)
	customerID := strings.Fields(out)[0]

	out, err = run(t, dir, "customer", "update", customerID, "--tenant", "Harbor Bakery",
		"--name", "Harbor Pier 2", "--email", "pier@harbor.test")
	require.NoError(t, err)
	assert.Contains(t, out, "Harbor Pier 2")

	out, err = run(t, dir, "customer", "list", "--tenant", "Harbor Bakery")
	require.NoError(t, err)
	assert.Contains(t, out, "Harbor Pier 2")
	assert.Contains(t, out, "Ana", "unchanged fields are kept")
	assert.Contains(t, out, "pier@harbor.test")

	_, err = run(t, dir, "customer", "update", customerID, "--tenant", "Harbor Bakery", "--name", " ")
	assert.ErrorContains(t, err, "must not be empty")

	out, err = run(t, dir, "customer", "delete", customerID, "--tenant", "Harbor Bakery")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+customerID)

	_, err = run(t, dir, "customer", "delete", customerID, "--tenant", "Harbor Bakery")
	assert.ErrorContains(t, err, "not found")

	out, err = run(t, dir, "customer", "list", "--tenant", "Harbor Bakery")
	require.NoError(t, err)
	assert.NotContains(t, out, customerID)
}
