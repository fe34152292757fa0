package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func executeRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseCommandText(t *testing.T) {
	out, err := executeRoot(t, "INSERT INTO target SELECT * FROM source; RENAME TABLE a TO b; DROP TABLE x",
		"parse", "--schema", "public")
	require.NoError(t, err)

	assert.Contains(t, out, "Source tables (1):\n  - public.source\n")
	assert.Contains(t, out, "Target tables (1):\n  - public.target\n")
	assert.Contains(t, out, "Dropped tables (1):\n  - public.x\n")
	assert.Contains(t, out, "Renamed tables (1):\n  - public.a -> public.b\n")
}

func TestParseCommandJSONFromFile(t *testing.T) {
	dir := t.TempDir()
	sqlPath := filepath.Join(dir, "query.sql")
	require.NoError(t, os.WriteFile(sqlPath, []byte("COPY INTO raw.events FROM @landing"), 0o600))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("platform: snowflake\nprofile:\n  database: dw\n"), 0o600))

	out, err := executeRoot(t, "", "parse", sqlPath, "--config", cfgPath, "--full-names", "-o", "json")
	require.NoError(t, err)

	var dict map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &dict))
	assert.Equal(t, "snowflake", dict["platform_type"])
	assert.Equal(t, []any{"dw.raw.events"}, dict["target_tables"])
	assert.Equal(t, []any{}, dict["source_tables"])
}

func TestParseCommandBSON(t *testing.T) {
	out, err := executeRoot(t, "INSERT INTO target SELECT * FROM source", "parse", "-o", "bson")
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal([]byte(out), &doc))
	assert.Equal(t, bson.A{"source"}, doc["source_tables"])
	assert.Equal(t, bson.A{"target"}, doc["target_tables"])
}

func TestParseCommandErrors(t *testing.T) {
	_, err := executeRoot(t, "SELECT 1", "parse", "-o", "yaml")
	assert.ErrorContains(t, err, "unknown output format")

	_, err = executeRoot(t, "SELECT 1", "parse", "--platform", "oracle")
	assert.ErrorContains(t, err, "invalid platform")

	_, err = executeRoot(t, "SELECT 1", "parse", "--sql-mode", "NOT_A_MODE")
	assert.ErrorContains(t, err, "invalid sql_mode")

	_, err = executeRoot(t, "SELEC * FORM t", "parse")
	assert.ErrorContains(t, err, "failed to parse query")
}
