package main

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdem-autopilot/config"
	"holdem-autopilot/journal"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	_, err := executeOut(t, args...)
	return err
}

func executeOut(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestNewLogger(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, newLogger(config.Log{Level: "debug"}).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, newLogger(config.Log{}).GetLevel())
	assert.Equal(t, zerolog.WarnLevel, newLogger(config.Log{Level: "warn", Console: true}).GetLevel())
}

func TestLoadArtifact_Fallback(t *testing.T) {
	cfg = config.Default()
	log = zerolog.Nop()

	_, err := loadArtifact("")
	assert.Error(t, err, "nothing configured and no fallback")

	set, err := loadArtifact("nlhe-fchpa-40")
	require.NoError(t, err)
	assert.Equal(t, []int{40}, set.Depths())

	_, err = loadArtifact("poker")
	assert.Error(t, err)
}

func TestTreeCommand(t *testing.T) {
	require.NoError(t, execute(t, "tree", "nlhe-fchpa-40"))
	require.NoError(t, execute(t, "tree", "nlhe-fchpa-40", "c"))
	assert.Error(t, execute(t, "tree", "nlhe-fchpa-40", "zz"))
	assert.Error(t, execute(t, "tree", "nlhe-fchpa-40", "--bucket", "0"), "no strategies configured")
}

func TestJournalSchemaCommand(t *testing.T) {
	out, err := executeOut(t, "journal", "schema")
	require.NoError(t, err)
	assert.Equal(t, journal.PostgresSchema, out)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS autopilot_decisions")
}
