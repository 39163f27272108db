package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spenser.io/synthpop/internal/config"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validConfig = `{
	"person_resolution": "MSOA11",
	"household_resolution": "OA11",
	"projection": "ppp",
	"strict": false,
	"year": 2020,
	"data_dir": "data/",
	"profile": false
}`

func TestParseOptions(t *testing.T) {
	config.ResetForTest()
	path := writeConfigFile(t, validConfig)

	opts, err := ParseOptions([]string{"--config", path, "--region", "E09000001", "--rng_seed", "7"})
	require.NoError(t, err)
	assert.Equal(t, "E09000001", opts.Region)
	assert.Equal(t, uint64(7), opts.Seed)
	assert.False(t, opts.Scotland())
}

func TestParseOptionsScotland(t *testing.T) {
	config.ResetForTest()
	path := writeConfigFile(t, validConfig)

	opts, err := ParseOptions([]string{"--config", path, "--region", "S12000033"})
	require.NoError(t, err)
	assert.True(t, opts.Scotland())
	assert.Equal(t, uint64(0), opts.Seed)
}

func TestParseOptionsMissingConfig(t *testing.T) {
	config.ResetForTest()
	_, err := ParseOptions([]string{"--region", "E09000001"})
	require.Error(t, err)
}

func TestParseOptionsMissingRegion(t *testing.T) {
	config.ResetForTest()
	path := writeConfigFile(t, validConfig)
	_, err := ParseOptions([]string{"--config", path})
	require.Error(t, err)
}

func TestParseOptionsSeedFromConfig(t *testing.T) {
	config.ResetForTest()
	path := writeConfigFile(t, `{
		"person_resolution": "MSOA11",
		"household_resolution": "OA11",
		"projection": "ppp",
		"year": 2020,
		"data_dir": "data/",
		"rng_seed": 99
	}`)
	opts, err := ParseOptions([]string{"--config", path, "--region", "E09000001"})
	require.NoError(t, err)
	assert.Equal(t, uint64(99), opts.Seed)
}

func TestParseOptionsInvalidConfigDocument(t *testing.T) {
	config.ResetForTest()
	path := writeConfigFile(t, `{"person_resolution": "MSOA11"}`)
	_, err := ParseOptions([]string{"--config", path, "--region", "E09000001"})
	require.Error(t, err)
}
