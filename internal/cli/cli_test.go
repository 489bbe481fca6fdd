package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/entorg/internal/model"
)

func TestSetDefaults_EnvOverride(t *testing.T) {
	t.Setenv("ENTORG_HTTP_TIMEOUT", "5s")
	t.Setenv("ENTORG_CONCURRENCY_WORKERS", "9")

	v := viper.New()
	require.NoError(t, setDefaults(v))
	v.SetEnvPrefix("ENTORG")
	v.SetEnvKeyReplacer(envKeys)
	v.AutomaticEnv()

	c := model.DefaultConfig()
	require.NoError(t, v.Unmarshal(c))

	assert.Equal(t, 5*time.Second, c.HTTP.Timeout)
	assert.Equal(t, 9, c.Concurrency.Workers)
	assert.Equal(t, []string{"reference", "entry-date"}, c.Fingerprint.VolatileFields)
	assert.Equal(t, -1, c.Fingerprint.CoordinatePrecision)
	assert.Equal(t, "local-authority:GLA", c.Organisations.IgnoredAuthority)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".entorg", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	c := &model.Config{}
	require.NoError(t, v.Unmarshal(c))
	assert.Equal(t, model.DefaultConfig().Lookup, c.Lookup)
	assert.Equal(t, model.DefaultConfig().HTTP.Timeout, c.HTTP.Timeout)

	assert.Error(t, writeDefaultConfig(path), "existing config must not be replaced")
}

func TestBuildRanges(t *testing.T) {
	root := t.TempDir()
	for name, content := range map[string]string{
		"tree": "prefix,entity,organisation\n" +
			"tree,1,local-authority:A\n" +
			"tree,2,local-authority:A\n",
		"conservation-area": "prefix,entity,organisation\n" +
			"conservation-area,9,local-authority:LB1\n" +
			"conservation-area,9,local-authority:LB2\n",
	} {
		dir := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "lookup.csv"), []byte(content), 0644))
	}

	report, err := buildRanges(context.Background(), model.DefaultConfig(), root, false)
	require.NoError(t, err)
	require.Len(t, report.Datasets, 2)

	assert.Equal(t, "ranges", report.Command)
	assert.Equal(t, model.StatusWithheld, report.Datasets[0].Status)
	assert.Equal(t, model.StatusPublished, report.Datasets[1].Status)

	data, err := os.ReadFile(filepath.Join(root, "tree", "entity-organisation.csv"))
	require.NoError(t, err)
	assert.Equal(t, "dataset,entity-minimum,entity-maximum,organisation\ntree,1,2,local-authority:A\n", string(data))
	assert.NoFileExists(t, filepath.Join(root, "conservation-area", "entity-organisation.csv"))
	assert.FileExists(t, filepath.Join(root, "conservation-area", "entity-organisation-conflicts.csv"))
}

func TestBuildRanges_NoLookups(t *testing.T) {
	_, err := buildRanges(context.Background(), model.DefaultConfig(), t.TempDir(), false)
	assert.Error(t, err)
}
