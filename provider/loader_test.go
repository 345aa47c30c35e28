package provider_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/polydock/engine/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		yaml := []byte(`
providers:
  - key: noop
    config:
      polls_required: "2"
  - key: azure-prod
    config:
      subscription_id: sub-123
      region: eastus
`)
		configs, err := provider.Parse(yaml)
		require.NoError(t, err)
		require.Len(t, configs, 2)
		assert.Equal(t, "2", configs["noop"]["polls_required"])
		assert.Equal(t, "eastus", configs["azure-prod"]["region"])
	})

	t.Run("entry without config", func(t *testing.T) {
		configs, err := provider.Parse([]byte("providers:\n  - key: noop\n"))
		require.NoError(t, err)
		require.Contains(t, configs, "noop")
		assert.NotNil(t, configs["noop"], "missing config becomes an empty bag")
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := provider.Parse([]byte("providers:\n  - key: \"\"\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key cannot be empty")
	})

	t.Run("duplicate key", func(t *testing.T) {
		yaml := []byte(`
providers:
  - key: noop
  - key: noop
`)
		_, err := provider.Parse(yaml)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate provider key")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := provider.Parse([]byte("providers: [unclosed"))
		require.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("reads from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "providers.yaml")
		err := os.WriteFile(path, []byte("providers:\n  - key: noop\n"), 0o600)
		require.NoError(t, err)

		configs, err := provider.Load(path)
		require.NoError(t, err)
		assert.Contains(t, configs, "noop")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := provider.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
