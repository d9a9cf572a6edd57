package migrations

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	src, err := EmbeddedSource()
	require.NoError(t, err)
	defer src.Close()

	versions, err := Available(src)
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.Equal(t, uint(1), versions[0])

	for _, v := range versions {
		up, _, err := src.ReadUp(v)
		require.NoError(t, err, "version %d has no up file", v)
		body, err := io.ReadAll(up)
		require.NoError(t, err)
		_ = up.Close()
		assert.Contains(t, string(body), "CREATE TABLE")

		down, _, err := src.ReadDown(v)
		require.NoError(t, err, "version %d has no down file", v)
		_ = down.Close()
	}
}

func TestInitialSchemaMatchesModels(t *testing.T) {
	body, err := sqlFiles.ReadFile("sql/000001_create_engine_schema.up.sql")
	require.NoError(t, err)

	for _, table := range []string{"ingredients", "recipes", "recipe_items", "meal_plans", "food_logs"} {
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, string(body), "idx_meal_plans_user_date ON meal_plans (user_id, date)")
}
