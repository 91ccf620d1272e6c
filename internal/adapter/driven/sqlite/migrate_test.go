package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateUp_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	version, err := MigrateUp(db.Writer)
	require.NoError(t, err)
	assert.Equal(t, uint(5), version)

	version, err = MigrateUp(db.Writer)
	require.NoError(t, err)
	assert.Equal(t, uint(5), version)
}
