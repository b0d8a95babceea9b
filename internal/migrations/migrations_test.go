package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS_HasOrderedGooseFiles(t *testing.T) {
	entries, err := fs.ReadDir(FS, Dir)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	for i, e := range entries {
		assert.True(t, strings.HasPrefix(e.Name(), "0000"), e.Name())
		assert.Contains(t, e.Name(), []string{"users", "customers", "transactions", "activity"}[i])

		body, err := fs.ReadFile(FS, Dir+"/"+e.Name())
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up")
		assert.Contains(t, string(body), "-- +goose Down")
	}
}

func TestFS_TransactionsCascade(t *testing.T) {
	body, err := fs.ReadFile(FS, Dir+"/00003_create_transactions.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "ON DELETE CASCADE")
	assert.Contains(t, string(body), "CHECK (amount > 0)")
}
