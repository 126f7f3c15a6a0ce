package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpine/ragcell/internal/core/domain"
)

func TestListCmd_Empty(t *testing.T) {
	_, _, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCmd("list")

	require.NoError(t, err)
	assert.Contains(t, out, "No collections")
}

func TestListCmd_ShowsCollections(t *testing.T) {
	_, _, st, cleanup := setupTestServices()
	defer cleanup()
	st.infos = []domain.CollectionInfo{
		{Name: "default", Chunks: 12, Model: "nomic-embed-text", Dimensions: 768,
			CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		{Name: "papers", Chunks: 340, Model: "nomic-embed-text", Dimensions: 768,
			CreatedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
	}

	out, err := executeCmd("list")

	require.NoError(t, err)
	assert.Contains(t, out, "default")
	assert.Contains(t, out, "papers")
	assert.Contains(t, out, "340")
	assert.Contains(t, out, "nomic-embed-text")
}

func TestListCmd_JSON(t *testing.T) {
	_, _, st, cleanup := setupTestServices()
	defer cleanup()
	st.infos = []domain.CollectionInfo{{Name: "default", Chunks: 12}}

	out, err := executeCmd("list", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"name": "default"`)
	assert.Contains(t, out, `"chunks": 12`)
}

func TestListCmd_StoreError(t *testing.T) {
	_, _, st, cleanup := setupTestServices()
	defer cleanup()
	st.err = errStub

	_, err := executeCmd("list")

	assert.ErrorIs(t, err, errStub)
}
