package masterstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/lizardfs/dataplane/pkg/chunk"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "master.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetChunkRoundTrip(t *testing.T) {
	s := openTestStore(t)

	locs := []chunk.Location{
		{Part: chunk.PartType{Slice: chunk.SliceXor2, Index: 0}, Address: "cs0:9422", Label: "ssd"},
		{Part: chunk.PartType{Slice: chunk.SliceXor2, Index: 1}, Address: "cs1:9422", Label: "hdd"},
	}
	require.NoError(t, s.PutChunk(7, 3, 99, locs))

	version, lockID, gotLocs, found, err := s.GetChunk(7)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, chunk.Version(3), version)
	assert.Equal(t, uint64(99), lockID)
	require.Len(t, gotLocs, 2)
	assert.Equal(t, "cs0:9422", gotLocs[0].Address)
	assert.Equal(t, chunk.MediaLabel("hdd"), gotLocs[1].Label)
}

func TestGetChunkNotFound(t *testing.T) {
	s := openTestStore(t)
	_, _, _, found, err := s.GetChunk(123)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteChunk(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutChunk(1, 1, 1, nil))
	require.NoError(t, s.DeleteChunk(1))
	_, _, _, found, err := s.GetChunk(1)
	require.NoError(t, err)
	assert.False(t, found)
}
