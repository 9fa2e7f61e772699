package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/lizardfs/dataplane/pkg/chunk"
)

// partStore is the chunkserver's local part storage. Real disk layout
// (directory sharding, preallocation, fsync discipline) is out of core per
// spec.md §1; this is the minimal file-per-part store needed to exercise
// the CLTOCS_READ / CLTOCS_WRITE_DATA handlers end to end.
type partStore struct {
	mu   sync.Mutex
	root string
}

func newPartStore(root string) *partStore {
	os.MkdirAll(root, 0700)
	return &partStore{root: root}
}

func (s *partStore) path(id chunk.ID, part chunk.PartType) string {
	return filepath.Join(s.root, fmt.Sprintf("%d.%d.%d", id, part.Slice, part.Index))
}

func (s *partStore) ReadBlock(id chunk.ID, part chunk.PartType, blockNumber int, blockSize int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := ioutil.ReadFile(s.path(id, part))
	if err != nil {
		return nil, err
	}
	start := blockNumber * blockSize
	if start >= len(data) {
		return make([]byte, blockSize), nil
	}
	end := start + blockSize
	if end > len(data) {
		end = len(data)
	}
	block := make([]byte, blockSize)
	copy(block, data[start:end])
	return block, nil
}

func (s *partStore) WriteBlock(id chunk.ID, part chunk.PartType, blockNumber int, offsetInBlock int, blockSize int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.path(id, part)
	existing, _ := ioutil.ReadFile(p)
	off := blockNumber*blockSize + offsetInBlock
	need := off + len(data)
	if need > len(existing) {
		grown := make([]byte, need)
		copy(grown, existing)
		existing = grown
	}
	copy(existing[off:], data)
	return ioutil.WriteFile(p, existing, 0600)
}
