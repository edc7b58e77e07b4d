package badger

import (
	"encoding/binary"
	"strings"

	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/storage"
)

const (
	fragmentPrefix    = "frag:"
	sourceIndexPrefix = "fsrc:"
	checkpointPrefix  = "chkpt:"

	// keySep separates variable-length key parts; it cannot appear in names.
	keySep = "\x00"
)

func validateCollection(collection string) error {
	if collection == "" || strings.Contains(collection, keySep) {
		return storage.ErrInvalidCollection
	}
	return nil
}

// makeCollectionPrefix returns the prefix shared by all fragments of a collection.
// Format: frag:collection\x00
func makeCollectionPrefix(collection string) []byte {
	return []byte(fragmentPrefix + collection + keySep)
}

// makeFragmentKey generates the primary key for a fragment.
// Format: frag:collection\x00<id big-endian>
func makeFragmentKey(collection string, id core.ID) []byte {
	return appendID(makeCollectionPrefix(collection), id)
}

// makeSourcePrefix returns the prefix of the source index entries of one document.
// Format: fsrc:collection\x00sourceID\x00
func makeSourcePrefix(collection, sourceID string) []byte {
	return []byte(sourceIndexPrefix + collection + keySep + sourceID + keySep)
}

// makeSourceKey generates a source index key.
// Format: fsrc:collection\x00sourceID\x00<id big-endian>
func makeSourceKey(collection, sourceID string, id core.ID) []byte {
	return appendID(makeSourcePrefix(collection, sourceID), id)
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType, collection string) []byte {
	return []byte(checkpointPrefix + processorType + keySep + collection)
}

// appendID writes id in BigEndian order so lexicographic sort matches numeric order.
func appendID(prefix []byte, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(prefix, uint64(id))
}

// idFromKey reads the trailing ID of a fragment or source index key.
func idFromKey(key []byte) (core.ID, error) {
	if len(key) < 8 {
		return 0, storage.ErrTruncatedData
	}
	return storage.UnmarshalID(key[len(key)-8:])
}
