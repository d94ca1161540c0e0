package revindex

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/revindex/codec"
	"github.com/hupe1980/revindex/collection"
	"github.com/hupe1980/revindex/internal/color"
	"github.com/hupe1980/revindex/internal/idxset"
	"github.com/hupe1980/revindex/internal/kv"
	"github.com/hupe1980/revindex/sketch"
	"github.com/hupe1980/revindex/storage"
)

// FormatVersion is the on-disk layout version written by this package.
const FormatVersion uint32 = 1

// Partitions of the key-value store.
const (
	partMetadata    = "metadata"
	partHashes      = "hashes"
	partColors      = "colors"
	partStorage     = storage.Partition
	partColorMerges = "color_merges"
)

var diskPartitions = []string{partMetadata, partHashes, partColors, partStorage}

// Metadata keys.
var (
	keyManifest    = []byte("manifest")
	keyStorageSpec = []byte("storage_spec")
	keyVersion     = []byte("version")
	keyProcessed   = []byte("processed")
	keyCodec       = []byte("codec")
	keySelection   = []byte("selection")
)

const (
	stateBuilding = "building"
	stateComplete = "complete"
)

// processedMarker records whether the last mutation finished. Indexes whose
// marker is not complete do not open.
type processedMarker struct {
	State    string `json:"state"`
	Datasets int    `json:"datasets"`
}

// metaCodec encodes the fixed metadata records. The manifest uses the codec
// recorded under keyCodec instead.
var metaCodec codec.Codec = codec.GoJSON{}

func hashKey(h uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, h)
}

func colorKey(c color.Color) []byte {
	return binary.LittleEndian.AppendUint64(nil, uint64(c))
}

// errBadKey reports a key of the wrong length.
var errBadKey = errors.New("malformed key")

func decodeKeyColor(key []byte) color.Color {
	return color.Color(binary.LittleEndian.Uint64(key))
}

func decodeColor(key, v []byte) (color.Color, error) {
	if len(v) != 8 {
		return 0, corruptEntry(partHashes, key, fmt.Errorf("color value has %d bytes", len(v)))
	}
	return color.Color(binary.LittleEndian.Uint64(v)), nil
}

func putMarker(tx *kv.Tx, state string, datasets int) error {
	return tx.Set(partMetadata, keyProcessed, codec.MustMarshal(metaCodec, processedMarker{State: state, Datasets: datasets}))
}

// putCollection records the manifest, selection and storage spec of coll.
func putCollection(tx *kv.Tx, c codec.Codec, coll *collection.Collection, sel sketch.Selection) error {
	m, err := coll.Manifest().Encode(c)
	if err != nil {
		return err
	}
	if err := tx.Set(partMetadata, keyManifest, m); err != nil {
		return err
	}
	if err := tx.Set(partMetadata, keySelection, codec.MustMarshal(metaCodec, sel)); err != nil {
		return err
	}
	spec := ""
	if coll.Storage() != nil {
		spec = coll.Storage().Spec()
	}
	return tx.Set(partMetadata, keyStorageSpec, []byte(spec))
}

type metadata struct {
	version  uint32
	codec    codec.Codec
	marker   processedMarker
	manifest *collection.Manifest
	sel      sketch.Selection
	spec     string
}

func readMetadata(db *kv.DB) (*metadata, error) {
	md := &metadata{codec: codec.Default}
	err := db.View(func(tx *kv.Tx) error {
		raw, err := tx.Get(partMetadata, keyProcessed)
		if err != nil {
			return fmt.Errorf("%w: no processed marker: %w", ErrNotFound, err)
		}
		if err := metaCodec.Unmarshal(raw, &md.marker); err != nil {
			return corruptEntry(partMetadata, keyProcessed, err)
		}
		if md.marker.State != stateComplete {
			return fmt.Errorf("%w: index build did not complete (state %q)", ErrNotFound, md.marker.State)
		}

		if raw, err = tx.Get(partMetadata, keyVersion); err == nil && len(raw) == 4 {
			md.version = binary.LittleEndian.Uint32(raw)
		}
		if md.version > FormatVersion {
			return fmt.Errorf("%w: format version %d is newer than %d", ErrConfigMismatch, md.version, FormatVersion)
		}

		if raw, err = tx.Get(partMetadata, keyCodec); err == nil {
			if c, ok := codec.ByName(string(raw)); ok {
				md.codec = c
			}
		}

		raw, err = tx.Get(partMetadata, keyManifest)
		if err != nil {
			return fmt.Errorf("%w: no manifest: %w", ErrNotFound, err)
		}
		if md.manifest, err = collection.DecodeManifest(md.codec, raw); err != nil {
			return corruptEntry(partMetadata, keyManifest, err)
		}

		if raw, err = tx.Get(partMetadata, keySelection); err == nil {
			if err := metaCodec.Unmarshal(raw, &md.sel); err != nil {
				return corruptEntry(partMetadata, keySelection, err)
			}
		}

		raw, err = tx.Get(partMetadata, keyStorageSpec)
		if err != nil && !errors.Is(err, kv.ErrNotFound) {
			return err
		}
		md.spec = string(raw)
		return nil
	})
	return md, err
}

// setResolver loads color sets from the colors partition, caching every set
// for the lifetime of one call.
type setResolver struct {
	sets map[color.Color]idxset.Set
}

func newSetResolver() *setResolver {
	return &setResolver{sets: make(map[color.Color]idxset.Set)}
}

func (r *setResolver) get(tx *kv.Tx, c color.Color) (idxset.Set, error) {
	if s, ok := r.sets[c]; ok {
		return s, nil
	}
	key := colorKey(c)
	raw, err := tx.Get(partColors, key)
	if err != nil {
		return idxset.Set{}, corruptEntry(partColors, key, fmt.Errorf("color %s: %w", c, err))
	}
	s, err := idxset.FromBytes(raw)
	if err != nil {
		return idxset.Set{}, corruptEntry(partColors, key, err)
	}
	r.sets[c] = s
	return s, nil
}

// lookupColor returns the color of hash h, or false when h is not indexed.
func lookupColor(tx *kv.Tx, h uint64) (color.Color, bool, error) {
	key := hashKey(h)
	raw, err := tx.Get(partHashes, key)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	c, err := decodeColor(key, raw)
	return c, err == nil, err
}
