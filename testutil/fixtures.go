package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/revindex/sketch"
	"github.com/hupe1980/revindex/storage"
)

// IndexFixture returns three datasets. The first shares no hash with the
// others and holds 48 hashes; the other two overlap.
func IndexFixture(seed int64) []*sketch.Signature {
	pool := NewRNG(seed).NewHashPool(Scaled)
	shared := pool.Take(20)
	return []*sketch.Signature{
		Signature("genome-a", Ksize, Scaled, pool.Take(48)),
		Signature("genome-b", Ksize, Scaled, pool.Take(40), shared),
		Signature("genome-c", Ksize, Scaled, pool.Take(35), shared),
	}
}

// UpdateFixture returns three datasets. The third holds 45 hashes, ten of
// which it shares with the second.
func UpdateFixture(seed int64) []*sketch.Signature {
	pool := NewRNG(seed).NewHashPool(Scaled)
	shared := pool.Take(10)
	return []*sketch.Signature{
		Signature("genome-a", Ksize, Scaled, pool.Take(40)),
		Signature("genome-b", Ksize, Scaled, pool.Take(40), shared),
		Signature("genome-c", Ksize, Scaled, pool.Take(35), shared),
	}
}

// GatherThreshold is the count threshold GatherFixture is designed for.
const GatherThreshold = 5

// GatherFixture returns twelve references and a query made of all of them.
//
// Reference 0 holds 50 private hashes plus 30 shared with reference 11.
// References 1 to 10 hold 60-2i private hashes each. Reference 11 keeps only
// 3 hashes of its own once reference 0 is claimed, so gathering at
// GatherThreshold yields eleven matches, the first one fully contained.
func GatherFixture(seed int64) ([]*sketch.Signature, *sketch.Signature) {
	pool := NewRNG(seed).NewHashPool(Scaled)
	shared := pool.Take(30)

	refs := make([]*sketch.Signature, 0, 12)
	refs = append(refs, Signature("ref-00", Ksize, Scaled, pool.Take(50), shared))
	for i := 1; i <= 10; i++ {
		refs = append(refs, Signature(fmt.Sprintf("ref-%02d", i), Ksize, Scaled, pool.Take(60-2*i)))
	}
	refs = append(refs, Signature("ref-11", Ksize, Scaled, pool.Take(3), shared))

	parts := make([][]uint64, 0, len(refs))
	for _, r := range refs {
		parts = append(parts, r.MinHash().Hashes())
	}
	return refs, Signature("mixture", Ksize, Scaled, parts...)
}

// WriteSignatures writes every signature to its own file in dir and returns
// the paths. Odd positions are gzip compressed.
func WriteSignatures(tb testing.TB, dir string, sigs []*sketch.Signature) []string {
	tb.Helper()
	paths := make([]string, 0, len(sigs))
	for i, sig := range sigs {
		name := fmt.Sprintf("%02d-%s.sig", i, sig.Name)
		if i%2 == 1 {
			name += ".gz"
		}
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			tb.Fatal(err)
		}
		if err := sketch.Write(f, []*sketch.Signature{sig}, i%2 == 1); err != nil {
			tb.Fatal(err)
		}
		if err := f.Close(); err != nil {
			tb.Fatal(err)
		}
		paths = append(paths, path)
	}
	return paths
}

// WriteZip stores every signature as its own entry of a zip archive at path.
func WriteZip(tb testing.TB, path string, sigs []*sketch.Signature) {
	tb.Helper()
	names := make([]string, 0, len(sigs))
	files := make(map[string][]byte, len(sigs))
	for i, sig := range sigs {
		data, err := sketch.Encode(sig)
		if err != nil {
			tb.Fatal(err)
		}
		name := fmt.Sprintf("signatures/%02d.sig", i)
		names = append(names, name)
		files[name] = data
	}

	f, err := os.Create(path)
	if err != nil {
		tb.Fatal(err)
	}
	defer f.Close()
	if err := storage.WriteZip(f, names, files); err != nil {
		tb.Fatal(err)
	}
}
