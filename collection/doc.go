// Package collection describes a snapshot of reference datasets: a manifest
// with one record per sketch, plus the storage the sketches are loaded from.
//
// The position of a record in the manifest is its dataset index. Indices are
// dense, start at zero and never change once an index has been built from the
// collection; updates may only append records.
//
//	coll, err := collection.FromPaths(ctx, []string{"a.sig", "b.sig.gz"})
//	coll = coll.Select(sketch.Selection{Ksize: 31})
//	sig, err := coll.SigForDataset(ctx, 0)
package collection
