// Package revindex provides a persistent reverse index over MinHash sketches.
//
// A reverse index maps every hash value of a collection of reference
// sketches to the set of datasets containing it. Sets are stored once per
// distinct content under a color, a digest of the member indices, so
// millions of hashes shared by the same datasets cost one set entry.
//
// # Quick Start
//
//	ctx := context.Background()
//	coll, _ := collection.FromZip(ctx, "gtdb-reps.zip")
//	idx, _ := revindex.Create(ctx, "./gtdb-index", coll, false)
//	defer idx.Close()
//
//	idx, _ := revindex.Open(ctx, "./gtdb-index", true, "")  // re-open read-only
//
// # Search
//
// Containment search counts, for every dataset, how many query hashes it
// contains:
//
//	q, _ := idx.PrepareQuery(sig, nil)
//	counter, _ := idx.CounterForQuery(ctx, q)
//	matches, _ := idx.MatchesFromCounter(counter, 3)
//
// # Gather
//
// Gather decomposes a query into the references explaining it best, one
// round at a time. Every round picks the dataset with the most remaining
// query hashes and removes those hashes from the query:
//
//	counters, _ := idx.PrepareGatherCounters(ctx, q)
//	results, _ := idx.Gather(ctx, counters, 5, q, nil)
//
// Counters are prepared once and may be gathered from repeatedly.
//
// # Storage
//
// An index references the signatures it was built from through a storage
// spec (zip://, fs://, s3://, ...). InternalizeStorage copies every signature
// into the index so it can be moved freely:
//
//	_ = idx.InternalizeStorage(ctx)
//
// # Concurrency
//
// Queries and checks may run concurrently on one handle. Update, Compact,
// Convert and InternalizeStorage take the handle exclusively. A location must
// not be written by more than one process.
package revindex
