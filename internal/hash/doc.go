// Package hash provides the hashing primitives of the reverse index.
//
// # Colors
//
// A color is the xxhash64 digest of the ascending member sequence of a dataset
// set, each member written as a 4-byte little-endian integer. Equal sets always
// produce equal digests, independently of the table that derived them:
//
//	d := hash.NewColorDigest()
//	for idx := range set.All() {
//	    d.Add(idx)
//	}
//	color := d.Sum()
//
// The empty set digests to EmptyColor, the xxhash64 of zero bytes.
//
// # Checksums
//
// Blobs embedded into an index carry a CRC32-Castagnoli checksum:
//
//	sum := hash.CRC32C(data)
package hash
