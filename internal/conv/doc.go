// Package conv converts between integer types with bounds checks.
//
// Dataset indices are uint32 on disk while collections count records with
// int; conversions at that boundary go through this package. Conversions that
// are safe by construction use plain casts.
package conv
