// Package partition groups postal records into a two-level prefix/suffix index.
//
// A postal code such as "1760005" is split into the 3-digit prefix "176" and
// the 4-digit suffix "0005". Partition builds the whole index in one linear
// pass over the validated record set:
//
//	idx, stats := partition.Partition(records)
//	for _, prefix := range idx.Prefixes() {
//	    union := idx.PrefixRecords(prefix)    // -> D/176.<ext>
//	    for _, suffix := range idx.Suffixes(prefix) {
//	        leaf := idx.Bucket(prefix, suffix) // -> D/176/0005.<ext>
//	    }
//	}
//
// # Ordering
//
// Records inside every bucket, and inside every per-prefix union, keep the
// order in which they appeared in the input. Prefixes and suffixes iterate in
// ascending order so repeated runs visit the tree identically.
//
// # Skipped Records
//
// Records whose postal code is not exactly seven bytes long cannot be keyed.
// They are excluded from the index and counted in Stats.Skipped; Partition
// never panics and never returns an error.
//
// # Thread Safety
//
// An Index is immutable once Partition returns and may be read from any
// number of goroutines.
package partition
