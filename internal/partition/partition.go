package partition

import (
	"sort"

	"github.com/jittakal/jpostcode/pkg/postal"
)

// Stats describes one partitioning pass.
type Stats struct {
	Input    int
	Indexed  int
	Skipped  int
	Prefixes int
	Codes    int
}

// AvgPerPrefix returns the mean number of records per prefix.
func (s Stats) AvgPerPrefix() float64 {
	if s.Prefixes == 0 {
		return 0
	}
	return float64(s.Indexed) / float64(s.Prefixes)
}

type prefixBucket struct {
	records  []postal.Record
	suffixes map[string][]postal.Record
	order    []string
}

// Index maps prefix -> suffix -> records in source order.
type Index struct {
	prefixes map[string]*prefixBucket
	order    []string
	records  int
	codes    int
}

// Partition builds the prefix/suffix index for records.
// The input slice and its records are not modified.
func Partition(records []postal.Record) (*Index, Stats) {
	idx := &Index{prefixes: make(map[string]*prefixBucket)}
	stats := Stats{Input: len(records)}

	for _, rec := range records {
		key, ok := rec.Key()
		if !ok {
			stats.Skipped++
			continue
		}

		pb, exists := idx.prefixes[key.Prefix]
		if !exists {
			pb = &prefixBucket{suffixes: make(map[string][]postal.Record)}
			idx.prefixes[key.Prefix] = pb
			idx.order = append(idx.order, key.Prefix)
		}
		if _, seen := pb.suffixes[key.Suffix]; !seen {
			pb.order = append(pb.order, key.Suffix)
			idx.codes++
		}
		pb.suffixes[key.Suffix] = append(pb.suffixes[key.Suffix], rec)
		pb.records = append(pb.records, rec)
		idx.records++
	}

	sort.Strings(idx.order)
	for _, pb := range idx.prefixes {
		sort.Strings(pb.order)
	}

	stats.Indexed = idx.records
	stats.Prefixes = len(idx.order)
	stats.Codes = idx.codes
	return idx, stats
}

// Prefixes returns every prefix in ascending order.
func (i *Index) Prefixes() []string {
	out := make([]string, len(i.order))
	copy(out, i.order)
	return out
}

// Suffixes returns the suffixes under prefix in ascending order.
func (i *Index) Suffixes(prefix string) []string {
	pb, ok := i.prefixes[prefix]
	if !ok {
		return nil
	}
	out := make([]string, len(pb.order))
	copy(out, pb.order)
	return out
}

// Bucket returns the records whose postal code is prefix+suffix.
func (i *Index) Bucket(prefix, suffix string) []postal.Record {
	pb, ok := i.prefixes[prefix]
	if !ok {
		return nil
	}
	return pb.suffixes[suffix]
}

// Lookup returns the bucket for a full 7-digit postal code.
func (i *Index) Lookup(code string) []postal.Record {
	key, ok := postal.SplitPostalCode(code)
	if !ok {
		return nil
	}
	return i.Bucket(key.Prefix, key.Suffix)
}

// PrefixRecords returns every record under prefix in source order.
func (i *Index) PrefixRecords(prefix string) []postal.Record {
	pb, ok := i.prefixes[prefix]
	if !ok {
		return nil
	}
	return pb.records
}

// PrefixCount returns the number of distinct prefixes.
func (i *Index) PrefixCount() int {
	return len(i.order)
}

// CodeCount returns the number of distinct full postal codes.
func (i *Index) CodeCount() int {
	return i.codes
}

// RecordCount returns the number of indexed records.
func (i *Index) RecordCount() int {
	return i.records
}

// FileCount returns how many grouped files one format produces:
// one per prefix plus one per postal code.
func (i *Index) FileCount() int {
	return len(i.order) + i.codes
}
