package partition

import (
	"reflect"
	"testing"

	"github.com/jittakal/jpostcode/pkg/postal"
)

func rec(code, town string) postal.Record {
	return postal.Record{PostalCode: code, TownName: town}
}

func codes(records []postal.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.TownName
	}
	return out
}

func TestPartition_Scenario(t *testing.T) {
	records := []postal.Record{
		rec("1760005", "r1"),
		rec("1760006", "r2"),
		rec("1000001", "r3"),
	}

	idx, stats := Partition(records)

	if got := idx.Prefixes(); !reflect.DeepEqual(got, []string{"100", "176"}) {
		t.Errorf("Prefixes() = %v", got)
	}
	if got := idx.Suffixes("176"); !reflect.DeepEqual(got, []string{"0005", "0006"}) {
		t.Errorf("Suffixes(176) = %v", got)
	}
	if got := codes(idx.Bucket("100", "0001")); !reflect.DeepEqual(got, []string{"r3"}) {
		t.Errorf("Bucket(100, 0001) = %v", got)
	}
	if idx.FileCount() != 5 {
		t.Errorf("FileCount() = %d, want 5", idx.FileCount())
	}
	if stats.Prefixes != 2 || stats.Codes != 3 || stats.Indexed != 3 || stats.Skipped != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPartition_PreservesSourceOrder(t *testing.T) {
	records := []postal.Record{
		rec("1760006", "a"),
		rec("1760005", "b"),
		rec("1760006", "c"),
		rec("1760005", "d"),
	}

	idx, _ := Partition(records)

	if got := codes(idx.Bucket("176", "0006")); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Bucket(176, 0006) = %v, want [a c]", got)
	}
	if got := codes(idx.PrefixRecords("176")); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("PrefixRecords(176) = %v, want source order", got)
	}
}

func TestPartition_SkipsInvalidCodes(t *testing.T) {
	records := []postal.Record{
		rec("123", "short"),
		rec("1760005", "ok"),
		rec("", "empty"),
		rec("17600051", "long"),
	}

	idx, stats := Partition(records)

	if stats.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", stats.Skipped)
	}
	if idx.RecordCount() != 1 {
		t.Errorf("RecordCount() = %d, want 1", idx.RecordCount())
	}
	if stats.Input != 4 {
		t.Errorf("Input = %d, want 4", stats.Input)
	}
}

func TestPartition_KeyProperty(t *testing.T) {
	records := []postal.Record{
		rec("0010000", "x"), rec("0010010", "y"), rec("9998531", "z"), rec("0010000", "w"),
	}
	idx, _ := Partition(records)

	for _, r := range records {
		bucket := idx.Lookup(r.PostalCode)
		found := false
		for _, b := range bucket {
			if b.PostalCode != r.PostalCode {
				t.Errorf("bucket for %s contains %s", r.PostalCode, b.PostalCode)
			}
			if b == r {
				found = true
			}
		}
		if !found {
			t.Errorf("record %+v missing from its bucket", r)
		}
	}

	for _, p := range idx.Prefixes() {
		if len(p) != 3 {
			t.Errorf("prefix %q has length %d", p, len(p))
		}
		for _, s := range idx.Suffixes(p) {
			if len(s) != 4 {
				t.Errorf("suffix %q has length %d", s, len(s))
			}
		}
	}
}

func TestPartition_Deterministic(t *testing.T) {
	records := []postal.Record{
		rec("5300001", "a"), rec("1000001", "b"), rec("5300002", "c"), rec("1000001", "d"),
	}

	first, _ := Partition(records)
	second, _ := Partition(records)

	if !reflect.DeepEqual(first.Prefixes(), second.Prefixes()) {
		t.Fatal("prefix iteration differs between runs")
	}
	for _, p := range first.Prefixes() {
		for _, s := range first.Suffixes(p) {
			if !reflect.DeepEqual(first.Bucket(p, s), second.Bucket(p, s)) {
				t.Errorf("bucket %s/%s differs between runs", p, s)
			}
		}
	}
}

func TestPartition_Empty(t *testing.T) {
	idx, stats := Partition(nil)
	if idx.PrefixCount() != 0 || idx.FileCount() != 0 {
		t.Errorf("empty input produced %d prefixes", idx.PrefixCount())
	}
	if stats.AvgPerPrefix() != 0 {
		t.Errorf("AvgPerPrefix() = %v, want 0", stats.AvgPerPrefix())
	}
	if idx.Bucket("100", "0001") != nil || idx.Suffixes("100") != nil {
		t.Error("lookups on empty index should return nil")
	}
}
