package storage

import "testing"

func TestTreeLayout(t *testing.T) {
	layout := NewLayout()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"all data json", layout.AllData(".json"), "all_data.json"},
		{"all data sqlite", layout.AllData(".db"), "all_data.db"},
		{"prefix", layout.Prefix("176", ".csv"), "176.csv"},
		{"suffix", layout.Suffix("176", "0005", ".csv"), "176/0005.csv"},
		{"leading zeros", layout.Suffix("001", "0000", ".parquet"), "001/0000.parquet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("path = %q, want %q", tt.got, tt.want)
			}
		})
	}
}
