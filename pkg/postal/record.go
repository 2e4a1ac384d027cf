package postal

import (
	"fmt"
	"time"
)

// Column names in registry order. The same order is used for CSV headers,
// table columns and every row-oriented encoding.
const (
	FieldLocalGovernmentCode        = "local_government_code"
	FieldOldPostalCode              = "old_postal_code"
	FieldPostalCode                 = "postal_code"
	FieldPrefectureNameKana         = "prefecture_name_kana"
	FieldCityNameKana               = "city_name_kana"
	FieldTownNameKana               = "town_name_kana"
	FieldPrefectureName             = "prefecture_name"
	FieldCityName                   = "city_name"
	FieldTownName                   = "town_name"
	FieldMultiplePostalCodesPerTown = "multiple_postal_codes_per_town"
	FieldKoazaNumbering             = "koaza_numbering"
	FieldHasChome                   = "has_chome"
	FieldMultipleTownsPerPostalCode = "multiple_towns_per_postal_code"
	FieldUpdateStatus               = "update_status"
	FieldChangeReason               = "change_reason"
)

// FieldNames lists every record field in registry column order.
var FieldNames = []string{
	FieldLocalGovernmentCode,
	FieldOldPostalCode,
	FieldPostalCode,
	FieldPrefectureNameKana,
	FieldCityNameKana,
	FieldTownNameKana,
	FieldPrefectureName,
	FieldCityName,
	FieldTownName,
	FieldMultiplePostalCodesPerTown,
	FieldKoazaNumbering,
	FieldHasChome,
	FieldMultipleTownsPerPostalCode,
	FieldUpdateStatus,
	FieldChangeReason,
}

// FieldCount is the number of columns in a registry row.
const FieldCount = 15

// Record represents one validated registry row.
// Records are values; once built they are never modified.
type Record struct {
	LocalGovernmentCode string `json:"local_government_code"`
	// OldPostalCode is empty when the row carries no legacy code.
	OldPostalCode        string `json:"old_postal_code"`
	PostalCode           string `json:"postal_code"`
	PrefectureNameKana   string `json:"prefecture_name_kana"`
	CityNameKana         string `json:"city_name_kana"`
	TownNameKana         string `json:"town_name_kana"`
	PrefectureName       string `json:"prefecture_name"`
	CityName             string `json:"city_name"`
	TownName             string `json:"town_name"`
	MultiplePostalCodes  string `json:"multiple_postal_codes_per_town"`
	KoazaNumbering       string `json:"koaza_numbering"`
	HasChome             string `json:"has_chome"`
	MultipleTownsPerCode string `json:"multiple_towns_per_postal_code"`
	UpdateStatus         string `json:"update_status"`
	ChangeReason         string `json:"change_reason"`
}

// HasOldPostalCode reports whether the legacy postal code is present.
func (r Record) HasOldPostalCode() bool {
	return r.OldPostalCode != ""
}

// Values returns the record fields in FieldNames order.
func (r Record) Values() []string {
	return []string{
		r.LocalGovernmentCode,
		r.OldPostalCode,
		r.PostalCode,
		r.PrefectureNameKana,
		r.CityNameKana,
		r.TownNameKana,
		r.PrefectureName,
		r.CityName,
		r.TownName,
		r.MultiplePostalCodes,
		r.KoazaNumbering,
		r.HasChome,
		r.MultipleTownsPerCode,
		r.UpdateStatus,
		r.ChangeReason,
	}
}

// FromValues builds a Record from field values in FieldNames order.
// It performs no validation beyond the column count; decoders use it to
// rebuild records that were validated before they were encoded.
func FromValues(values []string) (Record, error) {
	if len(values) != FieldCount {
		return Record{}, fmt.Errorf("expected %d fields, got %d", FieldCount, len(values))
	}
	return Record{
		LocalGovernmentCode:  values[0],
		OldPostalCode:        values[1],
		PostalCode:           values[2],
		PrefectureNameKana:   values[3],
		CityNameKana:         values[4],
		TownNameKana:         values[5],
		PrefectureName:       values[6],
		CityName:             values[7],
		TownName:             values[8],
		MultiplePostalCodes:  values[9],
		KoazaNumbering:       values[10],
		HasChome:             values[11],
		MultipleTownsPerCode: values[12],
		UpdateStatus:         values[13],
		ChangeReason:         values[14],
	}, nil
}

// Key is the two-level partition key of a postal code.
type Key struct {
	Prefix string
	Suffix string
}

// String returns the full 7-digit postal code.
func (k Key) String() string {
	return k.Prefix + k.Suffix
}

// PrefixLen is the number of leading postal-code digits forming the prefix.
const PrefixLen = 3

// PostalCodeLen is the length of a current postal code.
const PostalCodeLen = 7

// SplitPostalCode splits a 7-character postal code into its prefix and suffix.
// It returns false when the code does not have exactly seven bytes.
func SplitPostalCode(code string) (Key, bool) {
	if len(code) != PostalCodeLen {
		return Key{}, false
	}
	return Key{Prefix: code[:PrefixLen], Suffix: code[PrefixLen:]}, true
}

// Key returns the partition key of the record.
func (r Record) Key() (Key, bool) {
	return SplitPostalCode(r.PostalCode)
}

// FileStats contains statistics about one written file.
type FileStats struct {
	RecordCount int
	SizeBytes   int64
	WrittenAt   time.Time
}

// FileFormat represents an output file format.
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatJSON    FileFormat = "json"
	FormatNDJSON  FileFormat = "ndjson"
	FormatXML     FileFormat = "xml"
	FormatYAML    FileFormat = "yaml"
	FormatTOML    FileFormat = "toml"
	FormatParquet FileFormat = "parquet"
	FormatFeather FileFormat = "feather"
	FormatAvro    FileFormat = "avro"
	FormatMsgpack FileFormat = "msgpack"
	FormatBSON    FileFormat = "bson"
	FormatSQLite  FileFormat = "sqlite"
)

// AllFormats returns every supported format in registration order.
func AllFormats() []FileFormat {
	return []FileFormat{
		FormatCSV,
		FormatJSON,
		FormatNDJSON,
		FormatXML,
		FormatYAML,
		FormatTOML,
		FormatParquet,
		FormatFeather,
		FormatAvro,
		FormatMsgpack,
		FormatBSON,
		FormatSQLite,
	}
}

// ParseFormat converts a format name to a FileFormat.
func ParseFormat(name string) (FileFormat, error) {
	for _, f := range AllFormats() {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown file format: %q", name)
}
