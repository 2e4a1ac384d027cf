package encoder

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jittakal/jpostcode/pkg/postal"
)

var errNoRecords = errors.New("no records to encode")

// oldPostalCodeColumn is the position of old_postal_code in Record.Values.
const oldPostalCodeColumn = 1

// statFile builds FileStats for a file that has been fully written and closed.
func statFile(filePath string, count int) (*postal.FileStats, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &postal.FileStats{
		RecordCount: count,
		SizeBytes:   fileInfo.Size(),
		WrittenAt:   time.Now(),
	}, nil
}

// documentRow is the shared row shape of the document formats.
// OldPostalCode is nil when the record has no legacy code.
type documentRow struct {
	LocalGovernmentCode  string  `json:"local_government_code" yaml:"local_government_code" msgpack:"local_government_code" bson:"local_government_code" toml:"local_government_code"`
	OldPostalCode        *string `json:"old_postal_code" yaml:"old_postal_code" msgpack:"old_postal_code" bson:"old_postal_code" toml:"old_postal_code,omitempty"`
	PostalCode           string  `json:"postal_code" yaml:"postal_code" msgpack:"postal_code" bson:"postal_code" toml:"postal_code"`
	PrefectureNameKana   string  `json:"prefecture_name_kana" yaml:"prefecture_name_kana" msgpack:"prefecture_name_kana" bson:"prefecture_name_kana" toml:"prefecture_name_kana"`
	CityNameKana         string  `json:"city_name_kana" yaml:"city_name_kana" msgpack:"city_name_kana" bson:"city_name_kana" toml:"city_name_kana"`
	TownNameKana         string  `json:"town_name_kana" yaml:"town_name_kana" msgpack:"town_name_kana" bson:"town_name_kana" toml:"town_name_kana"`
	PrefectureName       string  `json:"prefecture_name" yaml:"prefecture_name" msgpack:"prefecture_name" bson:"prefecture_name" toml:"prefecture_name"`
	CityName             string  `json:"city_name" yaml:"city_name" msgpack:"city_name" bson:"city_name" toml:"city_name"`
	TownName             string  `json:"town_name" yaml:"town_name" msgpack:"town_name" bson:"town_name" toml:"town_name"`
	MultiplePostalCodes  string  `json:"multiple_postal_codes_per_town" yaml:"multiple_postal_codes_per_town" msgpack:"multiple_postal_codes_per_town" bson:"multiple_postal_codes_per_town" toml:"multiple_postal_codes_per_town"`
	KoazaNumbering       string  `json:"koaza_numbering" yaml:"koaza_numbering" msgpack:"koaza_numbering" bson:"koaza_numbering" toml:"koaza_numbering"`
	HasChome             string  `json:"has_chome" yaml:"has_chome" msgpack:"has_chome" bson:"has_chome" toml:"has_chome"`
	MultipleTownsPerCode string  `json:"multiple_towns_per_postal_code" yaml:"multiple_towns_per_postal_code" msgpack:"multiple_towns_per_postal_code" bson:"multiple_towns_per_postal_code" toml:"multiple_towns_per_postal_code"`
	UpdateStatus         string  `json:"update_status" yaml:"update_status" msgpack:"update_status" bson:"update_status" toml:"update_status"`
	ChangeReason         string  `json:"change_reason" yaml:"change_reason" msgpack:"change_reason" bson:"change_reason" toml:"change_reason"`
}

// optional returns nil for an empty string.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func convertToDocumentRows(records []postal.Record) []documentRow {
	rows := make([]documentRow, len(records))
	for i, r := range records {
		rows[i] = documentRow{
			LocalGovernmentCode:  r.LocalGovernmentCode,
			OldPostalCode:        optional(r.OldPostalCode),
			PostalCode:           r.PostalCode,
			PrefectureNameKana:   r.PrefectureNameKana,
			CityNameKana:         r.CityNameKana,
			TownNameKana:         r.TownNameKana,
			PrefectureName:       r.PrefectureName,
			CityName:             r.CityName,
			TownName:             r.TownName,
			MultiplePostalCodes:  r.MultiplePostalCodes,
			KoazaNumbering:       r.KoazaNumbering,
			HasChome:             r.HasChome,
			MultipleTownsPerCode: r.MultipleTownsPerCode,
			UpdateStatus:         r.UpdateStatus,
			ChangeReason:         r.ChangeReason,
		}
	}
	return rows
}

func convertFromDocumentRows(rows []documentRow) []postal.Record {
	records := make([]postal.Record, len(rows))
	for i, r := range rows {
		records[i] = postal.Record{
			LocalGovernmentCode:  r.LocalGovernmentCode,
			OldPostalCode:        deref(r.OldPostalCode),
			PostalCode:           r.PostalCode,
			PrefectureNameKana:   r.PrefectureNameKana,
			CityNameKana:         r.CityNameKana,
			TownNameKana:         r.TownNameKana,
			PrefectureName:       r.PrefectureName,
			CityName:             r.CityName,
			TownName:             r.TownName,
			MultiplePostalCodes:  r.MultiplePostalCodes,
			KoazaNumbering:       r.KoazaNumbering,
			HasChome:             r.HasChome,
			MultipleTownsPerCode: r.MultipleTownsPerCode,
			UpdateStatus:         r.UpdateStatus,
			ChangeReason:         r.ChangeReason,
		}
	}
	return records
}

// postalCodesDocument wraps rows under a single named key.
type postalCodesDocument struct {
	PostalCodes []documentRow `bson:"postal_codes" toml:"postal_codes"`
}
