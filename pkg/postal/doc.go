// Package postal defines the core types of the Japan Post postal-code registry.
//
// This package provides the public API shared by every encoder, storage writer
// and the partitioner: the registry Record, the two-level partition Key derived
// from a postal code, and the output file formats.
//
// # Record
//
// Record is one row of the registry (utf_ken_all.csv). Every field is text,
// including numeric-looking codes, so leading zeros survive every encoding:
//
//	rec := postal.Record{
//	    LocalGovernmentCode: "13101",
//	    OldPostalCode:       "100",
//	    PostalCode:          "1000001",
//	    PrefectureName:      "東京都",
//	    CityName:            "千代田区",
//	    TownName:            "千代田",
//	}
//
// An empty OldPostalCode means the registry row has no legacy code.
//
// # Partition Keys
//
// A 7-digit postal code splits into a 3-digit prefix and a 4-digit suffix:
//
//	key, ok := postal.SplitPostalCode("1760005")
//	// key.Prefix == "176", key.Suffix == "0005"
//
// # File Formats
//
// FileFormat names an output encoding. AllFormats lists them in the order the
// converter registers them.
package postal
