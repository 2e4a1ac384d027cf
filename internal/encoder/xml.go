package encoder

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Codec = (*XMLEncoder)(nil)

type xmlDocument struct {
	XMLName xml.Name    `xml:"postal_codes"`
	Records []xmlRecord `xml:"record"`
}

// xmlRecord keeps every field as an element; an absent old code is an empty element.
type xmlRecord struct {
	LocalGovernmentCode  string `xml:"local_government_code"`
	OldPostalCode        string `xml:"old_postal_code"`
	PostalCode           string `xml:"postal_code"`
	PrefectureNameKana   string `xml:"prefecture_name_kana"`
	CityNameKana         string `xml:"city_name_kana"`
	TownNameKana         string `xml:"town_name_kana"`
	PrefectureName       string `xml:"prefecture_name"`
	CityName             string `xml:"city_name"`
	TownName             string `xml:"town_name"`
	MultiplePostalCodes  string `xml:"multiple_postal_codes_per_town"`
	KoazaNumbering       string `xml:"koaza_numbering"`
	HasChome             string `xml:"has_chome"`
	MultipleTownsPerCode string `xml:"multiple_towns_per_postal_code"`
	UpdateStatus         string `xml:"update_status"`
	ChangeReason         string `xml:"change_reason"`
}

// XMLEncoder writes an XML document with a declaration and 2-space indent.
type XMLEncoder struct{}

// NewXMLEncoder creates a new XML encoder.
func NewXMLEncoder() *XMLEncoder {
	return &XMLEncoder{}
}

// Encode writes records to an XML file.
func (e *XMLEncoder) Encode(filePath string, records []postal.Record) (*postal.FileStats, error) {
	if len(records) == 0 {
		return nil, errNoRecords
	}

	doc := xmlDocument{Records: make([]xmlRecord, len(records))}
	for i, r := range records {
		doc.Records[i] = xmlRecord(r)
	}

	err := writeBuffered(filePath, func(w io.Writer) error {
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return err
		}
		enc := xml.NewEncoder(w)
		enc.Indent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	})
	if err != nil {
		return nil, err
	}

	return statFile(filePath, len(records))
}

// Decode reads records from an XML file written by Encode.
func (e *XMLEncoder) Decode(filePath string) ([]postal.Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var doc xmlDocument
	if err := xml.NewDecoder(bufio.NewReader(file)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode xml: %w", err)
	}

	records := make([]postal.Record, len(doc.Records))
	for i, r := range doc.Records {
		records[i] = postal.Record(r)
	}
	return records, nil
}

// Format returns the file format.
func (e *XMLEncoder) Format() postal.FileFormat {
	return postal.FormatXML
}

// FileExtension returns the file extension.
func (e *XMLEncoder) FileExtension() string {
	return ".xml"
}
