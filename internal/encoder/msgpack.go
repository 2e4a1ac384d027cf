package encoder

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Codec = (*MsgpackEncoder)(nil)

// MsgpackEncoder writes records as a MessagePack array of maps.
// Map keys follow registry column order.
type MsgpackEncoder struct{}

// NewMsgpackEncoder creates a new MessagePack encoder.
func NewMsgpackEncoder() *MsgpackEncoder {
	return &MsgpackEncoder{}
}

// Encode writes records to a MessagePack file.
func (e *MsgpackEncoder) Encode(filePath string, records []postal.Record) (*postal.FileStats, error) {
	if len(records) == 0 {
		return nil, errNoRecords
	}

	err := writeBuffered(filePath, func(w io.Writer) error {
		return msgpack.NewEncoder(w).Encode(convertToDocumentRows(records))
	})
	if err != nil {
		return nil, err
	}

	return statFile(filePath, len(records))
}

// Decode reads records from a MessagePack file written by Encode.
func (e *MsgpackEncoder) Decode(filePath string) ([]postal.Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var rows []documentRow
	if err := msgpack.NewDecoder(bufio.NewReader(file)).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode msgpack: %w", err)
	}
	return convertFromDocumentRows(rows), nil
}

// Format returns the file format.
func (e *MsgpackEncoder) Format() postal.FileFormat {
	return postal.FormatMsgpack
}

// FileExtension returns the file extension.
func (e *MsgpackEncoder) FileExtension() string {
	return ".msgpack"
}
