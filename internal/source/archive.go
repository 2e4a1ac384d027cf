package source

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	apperrors "github.com/jittakal/jpostcode/internal/errors"
)

// DefaultCSVName is the registry member inside the published archive.
const DefaultCSVName = "utf_ken_all.csv"

// zipMember is an open archive member that closes its archive too.
type zipMember struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (m *zipMember) Close() error {
	err := m.ReadCloser.Close()
	if cerr := m.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

// OpenZip opens the member name of the archive at zipPath. The match is on
// the base name and ignores case, so KEN_ALL.CSV is found as ken_all.csv.
func OpenZip(zipPath, name string) (io.ReadCloser, int64, error) {
	if name == "" {
		name = DefaultCSVName
	}

	archive, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: open archive %s: %v", apperrors.ErrSourceUnreadable, zipPath, err)
	}

	var names []string
	for _, f := range archive.File {
		names = append(names, f.Name)
		if !strings.EqualFold(path.Base(f.Name), name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			archive.Close()
			return nil, 0, fmt.Errorf("%w: open %s in %s: %v", apperrors.ErrSourceUnreadable, f.Name, zipPath, err)
		}
		return &zipMember{ReadCloser: rc, archive: archive}, int64(f.UncompressedSize64), nil
	}

	archive.Close()
	return nil, 0, fmt.Errorf("%w: %s not found in %s (members: %v)", apperrors.ErrSourceUnreadable, name, zipPath, names)
}
