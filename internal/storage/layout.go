package storage

import (
	"github.com/jittakal/jpostcode/pkg/storage"
)

// Ensure implementation satisfies interface.
var _ storage.Layout = TreeLayout{}

// AllDataName is the base name of the whole-dataset file of each format.
const AllDataName = "all_data"

// TreeLayout places files as:
//
//	all_data.<ext>
//	<prefix>.<ext>
//	<prefix>/<suffix>.<ext>
type TreeLayout struct{}

// NewLayout creates the default output layout.
func NewLayout() TreeLayout {
	return TreeLayout{}
}

// AllData returns the path of the whole-dataset file.
func (TreeLayout) AllData(ext string) string {
	return AllDataName + ext
}

// Prefix returns the path of a per-prefix union file.
func (TreeLayout) Prefix(prefix, ext string) string {
	return prefix + ext
}

// Suffix returns the path of a per-code leaf file.
func (TreeLayout) Suffix(prefix, suffix, ext string) string {
	return prefix + "/" + suffix + ext
}
