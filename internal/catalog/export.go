package catalog

import (
	"io"

	"github.com/gocarina/gocsv"
)

// WriteCSV writes products as CSV with a header row.
func WriteCSV(w io.Writer, products []Product) error {
	if products == nil {
		products = []Product{}
	}
	return gocsv.Marshal(products, w)
}
