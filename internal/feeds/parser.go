// Package feeds converts the three supplier spreadsheet layouts into the
// uniform upload row shape the ledger consumes. Each feed has its own
// header conventions; the parsers locate columns by header text so column
// reordering upstream does not break imports.
package feeds

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dealerops/partstrail-backend/internal/ledger"
	"github.com/dealerops/partstrail-backend/pkg/enums"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
)

// Options carries upload-time inputs that do not live in the file itself.
type Options struct {
	// UploadedAt anchors the default On Order ETA. Zero means now.
	UploadedAt time.Time
	// Advisor is the service advisor the On Order upload is filed under.
	Advisor string
	// ETA is the manually supplied arrival date for Invoiced uploads.
	ETA string
	// ShipmentRef groups an Invoiced upload into one shipment.
	ShipmentRef string
	// BackOrderDate is the reported back-order start date, when the
	// supplier communicates one separately from the upload time.
	BackOrderDate string
}

// onOrderETAOffset is how far out a fresh order is assumed to arrive when
// the feed carries no date of its own.
const onOrderETAOffset = 14 * 24 * time.Hour

// ETADateLayout is the display format for ETA values.
const ETADateLayout = "2006-01-02"

// Parse reads an uploaded workbook and returns its rows in ledger shape.
// Rows with an empty item number are dropped here, before they reach the
// transition engine.
func Parse(feed enums.FeedKind, r io.Reader, opts Options) ([]ledger.UploadRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read sheet rows")
	}

	if opts.UploadedAt.IsZero() {
		opts.UploadedAt = time.Now()
	}

	switch feed {
	case enums.FeedKindOnOrder:
		return parseOnOrder(rows, opts)
	case enums.FeedKindBackOrder:
		return parseBackOrder(rows, opts)
	case enums.FeedKindInvoiced:
		return parseInvoiced(rows, opts)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown feed kind %q", feed))
	}
}

// cell returns the trimmed value at idx, tolerating the ragged rows
// excelize produces for sparse sheets.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// foldHeader canonicalizes a header cell for lookup: lowercase, collapsed
// whitespace, trailing punctuation dropped.
func foldHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, ".:")
}

// findColumn returns the index of the first header cell equal to any of
// the accepted spellings, or -1.
func findColumn(header []string, names ...string) int {
	for idx, raw := range header {
		folded := foldHeader(raw)
		for _, name := range names {
			if folded == name {
				return idx
			}
		}
	}
	return -1
}

// parseQty reads an integer quantity, tolerating the ".0" float artifact
// spreadsheet exports add to whole numbers.
func parseQty(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	raw = strings.TrimSuffix(raw, ".0")
	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return n
}
