package feeds

import (
	"regexp"
	"strings"

	"github.com/dealerops/partstrail-backend/internal/ledger"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
)

// backOrderHeaderRow is where the supplier's back order report puts its
// column headers, after four rows of report banner.
const backOrderHeaderRow = 4

// legacyPORe matches the old two-part purchase order format "NN NNN".
var legacyPORe = regexp.MustCompile(`^\d{2}\s+(\d+)$`)

// parseBackOrder reads the supplier back order report. The PO reference
// header has drifted across report versions, so several spellings are
// accepted. Car down arrives as a bare "x" marker.
func parseBackOrder(rows [][]string, opts Options) ([]ledger.UploadRow, error) {
	if len(rows) <= backOrderHeaderRow+1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "back order file has no data rows")
	}

	header := rows[backOrderHeaderRow]
	itemCol := findColumn(header, "part number", "part no", "item no")
	descCol := findColumn(header, "description")
	poCol := findColumn(header, "po reference", "po ref", "po no", "po number", "purchase order")
	qtyCol := findColumn(header, "backorder quantity", "b/o quantity", "quantity")
	etaCol := findColumn(header, "eta date", "eta")
	nextCol := findColumn(header, "next information", "next info")
	carDownCol := findColumn(header, "car down", "cardown")

	if itemCol < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "back order file is missing the part number column")
	}

	var out []ledger.UploadRow
	for _, row := range rows[backOrderHeaderRow+1:] {
		itemNo := cell(row, itemCol)
		if itemNo == "" {
			continue
		}

		out = append(out, ledger.UploadRow{
			ItemNo:          itemNo,
			ItemDescription: cell(row, descCol),
			OrderNo:         rewriteLegacyPO(cell(row, poCol)),
			OrderedQty:      parseQty(cell(row, qtyCol)),
			ETA:             cell(row, etaCol),
			NextInfo:        cell(row, nextCol),
			Cardown:         carDownValue(cell(row, carDownCol)),
			BackOrderDate:   opts.BackOrderDate,
		})
	}
	return out, nil
}

// rewriteLegacyPO maps the retired "NN NNN" purchase order format onto the
// current numbering scheme.
func rewriteLegacyPO(po string) string {
	m := legacyPORe.FindStringSubmatch(strings.TrimSpace(po))
	if m == nil {
		return po
	}
	suffix := strings.TrimLeft(m[1], "0")
	if suffix == "" {
		suffix = "0"
	}
	return "26PAG" + suffix
}

func carDownValue(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), "x") {
		return "Yes"
	}
	return ""
}
