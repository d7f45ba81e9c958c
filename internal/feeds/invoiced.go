package feeds

import (
	"github.com/dealerops/partstrail-backend/internal/ledger"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
)

// invoicedFallbackHeaderRow is where the invoice manifest's headers have
// historically lived when the banner length is unchanged.
const invoicedFallbackHeaderRow = 48

// parseInvoiced reads the shipment invoice manifest. The banner above the
// table varies in length between exports, so the header row is located by
// content first and by the historical position as a fallback. The row
// directly under the header repeats unit labels and is skipped when it
// carries no quantity.
func parseInvoiced(rows [][]string, opts Options) ([]ledger.UploadRow, error) {
	headerRow := locateInvoicedHeader(rows)
	if headerRow < 0 || headerRow+1 >= len(rows) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice file header row not found")
	}

	header := rows[headerRow]
	itemCol := findColumn(header, "no", "item no")
	descCol := findColumn(header, "description")
	orderCol := findColumn(header, "order no")
	orderedCol := findColumn(header, "ordered")
	deliveredCol := findColumn(header, "delivered")
	custNameCol := findColumn(header, "cust. name", "cust name", "customer name")
	sourceCol := findColumn(header, "source of demande", "source of demand")

	if itemCol < 0 || orderCol < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice file is missing expected columns")
	}

	data := rows[headerRow+1:]
	// Sub-header junk row: no quantity where one is required.
	if len(data) > 0 && cell(data[0], itemCol) != "" && parseQty(cell(data[0], deliveredCol)) == 0 && parseQty(cell(data[0], orderedCol)) == 0 {
		data = data[1:]
	}

	var out []ledger.UploadRow
	for _, row := range data {
		itemNo := cell(row, itemCol)
		if itemNo == "" {
			continue
		}

		out = append(out, ledger.UploadRow{
			ItemNo:          itemNo,
			ItemDescription: cell(row, descCol),
			OrderNo:         cell(row, orderCol),
			OrderedQty:      parseQty(cell(row, orderedCol)),
			InTransitQty:    parseQty(cell(row, deliveredCol)),
			CustomerName:    cell(row, custNameCol),
			DocumentNo:      cell(row, sourceCol),
			ETA:             opts.ETA,
			ShipmentRef:     opts.ShipmentRef,
		})
	}
	return out, nil
}

// locateInvoicedHeader scans for a row that names both the order number
// and ordered quantity columns.
func locateInvoicedHeader(rows [][]string) int {
	for idx, row := range rows {
		hasOrderNo := false
		hasOrdered := false
		for _, raw := range row {
			switch foldHeader(raw) {
			case "order no":
				hasOrderNo = true
			case "ordered":
				hasOrdered = true
			}
		}
		if hasOrderNo && hasOrdered {
			return idx
		}
	}
	if len(rows) > invoicedFallbackHeaderRow {
		return invoicedFallbackHeaderRow
	}
	return -1
}
