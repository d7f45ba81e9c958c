package feeds

import (
	"github.com/dealerops/partstrail-backend/internal/ledger"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
)

// parseOnOrder reads the reservation export. Headers live on the first
// row. The feed carries no arrival date, so every row gets a default ETA
// two weeks out from the upload.
func parseOnOrder(rows [][]string, opts Options) ([]ledger.UploadRow, error) {
	if len(rows) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "on order file has no data rows")
	}

	header := rows[0]
	itemCol := findColumn(header, "item no")
	descCol := findColumn(header, "returnitemdescription", "description")
	custNoCol := findColumn(header, "customer no")
	custNameCol := findColumn(header, "customer name")
	reservedFromCol := findColumn(header, "reserved from")
	reservedForCol := findColumn(header, "reserved for")
	qtyCol := findColumn(header, "quantity", "qty")
	vinCol := findColumn(header, "vin")
	docCol := findColumn(header, "document no")

	if itemCol < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "on order file is missing the item number column")
	}

	eta := opts.UploadedAt.Add(onOrderETAOffset).Format(ETADateLayout)

	var out []ledger.UploadRow
	for _, row := range rows[1:] {
		itemNo := cell(row, itemCol)
		if itemNo == "" {
			continue
		}

		orderNo := cell(row, reservedFromCol)
		if orderNo == "" {
			orderNo = cell(row, reservedForCol)
		}

		// The export has no dedicated document column; the reservation
		// document lives in Reserved For.
		docNo := cell(row, docCol)
		if docNo == "" {
			docNo = cell(row, reservedForCol)
		}

		qty := parseQty(cell(row, qtyCol))
		if qty == 0 {
			qty = 1
		}

		out = append(out, ledger.UploadRow{
			ItemNo:          itemNo,
			ItemDescription: cell(row, descCol),
			CustomerNo:      cell(row, custNoCol),
			CustomerName:    cell(row, custNameCol),
			VIN:             cell(row, vinCol),
			DocumentNo:      docNo,
			OrderNo:         orderNo,
			ServiceAdvisor:  opts.Advisor,
			ETA:             eta,
			OrderedQty:      qty,
		})
	}
	return out, nil
}
