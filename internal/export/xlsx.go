// Package export writes confirmed subscriptions to spreadsheet files.
package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/subscan/internal/billing"
	"github.com/sells-group/subscan/internal/model"
)

// SheetName is the name of the single sheet WriteXLSX produces.
const SheetName = "Subscriptions"

const moneyFormat = "0.00"

// Header is the first row of the exported sheet.
var Header = []string{"Name", "Origin", "Cycle", "Price", "Monthly"}

// WriteXLSX writes one row per record followed by monthly and annual
// total rows.
func WriteXLSX(w io.Writer, records []model.Candidate) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Header {
		header.AddCell().SetString(h)
	}

	for _, c := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(c.DisplayName)
		row.AddCell().SetString(string(c.Origin))
		row.AddCell().SetString(string(c.Cycle))
		setMoney(row.AddCell(), c.Price)
		setMoney(row.AddCell(), billing.MonthlyEquivalent(c.Price, c.Cycle))
	}

	totalRow(sheet, "Total", billing.MonthlyTotal(records))
	totalRow(sheet, "Annual", billing.AnnualTotal(records))

	return eris.Wrap(f.Write(w), "xlsx: write")
}

func totalRow(sheet *xlsx.Sheet, label string, amount decimal.Decimal) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	for range len(Header) - 2 {
		row.AddCell().SetString("")
	}
	setMoney(row.AddCell(), amount)
}

func setMoney(cell *xlsx.Cell, d decimal.Decimal) {
	cell.SetFloatWithFormat(d.Round(2).InexactFloat64(), moneyFormat)
}
