package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/toko-billing/internal/model"
)

const salesSheet = "Sales"

// SalesXLSX writes report rows as an Excel workbook with numeric cells and a
// bold header row.
func SalesXLSX(w io.Writer, period model.ReportPeriod, reports []model.SalesReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	header := make([]any, len(salesHeader))
	for i, h := range salesHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(salesSheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx: header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx: style: %w", err)
	}
	if err := f.SetRowStyle(salesSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("xlsx: style header: %w", err)
	}
	numFmt := "0.00"
	twoDP, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("xlsx: style: %w", err)
	}

	for i, r := range reports {
		row := []any{
			PeriodLabel(period, r.Period),
			r.TotalSales,
			r.TotalProfit,
			r.ProfitMargin(),
			r.BillCount,
			r.CashSales,
			r.CashProfit,
			r.CreditSales,
			r.CreditProfit,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(salesSheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx: row %d: %w", i+2, err)
		}
	}
	if len(reports) > 0 {
		if err := f.SetCellStyle(salesSheet, "B2", fmt.Sprintf("I%d", len(reports)+1), twoDP); err != nil {
			return fmt.Errorf("xlsx: number format: %w", err)
		}
	}
	if err := f.SetColWidth(salesSheet, "A", "I", 18); err != nil {
		return fmt.Errorf("xlsx: widths: %w", err)
	}
	_, err = f.WriteTo(w)
	return err
}
