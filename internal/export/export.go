// Package export renders bills, customers, transactions and sales reports as
// spreadsheets with the column layouts the shop's staff already use.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/toko-billing/internal/model"
)

const dateLayout = "02/01/2006"

var (
	billHeader        = []string{"Bill ID", "Customer", "Date", "Subtotal", "Markup (%)", "Discount (%)", "Grand Total", "Partial Payment", "Remaining Amount", "Status", "Payment Type"}
	customerHeader    = []string{"Name", "Phone", "Address", "Account Number", "Balance"}
	transactionHeader = []string{"Date", "Type", "Description", "Amount"}
	salesHeader       = []string{"Period", "Total Sales (Rs.)", "Total Profit (Rs.)", "Profit Margin (%)", "Bill Count", "Cash Sales (Rs.)", "Cash Profit (Rs.)", "Credit Sales (Rs.)", "Credit Profit (Rs.)"}
)

// Bills writes the bill history as CSV.
func Bills(w io.Writer, bills []model.Bill) error {
	rows := make([][]string, 0, len(bills))
	for _, b := range bills {
		customer := b.CustomerName
		if customer == "" {
			customer = "N/A"
		}
		rows = append(rows, []string{
			ShortID(b.ID),
			customer,
			b.CreatedAt.Format(dateLayout),
			money(b.Subtotal),
			percent(b.Markup),
			percent(b.Discount),
			money(b.GrandTotal),
			money(b.PartialPayment),
			money(b.Remaining()),
			string(b.Status),
			string(b.PaymentType),
		})
	}
	return writeCSV(w, billHeader, rows)
}

// Customers writes the customer list as CSV.
func Customers(w io.Writer, customers []model.Customer) error {
	rows := make([][]string, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, []string{c.Name, c.Phone, c.Address, c.AccountNumber, money(c.Balance)})
	}
	return writeCSV(w, customerHeader, rows)
}

// Transactions writes a customer's ledger as CSV.
func Transactions(w io.Writer, txs []model.Transaction) error {
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		desc := strings.TrimSpace(tx.Description)
		if desc == "" {
			desc = "Manual payment"
		}
		rows = append(rows, []string{tx.CreatedAt.Format(dateLayout), string(tx.Type), desc, money(tx.Amount)})
	}
	return writeCSV(w, transactionHeader, rows)
}

// Sales writes report rows as CSV.
func Sales(w io.Writer, period model.ReportPeriod, reports []model.SalesReport) error {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, salesRow(period, r))
	}
	return writeCSV(w, salesHeader, rows)
}

func salesRow(period model.ReportPeriod, r model.SalesReport) []string {
	return []string{
		PeriodLabel(period, r.Period),
		money(r.TotalSales),
		money(r.TotalProfit),
		money(r.ProfitMargin()),
		strconv.Itoa(r.BillCount),
		money(r.CashSales),
		money(r.CashProfit),
		money(r.CreditSales),
		money(r.CreditProfit),
	}
}

// ShortID is the last six characters of a bill id, as printed on exports.
func ShortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

// PeriodLabel turns a bucket key into a human label: "2 Jan 2026",
// "Week 3, 2026" or "January 2026". Unparseable keys are returned as is.
func PeriodLabel(period model.ReportPeriod, key string) string {
	switch period {
	case model.PeriodDaily, model.PeriodCustom:
		if t, err := time.Parse("2006-01-02", key); err == nil {
			return t.Format("2 Jan 2006")
		}
	case model.PeriodWeekly:
		year, week, ok := strings.Cut(key, "-W")
		if n, err := strconv.Atoi(week); ok && err == nil {
			return fmt.Sprintf("Week %d, %s", n, year)
		}
	case model.PeriodMonthly:
		if t, err := time.Parse("2006-01", key); err == nil {
			return t.Format("January 2006")
		}
	}
	return key
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
