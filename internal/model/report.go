package model

// ReportPeriod selects how sales are bucketed.
type ReportPeriod string

const (
	PeriodDaily   ReportPeriod = "daily"
	PeriodWeekly  ReportPeriod = "weekly"
	PeriodMonthly ReportPeriod = "monthly"
	PeriodCustom  ReportPeriod = "custom"
)

// Valid reports whether the period is supported.
func (p ReportPeriod) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodCustom:
		return true
	}
	return false
}

// SalesReport is one bucket of the sales report.
type SalesReport struct {
	Period       string  `json:"period"`
	TotalSales   float64 `json:"totalSales"`
	TotalProfit  float64 `json:"totalProfit"`
	BillCount    int     `json:"billCount"`
	CashSales    float64 `json:"cashSales"`
	CashProfit   float64 `json:"cashProfit"`
	CreditSales  float64 `json:"creditSales"`
	CreditProfit float64 `json:"creditProfit"`
}

// ProfitMargin is profit as a percentage of sales, zero when nothing was sold.
func (r SalesReport) ProfitMargin() float64 {
	if r.TotalSales == 0 {
		return 0
	}
	return r.TotalProfit / r.TotalSales * 100
}

// SalesSummary aggregates a set of report rows.
type SalesSummary struct {
	TotalSales   float64 `json:"totalSales"`
	TotalProfit  float64 `json:"totalProfit"`
	BillCount    int     `json:"billCount"`
	AvgBill      float64 `json:"avgBill"`
	AvgProfit    float64 `json:"avgProfit"`
	ProfitMargin float64 `json:"profitMargin"`
	CashSales    float64 `json:"cashSales"`
	CreditSales  float64 `json:"creditSales"`
}

// Summarize folds report rows into a summary.
func Summarize(rows []SalesReport) SalesSummary {
	var s SalesSummary
	for _, row := range rows {
		s.TotalSales += row.TotalSales
		s.TotalProfit += row.TotalProfit
		s.BillCount += row.BillCount
		s.CashSales += row.CashSales
		s.CreditSales += row.CreditSales
	}
	if s.BillCount > 0 {
		s.AvgBill = s.TotalSales / float64(s.BillCount)
		s.AvgProfit = s.TotalProfit / float64(s.BillCount)
	}
	if s.TotalSales > 0 {
		s.ProfitMargin = s.TotalProfit / s.TotalSales * 100
	}
	return s
}
