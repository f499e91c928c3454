package main

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/toko-billing/internal/billing"
	"github.com/noah-isme/toko-billing/internal/client"
	"github.com/noah-isme/toko-billing/internal/model"
)

const dateLayout = "02 Jan 2006 15:04"

func (c *cli) loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange staff credentials for a token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.api.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "export POS_TOKEN=%s\n", res.Token)
			fmt.Fprintf(c.errOut, "token expires %s\n", res.ExpiresAt.Local().Format(dateLayout))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "admin", "staff username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "staff password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) itemsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items [keywords]",
		Short: "List or search the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := c.api.ListItems(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			tw := c.table("ID", "NAME", "TYPE", "SIZE", "PRICE", "STOCK")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%d\n", it.ID, it.Name, it.Type, it.Size, it.SellingPrice, it.Stock)
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(c.itemAddCmd(), c.itemEditCmd(), c.itemRmCmd())
	return cmd
}

func (c *cli) customersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers [keywords]",
		Short: "List or search customers",
		RunE: func(cmd *cobra.Command, args []string) error {
			customers, err := c.api.ListCustomers(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			tw := c.table("ID", "NAME", "PHONE", "ACCOUNT", "BALANCE")
			for _, cu := range customers {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\n", cu.ID, cu.Name, cu.Phone, cu.AccountNumber, cu.Balance)
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(c.customerAddCmd(), c.customerEditCmd(), c.customerRmCmd())
	return cmd
}

// itemSpec is one --item flag: ID[:qty[:price]].
type itemSpec struct {
	ID       string
	Quantity int
	Price    string
}

func parseItemSpec(raw string) (itemSpec, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) > 3 || parts[0] == "" {
		return itemSpec{}, fmt.Errorf("invalid item %q, want ID[:qty[:price]]", raw)
	}
	spec := itemSpec{ID: parts[0], Quantity: 1}
	if len(parts) > 1 && parts[1] != "" {
		qty, err := strconv.Atoi(parts[1])
		if err != nil || qty < 1 {
			return itemSpec{}, fmt.Errorf("invalid quantity in %q", raw)
		}
		spec.Quantity = qty
	}
	if len(parts) > 2 && parts[2] != "" {
		price, err := strconv.ParseFloat(parts[2], 64)
		if err != nil || price < 0 {
			return itemSpec{}, fmt.Errorf("invalid price in %q", raw)
		}
		spec.Price = parts[2]
	}
	return spec, nil
}

// fillSession applies the cart lines of a bill to s.
func fillSession(s billing.Session, specs []itemSpec) (billing.Session, error) {
	var err error
	for _, spec := range specs {
		if s, err = s.Apply(billing.AddItem{ItemID: spec.ID}); err != nil {
			return s, fmt.Errorf("item %s: %w", spec.ID, err)
		}
		idx := s.Cart().IndexOf(spec.ID)
		if spec.Quantity > 1 {
			qty := s.Cart().Quantity(spec.ID) + spec.Quantity - 1
			if s, err = s.Apply(billing.ChangeQuantity{Index: idx, Quantity: qty}); err != nil {
				return s, fmt.Errorf("item %s: %w", spec.ID, err)
			}
		}
		if spec.Price != "" {
			if s, err = s.Apply(billing.ChangePrice{Index: idx, Price: spec.Price}); err != nil {
				return s, fmt.Errorf("item %s: %w", spec.ID, err)
			}
		}
	}
	return s, nil
}

func (c *cli) billCmd() *cobra.Command {
	var (
		customerID  string
		rawItems    []string
		markup      float64
		discount    float64
		method      string
		amount      string
		dryRun      bool
		receiptPath string
	)
	cmd := &cobra.Command{
		Use:   "bill",
		Short: "Build a bill and save it",
		Example: `  pos bill --customer 3f2a... --item 8c1d...:3 --item 91aa...:1:450 --markup 5 --pay credit --amount 500
  pos bill --item 8c1d...:2 --pay cash --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if len(rawItems) == 0 {
				return billing.ErrEmptyCart
			}
			specs := make([]itemSpec, 0, len(rawItems))
			for _, raw := range rawItems {
				spec, err := parseItemSpec(raw)
				if err != nil {
					return err
				}
				specs = append(specs, spec)
			}

			items, err := c.api.ListItems(ctx, "")
			if err != nil {
				return err
			}
			session, err := fillSession(billing.NewSession(items), specs)
			if err != nil {
				return err
			}
			if customerID != "" {
				cust, err := c.api.GetCustomer(ctx, customerID)
				if err != nil {
					return err
				}
				session, _ = session.Apply(billing.SelectCustomer{Customer: cust})
			}
			session, _ = session.Apply(billing.SetMarkup{Percent: markup})
			session, _ = session.Apply(billing.SetDiscount{Percent: discount})
			if session, err = session.Apply(billing.SetPayment{Method: model.PaymentMethod(strings.ToLower(method)), AmountPaid: amount}); err != nil {
				return err
			}

			c.printDraft(session)
			if dryRun {
				return nil
			}

			register := &billing.Register{Store: c.api}
			_, result, err := register.Checkout(ctx, session)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "saved %s (%s) total %.2f\n", result.Bill.Number, result.Bill.Status, result.Bill.GrandTotal)
			if receiptPath == "" {
				return nil
			}
			return c.writeReceipt(cmd, result.Bill.ID, receiptPath)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&customerID, "customer", "c", "", "customer id")
	f.StringArrayVarP(&rawItems, "item", "i", nil, "line as ID[:qty[:price]], repeatable")
	f.Float64Var(&markup, "markup", 0, "markup percent")
	f.Float64Var(&discount, "discount", 0, "discount percent")
	f.StringVar(&method, "pay", string(model.PaymentCash), "payment type: cash or credit")
	f.StringVar(&amount, "amount", "", "amount paid now, credit only; cash bills are always paid in full")
	f.BoolVar(&dryRun, "dry-run", false, "print totals without saving")
	f.StringVar(&receiptPath, "receipt", "", "write the HTML receipt to this file")
	return cmd
}

func (c *cli) printDraft(s billing.Session) {
	tw := c.table("ITEM", "QTY", "PRICE", "TOTAL")
	for _, line := range s.Cart().Lines() {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", line.DisplayName(), line.Quantity, line.Price().StringFixed(2), line.Total().StringFixed(2))
	}
	_ = tw.Flush()

	t := s.Totals().Format()
	fmt.Fprintf(c.out, "\nsubtotal     %s\n", t.Subtotal)
	fmt.Fprintf(c.out, "markup %s%%   +%s\n", t.MarkupPercent, t.Markup)
	fmt.Fprintf(c.out, "discount %s%% -%s\n", t.DiscountPercent, t.Discount)
	fmt.Fprintf(c.out, "grand total  %s\n", t.GrandTotal)
	fmt.Fprintf(c.out, "paid         %s\n", t.Paid)
	fmt.Fprintf(c.out, "remaining    %s\n", t.Remaining)
	if cust, ok := s.Customer(); ok {
		fmt.Fprintf(c.out, "%s balance %.2f -> %s\n", cust.Name, cust.Balance, t.NewBalance)
	}
}

func (c *cli) writeReceipt(cmd *cobra.Command, billID, path string) error {
	w, err := c.create(path)
	if err != nil {
		return err
	}
	if err := c.api.Receipt(cmd.Context(), billID, w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (c *cli) billsCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "bills [keywords]",
		Short: "Bill history, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			bills, err := c.api.ListBills(cmd.Context(), model.BillStatus(status), strings.Join(args, " "))
			if err != nil {
				return err
			}
			tw := c.table("ID", "NUMBER", "DATE", "CUSTOMER", "TOTAL", "PAID", "STATUS")
			for _, b := range bills {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%s\n",
					b.ID, b.Number, b.CreatedAt.Local().Format(dateLayout), b.CustomerName, b.GrandTotal, b.PartialPayment, b.Status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "completed or pending")

	var out string
	receipt := &cobra.Command{
		Use:   "receipt BILL_ID",
		Short: "Download the printable receipt of a bill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.writeReceipt(cmd, args[0], out)
		},
	}
	receipt.Flags().StringVarP(&out, "out", "o", "-", "output file")
	cmd.AddCommand(receipt)
	return cmd
}

func (c *cli) payCmd() *cobra.Command {
	var p model.Payment
	var method string
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Record a payment against a customer account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p.PaymentMethod = model.PaymentMethod(strings.ToLower(method))
			res, err := c.api.RecordPayment(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s balance now %.2f\n", res.Customer.Name, res.Customer.Balance)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&p.CustomerID, "customer", "c", "", "customer id")
	f.Float64Var(&p.Amount, "amount", 0, "amount received")
	f.StringVar(&method, "method", string(model.PaymentCash), "cash or credit")
	f.StringVar(&p.Description, "note", "", "description stored on the transaction")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (c *cli) transactionsCmd() *cobra.Command {
	var customerID string
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Ledger of one customer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs, err := c.api.ListTransactions(cmd.Context(), customerID)
			if err != nil {
				return err
			}
			tw := c.table("DATE", "TYPE", "AMOUNT", "BALANCE", "DESCRIPTION")
			for _, tx := range txs {
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%s\n",
					tx.CreatedAt.Local().Format(dateLayout), tx.Type, tx.Amount, tx.BalanceAfter, tx.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&customerID, "customer", "c", "", "customer id")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

type reportFlags struct {
	period string
	start  string
	end    string
}

func (r *reportFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.period, "period", string(model.PeriodDaily), "daily, weekly, monthly or custom")
	cmd.Flags().StringVar(&r.start, "start", "", "custom range start, YYYY-MM-DD")
	cmd.Flags().StringVar(&r.end, "end", "", "custom range end, YYYY-MM-DD")
}

func (c *cli) reportCmd() *cobra.Command {
	var rf reportFlags
	var summary bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Sales and profit per period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period := model.ReportPeriod(rf.period)
			if summary {
				s, err := c.api.SalesSummary(cmd.Context(), period, rf.start, rf.end)
				if err != nil {
					return err
				}
				tw := c.table("SALES", "PROFIT", "BILLS", "AVG BILL", "MARGIN %", "CASH", "CREDIT")
				fmt.Fprintf(tw, "%.2f\t%.2f\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n",
					s.TotalSales, s.TotalProfit, s.BillCount, s.AvgBill, s.ProfitMargin, s.CashSales, s.CreditSales)
				return tw.Flush()
			}
			rows, err := c.api.SalesReport(cmd.Context(), period, rf.start, rf.end)
			if err != nil {
				return err
			}
			tw := c.table("PERIOD", "BILLS", "SALES", "PROFIT", "CASH", "CREDIT")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n",
					r.Period, r.BillCount, r.TotalSales, r.TotalProfit, r.CashSales, r.CreditSales)
			}
			return tw.Flush()
		},
	}
	rf.bind(cmd)
	cmd.Flags().BoolVar(&summary, "summary", false, "print totals for the whole window")
	return cmd
}

var errUnknownExport = errors.New("export must be one of bills, customers, transactions, sales")

func (c *cli) exportCmd() *cobra.Command {
	var (
		rf         reportFlags
		out        string
		format     string
		status     string
		customerID string
	)
	cmd := &cobra.Command{
		Use:       "export {bills|customers|transactions|sales}",
		Short:     "Download a CSV or XLSX export",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bills", "customers", "transactions", "sales"},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			w, err := c.create(out)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := w.Close(); err == nil {
					err = cerr
				}
			}()

			q := url.Values{}
			switch kind := args[0]; kind {
			case "sales":
				return c.api.ExportSales(cmd.Context(), model.ReportPeriod(rf.period), rf.start, rf.end, format, w)
			case string(client.ExportBills):
				if status != "" {
					q.Set("status", status)
				}
			case string(client.ExportTransactions):
				q.Set("customerId", customerID)
			case string(client.ExportCustomers):
			default:
				return errUnknownExport
			}
			return c.api.ExportCSV(cmd.Context(), client.Export(args[0]), q, w)
		},
	}
	rf.bind(cmd)
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "-", "output file")
	f.StringVar(&format, "format", "csv", "sales export format: csv or xlsx")
	f.StringVar(&status, "status", "", "bills only: completed or pending")
	f.StringVarP(&customerID, "customer", "c", "", "transactions only: customer id")
	return cmd
}
