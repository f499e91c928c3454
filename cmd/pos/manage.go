package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/noah-isme/toko-billing/internal/model"
	"github.com/noah-isme/toko-billing/internal/validation"
)

// itemFields binds the editable item flags. On edit only the flags that were
// set overwrite the stored item.
type itemFields struct{ v model.Item }

func (f *itemFields) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.v.Name, "name", "", "item name")
	fs.StringVar(&f.v.Type, "type", "", "item type, e.g. Hand Tool")
	fs.StringVar(&f.v.Size, "size", "", "size or pack")
	fs.StringVar(&f.v.Barcode, "barcode", "", "barcode, alphanumeric")
	fs.Float64Var(&f.v.CostPrice, "cost", 0, "cost price")
	fs.Float64Var(&f.v.SellingPrice, "price", 0, "selling price")
	fs.Float64Var(&f.v.TaxRate, "tax", 0, "tax rate percent")
	fs.IntVar(&f.v.Stock, "stock", 0, "units in stock")
}

func (f *itemFields) apply(fs *pflag.FlagSet, it *model.Item) {
	set := map[string]func(){
		"name":    func() { it.Name = f.v.Name },
		"type":    func() { it.Type = f.v.Type },
		"size":    func() { it.Size = f.v.Size },
		"barcode": func() { it.Barcode = f.v.Barcode },
		"cost":    func() { it.CostPrice = f.v.CostPrice },
		"price":   func() { it.SellingPrice = f.v.SellingPrice },
		"tax":     func() { it.TaxRate = f.v.TaxRate },
		"stock":   func() { it.Stock = f.v.Stock },
	}
	fs.Visit(func(fl *pflag.Flag) {
		if fn, ok := set[fl.Name]; ok {
			fn()
		}
	})
}

type customerFields struct{ v model.Customer }

func (f *customerFields) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.v.Name, "name", "", "customer name")
	fs.StringVar(&f.v.Phone, "phone", "", "10 digit phone number")
	fs.StringVar(&f.v.Address, "address", "", "address")
	fs.StringVar(&f.v.AccountNumber, "account", "", "account number")
}

func (f *customerFields) apply(fs *pflag.FlagSet, cu *model.Customer) {
	set := map[string]func(){
		"name":    func() { cu.Name = f.v.Name },
		"phone":   func() { cu.Phone = f.v.Phone },
		"address": func() { cu.Address = f.v.Address },
		"account": func() { cu.AccountNumber = f.v.AccountNumber },
	}
	fs.Visit(func(fl *pflag.Flag) {
		if fn, ok := set[fl.Name]; ok {
			fn()
		}
	})
}

func (c *cli) itemAddCmd() *cobra.Command {
	var f itemFields
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a catalog item",
		Example: `  pos items add --name "Claw Hammer" --type "Hand Tool" --size 16oz --cost 420 --price 550 --stock 25`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validation.Item(f.v); err != nil {
				return err
			}
			it, err := c.api.CreateItem(cmd.Context(), f.v)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "added %s %s\n", it.ID, it.Name)
			return nil
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func (c *cli) itemEditCmd() *cobra.Command {
	var f itemFields
	cmd := &cobra.Command{
		Use:   "edit ITEM_ID",
		Short: "Change fields of a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := c.api.GetItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			f.apply(cmd.Flags(), &it)
			if err := validation.Item(it); err != nil {
				return err
			}
			if it, err = c.api.UpdateItem(cmd.Context(), it); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "updated %s %s\n", it.ID, it.Name)
			return nil
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func (c *cli) itemRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm ITEM_ID",
		Short: "Delete a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.api.DeleteItem(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "deleted %s\n", args[0])
			return nil
		},
	}
}

func (c *cli) customerAddCmd() *cobra.Command {
	var f customerFields
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Open a customer account",
		Example: `  pos customers add --name "Asha Contractors" --phone 0311123456 --account ACC-1002`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validation.Customer(f.v); err != nil {
				return err
			}
			cu, err := c.api.CreateCustomer(cmd.Context(), f.v)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "added %s %s\n", cu.ID, cu.Name)
			return nil
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func (c *cli) customerEditCmd() *cobra.Command {
	var f customerFields
	cmd := &cobra.Command{
		Use:   "edit CUSTOMER_ID",
		Short: "Change contact details of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cu, err := c.api.GetCustomer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			f.apply(cmd.Flags(), &cu)
			if err := validation.Customer(cu); err != nil {
				return err
			}
			if cu, err = c.api.UpdateCustomer(cmd.Context(), cu); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "updated %s %s balance %.2f\n", cu.ID, cu.Name, cu.Balance)
			return nil
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func (c *cli) customerRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm CUSTOMER_ID",
		Short: "Delete a customer account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.api.DeleteCustomer(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "deleted %s\n", args[0])
			return nil
		},
	}
}
