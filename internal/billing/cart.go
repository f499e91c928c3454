package billing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-billing/internal/model"
)

// Cart is an ordered set of lines with at most one line per item. Operations
// return a new Cart and never modify their input.
type Cart struct {
	lines []LineItem
}

// NewCart builds a cart from lines, merging duplicates by item id.
func NewCart(lines ...LineItem) Cart {
	var c Cart
	for _, line := range lines {
		if idx := c.IndexOf(line.ItemID); idx >= 0 {
			c.lines[idx].Quantity += line.Quantity
			continue
		}
		c.lines = append(c.lines, line)
	}
	return c
}

// CartFromBill rebuilds a cart from persisted bill lines.
func CartFromBill(lines []model.BillLine) Cart {
	items := make([]LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, LineFromBill(l))
	}
	return NewCart(items...)
}

// Len returns the number of lines.
func (c Cart) Len() int { return len(c.lines) }

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool { return len(c.lines) == 0 }

// Lines returns a copy of the lines in order.
func (c Cart) Lines() []LineItem {
	out := make([]LineItem, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the line at index.
func (c Cart) Line(index int) (LineItem, bool) {
	if index < 0 || index >= len(c.lines) {
		return LineItem{}, false
	}
	return c.lines[index], true
}

// IndexOf returns the index of the line for itemID or -1.
func (c Cart) IndexOf(itemID string) int {
	for i, line := range c.lines {
		if line.ItemID == itemID {
			return i
		}
	}
	return -1
}

// Quantity returns how many units of itemID are in the cart.
func (c Cart) Quantity(itemID string) int {
	if idx := c.IndexOf(itemID); idx >= 0 {
		return c.lines[idx].Quantity
	}
	return 0
}

func (c Cart) clone() Cart {
	return Cart{lines: c.Lines()}
}

// AddLine adds one unit of item. An item already in the cart has its
// quantity incremented instead of getting a second row.
func AddLine(c Cart, item model.Item, currentStock int) (Cart, error) {
	if currentStock < 1 {
		return c, ErrOutOfStock
	}
	next := c.clone()
	if idx := next.IndexOf(item.ID); idx >= 0 {
		if next.lines[idx].Quantity+1 > currentStock {
			return c, ErrStockExceeded
		}
		next.lines[idx].Quantity++
		return next, nil
	}
	next.lines = append(next.lines, NewLine(item))
	return next, nil
}

// SetQuantity replaces the quantity of the line at index.
func SetQuantity(c Cart, index, qty, currentStock int) (Cart, error) {
	if _, ok := c.Line(index); !ok {
		return c, ErrLineNotFound
	}
	if qty < 1 {
		return c, ErrInvalidQuantity
	}
	if qty > currentStock {
		return c, ErrStockExceeded
	}
	next := c.clone()
	next.lines[index].Quantity = qty
	return next, nil
}

// SetCustomPrice sets the line price from user text. Text that is not a
// non-negative number reverts the price to the line's unit price.
func SetCustomPrice(c Cart, index int, raw string) (Cart, error) {
	line, ok := c.Line(index)
	if !ok {
		return c, ErrLineNotFound
	}
	price, ok := parsePrice(raw)
	if !ok {
		price = line.UnitPrice
	}
	return setPrice(c, index, price), nil
}

// SetCustomPriceValue is SetCustomPrice for an already parsed amount.
func SetCustomPriceValue(c Cart, index int, price decimal.Decimal) (Cart, error) {
	line, ok := c.Line(index)
	if !ok {
		return c, ErrLineNotFound
	}
	if price.IsNegative() {
		price = line.UnitPrice
	}
	return setPrice(c, index, price), nil
}

func setPrice(c Cart, index int, price decimal.Decimal) Cart {
	next := c.clone()
	next.lines[index].CustomPrice = price
	return next
}

// RemoveLine drops the line at index. Stock is untouched.
func RemoveLine(c Cart, index int) (Cart, error) {
	if _, ok := c.Line(index); !ok {
		return c, ErrLineNotFound
	}
	next := Cart{lines: make([]LineItem, 0, len(c.lines)-1)}
	next.lines = append(next.lines, c.lines[:index]...)
	next.lines = append(next.lines, c.lines[index+1:]...)
	return next, nil
}
