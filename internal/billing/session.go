package billing

import "github.com/noah-isme/toko-billing/internal/model"

// Session is the immutable state of one billing screen. Every change goes
// through Apply, which returns a new Session and leaves the receiver as is.
type Session struct {
	catalog    map[string]model.Item
	order      []string
	cart       Cart
	customer   *model.Customer
	markup     float64
	discount   float64
	method     model.PaymentMethod
	amountPaid string
}

// NewSession starts an empty cash sale over a catalog snapshot.
func NewSession(items []model.Item) Session {
	s := Session{method: model.PaymentCash}
	s.catalog, s.order = indexCatalog(items)
	return s
}

func indexCatalog(items []model.Item) (map[string]model.Item, []string) {
	catalog := make(map[string]model.Item, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		if _, seen := catalog[item.ID]; !seen {
			order = append(order, item.ID)
		}
		catalog[item.ID] = item
	}
	return catalog, order
}

func (s Session) Cart() Cart                         { return s.cart }
func (s Session) Markup() float64                    { return s.markup }
func (s Session) Discount() float64                  { return s.discount }
func (s Session) PaymentMethod() model.PaymentMethod { return s.method }
func (s Session) AmountPaid() string                 { return s.amountPaid }

// Customer returns a copy of the selected customer.
func (s Session) Customer() (model.Customer, bool) {
	if s.customer == nil {
		return model.Customer{}, false
	}
	return *s.customer, true
}

// Item looks up an item in the catalog snapshot.
func (s Session) Item(id string) (model.Item, bool) {
	item, ok := s.catalog[id]
	return item, ok
}

// Catalog returns the snapshot in its original order.
func (s Session) Catalog() []model.Item {
	out := make([]model.Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.catalog[id])
	}
	return out
}

// Totals recomputes the totals from the current state.
func (s Session) Totals() Totals {
	return Compute(s.Request().totalsInput())
}

// Request assembles the checkout request for the current state.
func (s Session) Request() CheckoutRequest {
	return CheckoutRequest{
		Cart:          s.cart,
		Customer:      s.customer,
		Markup:        s.markup,
		Discount:      s.discount,
		PaymentMethod: s.method,
		AmountPaid:    s.amountPaid,
	}
}

// Apply reduces one intent. On error the receiver is returned unchanged.
func (s Session) Apply(in Intent) (Session, error) {
	next, err := in.apply(s)
	if err != nil {
		return s, err
	}
	return next, nil
}

// Intent is a user action on the billing screen.
type Intent interface {
	apply(Session) (Session, error)
}

// AddItem adds one unit of a catalog item.
type AddItem struct{ ItemID string }

func (i AddItem) apply(s Session) (Session, error) {
	item, ok := s.catalog[i.ItemID]
	if !ok {
		return s, ErrItemNotFound
	}
	cart, err := AddLine(s.cart, item, item.Stock)
	if err != nil {
		return s, err
	}
	s.cart = cart
	return s, nil
}

// ChangeQuantity sets the quantity of a line.
type ChangeQuantity struct {
	Index    int
	Quantity int
}

func (i ChangeQuantity) apply(s Session) (Session, error) {
	line, ok := s.cart.Line(i.Index)
	if !ok {
		return s, ErrLineNotFound
	}
	stock := 0
	if item, ok := s.catalog[line.ItemID]; ok {
		stock = item.Stock
	}
	cart, err := SetQuantity(s.cart, i.Index, i.Quantity, stock)
	if err != nil {
		return s, err
	}
	s.cart = cart
	return s, nil
}

// ChangePrice sets a line's custom price from user text.
type ChangePrice struct {
	Index int
	Price string
}

func (i ChangePrice) apply(s Session) (Session, error) {
	cart, err := SetCustomPrice(s.cart, i.Index, i.Price)
	if err != nil {
		return s, err
	}
	s.cart = cart
	return s, nil
}

// DropLine removes a line.
type DropLine struct{ Index int }

func (i DropLine) apply(s Session) (Session, error) {
	cart, err := RemoveLine(s.cart, i.Index)
	if err != nil {
		return s, err
	}
	s.cart = cart
	return s, nil
}

// SetMarkup stores the raw markup percentage; clamping happens in Compute.
type SetMarkup struct{ Percent float64 }

func (i SetMarkup) apply(s Session) (Session, error) {
	s.markup = i.Percent
	return s, nil
}

// SetDiscount stores the raw discount percentage; clamping happens in Compute.
type SetDiscount struct{ Percent float64 }

func (i SetDiscount) apply(s Session) (Session, error) {
	s.discount = i.Percent
	return s, nil
}

// SetPayment selects the payment method and the typed amount paid.
type SetPayment struct {
	Method     model.PaymentMethod
	AmountPaid string
}

func (i SetPayment) apply(s Session) (Session, error) {
	if !i.Method.Valid() {
		return s, ErrInvalidPaymentMethod
	}
	s.method = i.Method
	s.amountPaid = i.AmountPaid
	return s, nil
}

// SelectCustomer attaches a customer.
type SelectCustomer struct{ Customer model.Customer }

func (i SelectCustomer) apply(s Session) (Session, error) {
	c := i.Customer
	s.customer = &c
	return s, nil
}

// ClearCustomer detaches the customer.
type ClearCustomer struct{}

func (ClearCustomer) apply(s Session) (Session, error) {
	s.customer = nil
	return s, nil
}

// RefreshCatalog swaps the catalog snapshot used for stock bounds.
type RefreshCatalog struct{ Items []model.Item }

func (i RefreshCatalog) apply(s Session) (Session, error) {
	s.catalog, s.order = indexCatalog(i.Items)
	return s, nil
}

// Reset clears the sale after a successful checkout, keeping the catalog.
type Reset struct{}

func (Reset) apply(s Session) (Session, error) {
	return Session{catalog: s.catalog, order: s.order, method: model.PaymentCash}, nil
}
