package events

// Topics emitted by the billing service.
const (
	TopicBillCreated     = "bill.created"
	TopicPaymentRecorded = "payment.recorded"
	TopicCustomerCreated = "customer.created"
	TopicCustomerDeleted = "customer.deleted"
	TopicItemLowStock    = "item.low_stock"
)

// BillCreated is the payload of bill.created.
type BillCreated struct {
	BillID      string  `json:"billId"`
	BillNumber  string  `json:"billNumber"`
	CustomerID  string  `json:"customerId"`
	PaymentType string  `json:"paymentType"`
	Status      string  `json:"status"`
	GrandTotal  float64 `json:"grandTotal"`
	// ItemIDs lists the items whose stock changed.
	ItemIDs []string `json:"itemIds"`
}

// PaymentRecorded is the payload of payment.recorded.
type PaymentRecorded struct {
	TransactionID string  `json:"transactionId"`
	CustomerID    string  `json:"customerId"`
	Amount        float64 `json:"amount"`
	BalanceAfter  float64 `json:"balanceAfter"`
}

// CustomerChanged is the payload of customer.created and customer.deleted.
type CustomerChanged struct {
	CustomerID    string `json:"customerId"`
	AccountNumber string `json:"accountNumber"`
}

// ItemLowStock is the payload of item.low_stock.
type ItemLowStock struct {
	ItemID    string `json:"itemId"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}

func known(topic string) bool {
	switch topic {
	case TopicBillCreated, TopicPaymentRecorded, TopicCustomerCreated, TopicCustomerDeleted, TopicItemLowStock:
		return true
	}
	return false
}
