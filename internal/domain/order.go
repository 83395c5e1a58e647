package domain

// Address is owned by the address service; the core only selects one and
// shows its display fields on the checkout summary.
type Address struct {
	ID          int64  `json:"id"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Province    string `json:"province"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	AddressLine string `json:"address_line"`
	IsDefault   bool   `json:"is_default"`
}

// Order is immutable client-side once created.
type Order struct {
	ID             int64          `json:"id"`
	AddressID      int64          `json:"address_id"`
	ShippingMethod ShippingMethod `json:"shipping_method"`
	TotalAmount    int64          `json:"total_amount,omitempty"`
}

// PaymentToken is short-lived and single-use, issued per order.
type PaymentToken struct {
	Token      string `json:"token"`
	PaymentURL string `json:"payment_url"`
}

// CallbackResult is the gateway callback resolved server-side. OrderID zero
// means the payment did not go through.
type CallbackResult struct {
	OrderID int64 `json:"order_id"`
}
