package domain

type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

func (m ShippingMethod) Valid() bool {
	return m == ShippingStandard || m == ShippingExpress
}

// Cost returns the flat shipping fee in toman.
func (m ShippingMethod) Cost() int64 {
	if m == ShippingExpress {
		return 50000
	}
	return 30000
}

// ItemSource tags the two representations a cart line can have: guest lines
// live in client storage and key on the product, remote lines come from the
// cart API and carry a server-assigned line-item id.
type ItemSource string

const (
	ItemSourceGuest  ItemSource = "guest"
	ItemSourceRemote ItemSource = "remote"
)

type CartItem struct {
	Source      ItemSource
	LineItemID  int64 // server-assigned, remote only
	ProductID   int64
	ProductName string // remote only
	UnitPrice   *int64 // price snapshot in toman, remote only
	Quantity    int
}

func NewGuestItem(productID int64, quantity int) CartItem {
	return CartItem{
		Source:    ItemSourceGuest,
		ProductID: productID,
		Quantity:  quantity,
	}
}

func NewRemoteItem(lineItemID, productID int64, name string, unitPrice int64, quantity int) CartItem {
	return CartItem{
		Source:      ItemSourceRemote,
		LineItemID:  lineItemID,
		ProductID:   productID,
		ProductName: name,
		UnitPrice:   &unitPrice,
		Quantity:    quantity,
	}
}

// ID is the identifier mutations must use: the line-item id for remote items,
// the product id for guest items.
func (i CartItem) ID() int64 {
	if i.Source == ItemSourceRemote {
		return i.LineItemID
	}
	return i.ProductID
}

// Subtotal is zero for guest items; prices are never fabricated client-side.
func (i CartItem) Subtotal() int64 {
	if i.UnitPrice == nil {
		return 0
	}
	return *i.UnitPrice * int64(i.Quantity)
}

// GuestLine is the persisted shape of a guest cart entry.
type GuestLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Cart is a read-only snapshot handed to consumers. Totals are derived on
// every call, never stored.
type Cart struct {
	Items          []CartItem
	ShippingMethod ShippingMethod
}

func (c Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

func (c Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

func (c Cart) ShippingCost() int64 {
	return c.ShippingMethod.Cost()
}

func (c Cart) FinalTotal() int64 {
	return c.Subtotal() + c.ShippingCost()
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Find looks an item up by product identity, which works for both
// representations.
func (c Cart) Find(productID int64) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}
