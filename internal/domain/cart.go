package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NoSelection is the sentinel used in a line identity key when a size or color
// has not been chosen. A fixed sentinel keeps "no size" and "no color"
// comparable values instead of empty strings.
const NoSelection = "default"

// autoCloseDelay is how long the cart drawer stays open after an item is
// added before the UI may auto-dismiss it. The timestamp is advisory: the UI
// polls it opportunistically, nothing is scheduled against it.
const autoCloseDelay = 5 * time.Second

// LineItemID builds the composite identity key for a cart line from the
// product ID and the selected size and color. Two additions with the same key
// merge into one line; a difference in either dimension yields separate lines.
//
// Values are whitespace-trimmed but case-preserving: "Red" and "red" are
// distinct selections. Empty selections map to the NoSelection sentinel.
func LineItemID(productID, size, color string) string {
	s := strings.TrimSpace(size)
	if s == "" {
		s = NoSelection
	}
	c := strings.TrimSpace(color)
	if c == "" {
		c = NoSelection
	}
	return productID + "::" + s + "::" + c
}

// ProductSnapshot is an immutable copy of the product fields captured when an
// item is added to the cart. The price is snapshotted, not re-fetched: a later
// catalog price change never silently alters an existing line.
type ProductSnapshot struct {
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Brand         string          `json:"brand,omitempty"`
	Category      string          `json:"category,omitempty"`
	Rating        float64         `json:"rating,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	OnSale        bool            `json:"on_sale"`
	Featured      bool            `json:"featured"`
}

// LineItem represents one distinct (product, size, color) selection in the cart.
type LineItem struct {
	ID            string          `json:"id"`
	Product       ProductSnapshot `json:"product"`
	Quantity      int             `json:"quantity"`
	SelectedSize  string          `json:"selected_size,omitempty"`
	SelectedColor string          `json:"selected_color,omitempty"`
	SelectedImage string          `json:"selected_image,omitempty"`
	AddedAt       time.Time       `json:"added_at"`
	Replaced      bool            `json:"replaced"`
}

// Cart is the shopping cart aggregate. TotalItems and TotalPrice are derived
// from Items and recomputed after every transition.
type Cart struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Items       []LineItem      `json:"items"`
	TotalItems  int             `json:"total_items"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Coupon      CouponState     `json:"coupon"`
	IsOpen      bool            `json:"is_open"`
	AutoCloseAt time.Time       `json:"auto_close_at"`
	Currency    string          `json:"currency"`
	Version     int             `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FindItemIndex returns the index of the line with the given identity key, or
// -1 if no such line exists.
func (c *Cart) FindItemIndex(itemID string) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// AddItem merges the selection into an existing line with the same identity
// key, or appends a new line with a fresh product snapshot. On merge the
// existing snapshot and image are preserved, not refreshed. The auto-close
// timestamp is reset on every add. Quantities below 1 are ignored.
func (c *Cart) AddItem(product ProductSnapshot, quantity int, size, color, image string) {
	if quantity < 1 {
		return
	}

	now := time.Now().UTC()
	id := LineItemID(product.ProductID, size, color)

	if i := c.FindItemIndex(id); i >= 0 {
		c.Items[i].Quantity += quantity
	} else {
		c.Items = append(c.Items, LineItem{
			ID:            id,
			Product:       product,
			Quantity:      quantity,
			SelectedSize:  strings.TrimSpace(size),
			SelectedColor: strings.TrimSpace(color),
			SelectedImage: image,
			AddedAt:       now,
		})
	}

	c.AutoCloseAt = now.Add(autoCloseDelay)
	c.RecomputeTotals()
}

// UpdateQuantity sets the quantity of the line with the given identity key.
// A quantity of zero or less removes the line. Unknown keys are a no-op.
func (c *Cart) UpdateQuantity(itemID string, quantity int) {
	i := c.FindItemIndex(itemID)
	if i < 0 {
		return
	}

	if quantity <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		c.Items[i].Quantity = quantity
	}

	c.RecomputeTotals()
}

// RemoveItem removes the line with the given identity key. Unknown keys are a
// no-op.
func (c *Cart) RemoveItem(itemID string) {
	i := c.FindItemIndex(itemID)
	if i < 0 {
		return
	}

	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.RecomputeTotals()
}

// UpdateItemDetails overwrites the size, color, and image of the line with the
// given identity key and marks it as replaced. The identity key itself is
// deliberately left unchanged so references held by the UI stay valid; the
// Replaced flag is an audit marker only and plays no part in totals. Unknown
// keys are a no-op.
func (c *Cart) UpdateItemDetails(itemID, size, color, image string) {
	i := c.FindItemIndex(itemID)
	if i < 0 {
		return
	}

	c.Items[i].SelectedSize = strings.TrimSpace(size)
	c.Items[i].SelectedColor = strings.TrimSpace(color)
	c.Items[i].SelectedImage = image
	c.Items[i].Replaced = true
}

// Clear empties the cart: no items, zero totals, no auto-close timestamp, and
// the coupon reset. This is the only transition that empties the cart after a
// confirmed order.
func (c *Cart) Clear() {
	c.Items = []LineItem{}
	c.AutoCloseAt = time.Time{}
	c.Coupon.Remove()
	c.RecomputeTotals()
}

// Open marks the cart drawer as visible.
func (c *Cart) Open() {
	c.IsOpen = true
}

// Close hides the cart drawer and clears the auto-close timestamp.
func (c *Cart) Close() {
	c.IsOpen = false
	c.AutoCloseAt = time.Time{}
}

// RecomputeTotals rederives TotalItems and TotalPrice from the lines. It is
// called after every transition and on rehydration from storage, so persisted
// totals are never trusted over the items themselves.
func (c *Cart) RecomputeTotals() {
	items := 0
	price := decimal.Zero
	for i := range c.Items {
		items += c.Items[i].Quantity
		price = price.Add(c.Items[i].Product.Price.Mul(decimal.NewFromInt(int64(c.Items[i].Quantity))))
	}
	c.TotalItems = items
	c.TotalPrice = price
}

// IsEmpty reports whether the cart holds no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// UnresolvedSelections returns the identity keys of lines whose size or color
// is still unchosen. Such lines must be resolved before checkout.
func (c *Cart) UnresolvedSelections() []string {
	var ids []string
	for i := range c.Items {
		if c.Items[i].SelectedSize == "" || c.Items[i].SelectedColor == "" {
			ids = append(ids, c.Items[i].ID)
		}
	}
	return ids
}

// ProductIDs returns the distinct product IDs currently in the cart, in
// insertion order.
func (c *Cart) ProductIDs() []string {
	seen := make(map[string]struct{}, len(c.Items))
	var ids []string
	for i := range c.Items {
		pid := c.Items[i].Product.ProductID
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		ids = append(ids, pid)
	}
	return ids
}

// CategoryIDs returns the distinct category identifiers of the products in the
// cart, in insertion order.
func (c *Cart) CategoryIDs() []string {
	seen := make(map[string]struct{}, len(c.Items))
	var ids []string
	for i := range c.Items {
		cat := c.Items[i].Product.Category
		if cat == "" {
			continue
		}
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		ids = append(ids, cat)
	}
	return ids
}
