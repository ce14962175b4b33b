package cart

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/comicink/backend-tees/internal/money"
)

// Defaults applied while normalizing incomplete items. Missing size and
// color deliberately collapse to the most common variant rather than
// rejecting the item; callers that need strict variant integrity should
// check RawItem.HasVariant before normalizing.
const (
	DefaultName      = "Unknown Product"
	DefaultSize      = "M"
	DefaultColor     = "Black"
	PlaceholderImage = "https://res.cloudinary.com/comicink/image/upload/v1/products/tee-placeholder.png"
)

// ErrInvalidProductID is returned when an item does not carry a
// catalog-shaped (24 hex character) product identifier.
var ErrInvalidProductID = errors.New("cart: product id is not catalog shaped")

// LooseNumber tolerates the value shapes untrusted clients send for
// numeric fields: JSON numbers, numeric strings, or nothing at all.
type LooseNumber struct {
	Value float64
	Valid bool
}

// UnmarshalJSON records whether a usable number was present. It never
// fails; an uncoercible value simply leaves the number invalid.
func (n *LooseNumber) UnmarshalJSON(data []byte) error {
	n.Valid = false
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		trimmed = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	n.Value = v
	n.Valid = true
	return nil
}

// RawItem is an untrusted line item as received from client storage or an
// upstream payload. It must pass through Normalize before it is allowed
// anywhere near pricing.
type RawItem struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name"`
	Price     LooseNumber `json:"price"`
	Image     string      `json:"image"`
	Size      string      `json:"size"`
	Color     string      `json:"color"`
	Quantity  LooseNumber `json:"quantity"`
}

// HasVariant reports whether both variant discriminators were supplied.
func (r RawItem) HasVariant() bool {
	return strings.TrimSpace(r.Size) != "" && strings.TrimSpace(r.Color) != ""
}

// ItemKey is the merge identity of a line item: the same product in the
// same size and color occupies the same slot.
type ItemKey struct {
	ProductID string
	Size      string
	Color     string
}

// LineItem is a trusted, normalized cart line item. Prices are carried in
// the currency's minor unit.
type LineItem struct {
	ProductID string       `bson:"productId" json:"productId"`
	Name      string       `bson:"name" json:"name"`
	UnitPrice money.Amount `bson:"unitPrice" json:"unitPrice"`
	Image     string       `bson:"image" json:"image"`
	Size      string       `bson:"size" json:"size"`
	Color     string       `bson:"color" json:"color"`
	Qty       int          `bson:"qty" json:"quantity"`
}

// Key returns the merge identity of the item.
func (it LineItem) Key() ItemKey {
	return ItemKey{ProductID: it.ProductID, Size: it.Size, Color: it.Color}
}

// Subtotal returns the extended price of the line.
func (it LineItem) Subtotal() money.Amount {
	return money.Line(it.UnitPrice, it.Qty)
}

// Raw converts the item back into its untrusted representation. Feeding
// the result through Normalize yields the item unchanged.
func (it LineItem) Raw() RawItem {
	return RawItem{
		ProductID: it.ProductID,
		Name:      it.Name,
		Price:     LooseNumber{Value: float64(it.UnitPrice), Valid: true},
		Image:     it.Image,
		Size:      it.Size,
		Color:     it.Color,
		Quantity:  LooseNumber{Value: float64(it.Qty), Valid: true},
	}
}

// IsCatalogID reports whether value looks like a catalog product
// identifier (24 hex characters, either case).
func IsCatalogID(value string) bool {
	_, err := bson.ObjectIDFromHex(value)
	return err == nil
}

// Normalize validates and coerces an untrusted item into a LineItem.
// Items without a catalog-shaped product id are rejected; everything else
// is coerced leniently: an uncoercible price becomes 0, an uncoercible or
// sub-one quantity becomes 1, and missing display fields receive defaults.
// Normalizing an already normalized item is a no-op.
func Normalize(raw RawItem) (LineItem, error) {
	pid := strings.TrimSpace(raw.ProductID)
	if !IsCatalogID(pid) {
		return LineItem{}, ErrInvalidProductID
	}

	price := money.Amount(0)
	if raw.Price.Valid {
		price = money.Clamp(money.Amount(math.Round(raw.Price.Value)))
	}
	qty := 1
	if raw.Quantity.Valid {
		if q := int(math.Round(raw.Quantity.Value)); q >= 1 {
			qty = q
		}
	}

	item := LineItem{
		ProductID: pid,
		Name:      strings.TrimSpace(raw.Name),
		UnitPrice: price,
		Image:     strings.TrimSpace(raw.Image),
		Size:      strings.TrimSpace(raw.Size),
		Color:     strings.TrimSpace(raw.Color),
		Qty:       qty,
	}
	if item.Name == "" {
		item.Name = DefaultName
	}
	if item.Image == "" {
		item.Image = PlaceholderImage
	}
	if item.Size == "" {
		item.Size = DefaultSize
	}
	if item.Color == "" {
		item.Color = DefaultColor
	}
	return item, nil
}
