package cart

import "errors"

// ErrInvalidInput indicates the request body was not a sequence of items.
// Malformed individual items are never an error; they are dropped and
// counted instead.
var ErrInvalidInput = errors.New("cart: input is not a sequence of items")

// MergeResult is the outcome of combining a guest cart into a user cart.
type MergeResult struct {
	Items   []LineItem
	Dropped int
}

// Merge combines a client-held guest cart into the authoritative user
// cart. Guest items are normalized front to back; invalid ones are
// dropped and counted. An item matching an existing (productId, size,
// color) slot adds its quantity to that slot without touching the
// user-side fields, and unmatched items are appended.
// The result never contains two items with the same key.
func Merge(userItems []LineItem, guestItems []RawItem) MergeResult {
	result := make([]LineItem, len(userItems))
	copy(result, userItems)

	index := make(map[ItemKey]int, len(result))
	for i, it := range result {
		index[it.Key()] = i
	}

	dropped := 0
	for _, raw := range guestItems {
		item, err := Normalize(raw)
		if err != nil {
			dropped++
			continue
		}
		if i, ok := index[item.Key()]; ok {
			result[i].Qty += item.Qty
			continue
		}
		index[item.Key()] = len(result)
		result = append(result, item)
	}
	return MergeResult{Items: result, Dropped: dropped}
}
