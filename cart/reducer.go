// Package cart mirrors a shopper's platform basket as observable state.
// The platform copy is authoritative: every mutation is followed by a full re-read.
package cart

import "github.com/krisalay/storefront-cache/platform"

// State is what the storefront renders for a cart.
type State struct {
	Items  []platform.BasketItem `json:"items"`
	IsOpen bool                  `json:"isOpen"`
}

type ActionType string

const (
	ToggleCart ActionType = "TOGGLE_CART"
	OpenCart   ActionType = "OPEN_CART"
	CloseCart  ActionType = "CLOSE_CART"
	SetItems   ActionType = "SET_ITEMS"
)

// Action is a state transition. Items is only read by SetItems.
type Action struct {
	Type  ActionType
	Items []platform.BasketItem
}

func SetItemsAction(items []platform.BasketItem) Action {
	return Action{Type: SetItems, Items: items}
}

// Reduce applies a to s and returns the new state. It never mutates s.
// SetItems replaces the item list wholesale; unknown actions leave s unchanged.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ToggleCart:
		s.IsOpen = !s.IsOpen
	case OpenCart:
		s.IsOpen = true
	case CloseCart:
		s.IsOpen = false
	case SetItems:
		s.Items = copyItems(a.Items)
	}
	return s
}

func copyItems(items []platform.BasketItem) []platform.BasketItem {
	out := make([]platform.BasketItem, len(items))
	copy(out, items)
	return out
}
