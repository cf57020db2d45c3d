// Package cart implements the shopper's cart: a pure reducer over CartState
// and a Store that applies actions and writes every resulting state back to
// persistent storage.
package cart

import (
	"math"

	"github.com/capitalize-ai/storefront-core/internal/model"
)

// ActionType names a cart transition.
type ActionType string

const (
	ActionAdd      ActionType = "ADD_TO_CART"
	ActionRemove   ActionType = "REMOVE_FROM_CART"
	ActionIncrease ActionType = "INCREASE_QUANTITY"
	ActionDecrease ActionType = "DECREASE_QUANTITY"
	ActionClear    ActionType = "CLEAR_CART"
)

// Action is a reducer input. Item is used by ActionAdd, ID by the
// per-item actions.
type Action struct {
	Type ActionType
	Item model.CartItem
	ID   string
}

// Add returns an ADD_TO_CART action. The item's price must already be a
// normalized number; see catalog.ParsePrice.
func Add(item model.CartItem) Action { return Action{Type: ActionAdd, Item: item} }

// Remove returns a REMOVE_FROM_CART action.
func Remove(id string) Action { return Action{Type: ActionRemove, ID: id} }

// Increase returns an INCREASE_QUANTITY action.
func Increase(id string) Action { return Action{Type: ActionIncrease, ID: id} }

// Decrease returns a DECREASE_QUANTITY action.
func Decrease(id string) Action { return Action{Type: ActionDecrease, ID: id} }

// Clear returns a CLEAR_CART action.
func Clear() Action { return Action{Type: ActionClear} }

// Reduce applies a to state and returns the new state. The input state is
// never modified. Quantities stay within 1..model.MaxQuantity.
func Reduce(state model.CartState, a Action) model.CartState {
	items := state.CartItems

	switch a.Type {
	case ActionAdd:
		if a.Item.ID == "" {
			return state
		}
		if i := state.Find(a.Item.ID); i >= 0 {
			if items[i].Quantity >= model.MaxQuantity {
				return state
			}
			next := clone(items)
			next[i].Quantity++
			return model.CartState{CartItems: next}
		}
		item := a.Item
		item.Quantity = clampQuantity(item.Quantity)
		if item.Price < 0 || math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
			item.Price = 0
		}
		if item.Image == "" {
			item.Image = model.DefaultImage
		}
		next := make([]model.CartItem, 0, len(items)+1)
		next = append(next, items...)
		return model.CartState{CartItems: append(next, item)}

	case ActionRemove:
		if state.Find(a.ID) < 0 {
			return state
		}
		next := make([]model.CartItem, 0, len(items))
		for _, it := range items {
			if it.ID != a.ID {
				next = append(next, it)
			}
		}
		return model.CartState{CartItems: next}

	case ActionIncrease:
		i := state.Find(a.ID)
		if i < 0 || items[i].Quantity >= model.MaxQuantity {
			return state
		}
		next := clone(items)
		next[i].Quantity++
		return model.CartState{CartItems: next}

	case ActionDecrease:
		i := state.Find(a.ID)
		if i < 0 || items[i].Quantity <= 1 {
			return state
		}
		next := clone(items)
		next[i].Quantity--
		return model.CartState{CartItems: next}

	case ActionClear:
		return model.CartState{CartItems: []model.CartItem{}}

	default:
		return state
	}
}

func clone(items []model.CartItem) []model.CartItem {
	out := make([]model.CartItem, len(items))
	copy(out, items)
	return out
}

func clampQuantity(q int) int {
	switch {
	case q < 1:
		return 1
	case q > model.MaxQuantity:
		return model.MaxQuantity
	default:
		return q
	}
}
