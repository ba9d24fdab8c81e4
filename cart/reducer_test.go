package cart

import (
	"testing"

	"github.com/krisalay/storefront-cache/platform"
	"github.com/stretchr/testify/assert"
)

func TestReduce(t *testing.T) {
	s := State{}

	s = Reduce(s, Action{Type: ToggleCart})
	assert.True(t, s.IsOpen)
	s = Reduce(s, Action{Type: ToggleCart})
	assert.False(t, s.IsOpen)
	s = Reduce(s, Action{Type: OpenCart})
	s = Reduce(s, Action{Type: OpenCart})
	assert.True(t, s.IsOpen)
	s = Reduce(s, Action{Type: CloseCart})
	assert.False(t, s.IsOpen)

	items := []platform.BasketItem{{ProductID: "p1", VariantID: "v1", Quantity: 1}}
	s = Reduce(s, SetItemsAction(items))
	items[0].Quantity = 99
	assert.Equal(t, 1, s.Items[0].Quantity, "items are copied")

	s = Reduce(s, SetItemsAction([]platform.BasketItem{{ProductID: "p2", VariantID: "v2", Quantity: 3}}))
	assert.Len(t, s.Items, 1, "replaced, not merged")
	assert.Equal(t, "p2", s.Items[0].ProductID)

	before := s
	s = Reduce(s, Action{Type: "UNKNOWN"})
	assert.Equal(t, before, s)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	in := State{Items: []platform.BasketItem{{ProductID: "p1", VariantID: "v1", Quantity: 1}}}
	out := Reduce(in, SetItemsAction(nil))
	assert.Len(t, in.Items, 1)
	assert.Empty(t, out.Items)
}
