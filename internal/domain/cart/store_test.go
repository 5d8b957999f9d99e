package cart

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// sequentialIDs returns a generator producing line-1, line-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("line-%d", n)
	}
}

func newTestStore() *Store {
	return NewStore(WithIDGenerator(sequentialIDs()))
}

func assertDerived(t *testing.T, s *Store) {
	t.Helper()
	items := s.Items()
	assert.True(t, Total(items).Equal(s.Total()), "total %s, want %s", s.Total(), Total(items))
	assert.Equal(t, ItemCount(items), s.ItemCount())
}

func TestStore_AddSameProductMergesQuantity(t *testing.T) {
	s := newTestStore()

	s.AddItem(Candidate{ProductID: "p1", ProductName: "Kente Tee", Price: d("25"), Quantity: 2})
	s.AddItem(Candidate{ProductID: "p1", ProductName: "Kente Tee", Price: d("25"), Quantity: 1})

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "line-1", items[0].ID)
	assert.True(t, d("75").Equal(s.Total()))
	assert.Equal(t, 3, s.ItemCount())
}

func TestStore_AddSumsQuantities(t *testing.T) {
	quantities := []int{1, 4, 2, 7, 3}

	s := newTestStore()
	want := 0
	for _, q := range quantities {
		s.AddItem(Candidate{ProductID: "p1", Price: d("9.99"), Quantity: q})
		want += q
		assertDerived(t, s)
	}

	require.Equal(t, 1, s.Len())
	assert.Equal(t, want, s.Items()[0].Quantity)
}

func TestStore_AddDefaultsAndClamps(t *testing.T) {
	s := newTestStore()

	li := s.AddItem(Candidate{ProductID: "p1", Price: d("10")})
	assert.Equal(t, 1, li.Quantity, "unspecified quantity defaults to 1")

	li = s.AddItem(Candidate{ProductID: "p2", Price: d("10"), Quantity: -4})
	assert.Equal(t, 1, li.Quantity, "negative quantity is clamped to 1")

	li = s.AddItem(Candidate{ProductID: "p3", Price: d("-5"), Quantity: 1})
	assert.True(t, decimal.Zero.Equal(li.Price), "negative price is clamped to 0")

	assert.Equal(t, 3, s.ItemCount())
	assert.True(t, d("20").Equal(s.Total()))
}

func TestStore_InsertionOrder(t *testing.T) {
	s := newTestStore()
	s.AddItem(Candidate{ProductID: "b", Price: d("1")})
	s.AddItem(Candidate{ProductID: "a", Price: d("1")})
	s.AddItem(Candidate{ProductID: "c", Price: d("1")})
	s.AddItem(Candidate{ProductID: "a", Price: d("1")})

	var got []string
	for _, li := range s.Items() {
		got = append(got, li.ProductID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, got)
}

func TestStore_TwoProductsScenario(t *testing.T) {
	s := newTestStore()
	s.AddItem(Candidate{ProductID: "p1", Price: d("10"), Quantity: 1})
	p2 := s.AddItem(Candidate{ProductID: "p2", Price: d("20"), Quantity: 2})

	assert.Equal(t, 3, s.ItemCount())
	assert.True(t, d("50").Equal(s.Total()))

	assert.True(t, s.UpdateQuantity(p2.ID, 0))

	assert.Equal(t, 1, s.ItemCount())
	assert.True(t, d("10").Equal(s.Total()))
}

func TestStore_UpdateQuantity(t *testing.T) {
	tests := []struct {
		name      string
		quantity  int
		wantLines int
		wantCount int
		wantTotal string
	}{
		{name: "increase", quantity: 5, wantLines: 2, wantCount: 6, wantTotal: "110"},
		{name: "decrease", quantity: 1, wantLines: 2, wantCount: 2, wantTotal: "30"},
		{name: "zero removes", quantity: 0, wantLines: 1, wantCount: 1, wantTotal: "10"},
		{name: "negative removes", quantity: -1, wantLines: 1, wantCount: 1, wantTotal: "10"},
		{name: "large negative removes", quantity: -100, wantLines: 1, wantCount: 1, wantTotal: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			s.AddItem(Candidate{ProductID: "p1", Price: d("10"), Quantity: 1})
			li := s.AddItem(Candidate{ProductID: "p2", Price: d("20"), Quantity: 2})

			s.UpdateQuantity(li.ID, tt.quantity)

			assert.Equal(t, tt.wantLines, s.Len())
			assert.Equal(t, tt.wantCount, s.ItemCount())
			assert.True(t, d(tt.wantTotal).Equal(s.Total()), "total %s, want %s", s.Total(), tt.wantTotal)
			assertDerived(t, s)
		})
	}
}

func TestStore_UpdateNonPositiveEqualsRemove(t *testing.T) {
	for _, q := range []int{0, -1, -7} {
		t.Run(fmt.Sprint(q), func(t *testing.T) {
			updated := newTestStore()
			removed := newTestStore()
			for _, s := range []*Store{updated, removed} {
				s.AddItem(Candidate{ProductID: "p1", Price: d("3"), Quantity: 2})
				s.AddItem(Candidate{ProductID: "p2", Price: d("4"), Quantity: 1})
			}

			updated.UpdateQuantity("line-1", q)
			removed.RemoveItem("line-1")

			assert.Equal(t, removed.Items(), updated.Items())
			assert.True(t, removed.Total().Equal(updated.Total()))
			assert.Equal(t, removed.ItemCount(), updated.ItemCount())
		})
	}
}

func TestStore_UnknownLineIsNoop(t *testing.T) {
	s := newTestStore()
	s.AddItem(Candidate{ProductID: "p1", Price: d("10"), Quantity: 2})
	before := s.Items()

	assert.False(t, s.RemoveItem("missing"))
	assert.False(t, s.RemoveItem("missing"))
	assert.False(t, s.UpdateQuantity("missing", 4))
	assert.False(t, s.UpdateQuantity("missing", 0))

	assert.Equal(t, before, s.Items())
	assert.True(t, d("20").Equal(s.Total()))
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore()
	s.AddItem(Candidate{ProductID: "p1", Price: d("10"), Quantity: 2})
	s.AddItem(Candidate{ProductID: "p2", Price: d("5"), Quantity: 1})

	s.Clear()

	assert.Empty(t, s.Items())
	assert.True(t, decimal.Zero.Equal(s.Total()))
	assert.Equal(t, 0, s.ItemCount())

	// The cart is reusable after clearing.
	s.AddItem(Candidate{ProductID: "p1", Price: d("10")})
	assert.Equal(t, 1, s.ItemCount())
}

func TestStore_ItemsIsCopy(t *testing.T) {
	s := newTestStore()
	s.AddItem(Candidate{ProductID: "p1", Price: d("10"), Quantity: 1})

	items := s.Items()
	items[0].Quantity = 99

	assert.Equal(t, 1, s.ItemCount())
	li, ok := s.Item("line-1")
	require.True(t, ok)
	assert.Equal(t, 1, li.Quantity)
}

func TestRestore(t *testing.T) {
	s := Restore([]LineItem{
		{ID: "a", ProductID: "p1", Price: d("10"), Quantity: 1},
		{ID: "b", ProductID: "p2", Price: d("5"), Quantity: 0},
		{ID: "c", ProductID: "p1", Price: d("10"), Quantity: 2},
		{ProductID: "p3", Price: d("1"), Quantity: 4},
		{ID: "e", Price: d("1"), Quantity: 1},
	}, WithIDGenerator(sequentialIDs()))

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "line-1", items[1].ID)
	assert.Equal(t, 7, s.ItemCount())
	assert.True(t, d("34").Equal(s.Total()))
}

func TestStore_QuantityCapped(t *testing.T) {
	s := newTestStore()

	s.AddItem(Candidate{ProductID: "p1", Price: d("10"), Quantity: math.MaxInt})
	li := s.AddItem(Candidate{ProductID: "p1", Price: d("10"), Quantity: 1})
	assert.Equal(t, MaxLineQuantity, li.Quantity)
	assert.Equal(t, MaxLineQuantity, s.ItemCount())
	assert.True(t, d("99990").Equal(s.Total()))
	assertDerived(t, s)

	other := s.AddItem(Candidate{ProductID: "p2", Price: d("1"), Quantity: 2})
	assert.True(t, s.UpdateQuantity(other.ID, math.MaxInt))
	got, ok := s.Item(other.ID)
	require.True(t, ok)
	assert.Equal(t, MaxLineQuantity, got.Quantity)
	assertDerived(t, s)

	restored := Restore([]LineItem{
		{ID: "a", ProductID: "p1", Price: d("1"), Quantity: math.MaxInt},
		{ID: "b", ProductID: "p1", Price: d("1"), Quantity: math.MaxInt},
		{ID: "c", ProductID: "p2", Price: d("1"), Quantity: math.MaxInt},
	})
	for _, li := range restored.Items() {
		assert.Equal(t, MaxLineQuantity, li.Quantity)
	}
	assert.Equal(t, 2*MaxLineQuantity, restored.ItemCount())
}

func TestStore_ConcurrentAdds(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				s.AddItem(Candidate{ProductID: "p1", Price: d("1"), Quantity: 1})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1000, s.ItemCount())
	assert.True(t, d("1000").Equal(s.Total()))
}
