package cart

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"horeca/storefront/internal/catalog"
)

func product(id string, price int64) catalog.Product {
	return catalog.Product{ID: id, Name: id, Category: "chairs", Price: decimal.NewFromInt(price)}
}

func recomputed(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

func TestAddAccumulatesQuantity(t *testing.T) {
	s := NewStore()
	chair := product("chair", 8900)

	s.Add(chair, 1, Options{})
	s.Add(chair, 3, Options{})
	s.Add(chair, 2, Options{})

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 6, items[0].Quantity)
	assert.Equal(t, 6, s.Count())
}

func TestAddClampsQuantity(t *testing.T) {
	s := NewStore()
	s.Add(product("chair", 100), 0, Options{})
	s.Add(product("table", 100), -5, Options{})

	for _, it := range s.Items() {
		assert.Equal(t, 1, it.Quantity, it.Product.ID)
	}
}

func TestQuantityIsCappedPerLine(t *testing.T) {
	s := NewStore()
	chair := product("chair", 8900)

	s.Add(chair, math.MaxInt, Options{})
	s.Add(chair, 1, Options{})

	it, ok := s.Item("chair")
	require.True(t, ok)
	assert.Equal(t, MaxQuantity, it.Quantity)
	assert.True(t, s.Total().IsPositive())

	s.UpdateQuantity("chair", math.MaxInt)
	it, _ = s.Item("chair")
	assert.Equal(t, MaxQuantity, it.Quantity)

	s.UpdateQuantity("chair", 2)
	s.Add(chair, MaxQuantity, Options{})
	it, _ = s.Item("chair")
	assert.Equal(t, MaxQuantity, it.Quantity)
	assert.True(t, s.Total().Equal(decimal.NewFromInt(MaxQuantity*8900)))
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	s.Add(product("b", 1), 1, Options{})
	s.Add(product("a", 1), 1, Options{})
	s.Add(product("b", 1), 1, Options{})

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].Product.ID)
	assert.Equal(t, "a", items[1].Product.ID)
}

func TestMergeKeepFirst(t *testing.T) {
	s := NewStore()
	sofa := product("sofa", 154000)

	s.Add(sofa, 1, Options{Size: "3-местный", Upholstery: "велюр серый"})
	s.Add(sofa, 1, Options{Size: "2-местный", Upholstery: "экокожа"})

	it, ok := s.Item("sofa")
	require.True(t, ok)
	assert.Equal(t, Options{Size: "3-местный", Upholstery: "велюр серый"}, it.Options)
	assert.Equal(t, 2, it.Quantity)
}

func TestMergeReplace(t *testing.T) {
	s := NewStore(WithMergePolicy(MergeReplace))
	sofa := product("sofa", 154000)

	s.Add(sofa, 1, Options{Size: "3-местный", Upholstery: "велюр серый"})
	s.Add(sofa, 1, Options{Upholstery: " экокожа "})

	it, ok := s.Item("sofa")
	require.True(t, ok)
	assert.Equal(t, Options{Size: "3-местный", Upholstery: "экокожа"}, it.Options, "empty fields keep the earlier choice")
	assert.Equal(t, 2, it.Quantity)
}

func TestParseMergePolicy(t *testing.T) {
	assert.Equal(t, MergeReplace, ParseMergePolicy("Replace"))
	assert.Equal(t, MergeKeepFirst, ParseMergePolicy(""))
	assert.Equal(t, MergeKeepFirst, ParseMergePolicy("whatever"))
	assert.Equal(t, "keep-first", MergeKeepFirst.String())
}

func TestUpdateQuantity(t *testing.T) {
	for _, q := range []int{0, -1} {
		s := NewStore()
		s.Add(product("chair", 100), 2, Options{})
		s.Add(product("table", 100), 1, Options{})

		s.UpdateQuantity("chair", q)

		_, ok := s.Item("chair")
		assert.False(t, ok, "quantity %d removes the line", q)
		assert.Len(t, s.Items(), 1)
	}

	s := NewStore()
	s.Add(product("chair", 100), 2, Options{})
	s.UpdateQuantity("chair", 5)
	it, _ := s.Item("chair")
	assert.Equal(t, 5, it.Quantity, "update replaces instead of adding")

	s.UpdateQuantity("ghost", 3)
	assert.Len(t, s.Items(), 1)
}

func TestRemove(t *testing.T) {
	s := NewStore()
	s.Add(product("chair", 100), 1, Options{})

	s.Remove("ghost")
	assert.Len(t, s.Items(), 1)

	s.Remove("chair")
	assert.Empty(t, s.Items())
}

func TestClearZeroesTotal(t *testing.T) {
	s := NewStore()
	s.Add(product("chair", 8900), 4, Options{})
	s.Add(product("table", 99900), 1, Options{})
	require.True(t, s.Total().Equal(decimal.NewFromInt(4*8900+99900)))

	s.Clear()

	assert.True(t, s.Total().IsZero())
	assert.Zero(t, s.Count())
	assert.Empty(t, s.Items())
}

func TestSettleKeepsLaterAdditions(t *testing.T) {
	s := NewStore()
	chair := product("chair", 100)
	s.Add(chair, 2, Options{})
	s.Add(product("stool", 50), 1, Options{})
	ordered := s.Items()

	s.Add(chair, 1, Options{})
	s.Add(product("table", 900), 1, Options{})
	s.Settle(ordered)

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "chair", items[0].Product.ID)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, "table", items[1].Product.ID)

	s.Settle(s.Items())
	assert.Empty(t, s.Items())
	assert.True(t, s.Total().IsZero())

	version := s.Snapshot().Version
	s.Settle([]Item{{Product: chair, Quantity: 1}})
	assert.Equal(t, version, s.Snapshot().Version, "settling absent lines is a no-op")
}

func TestTotalMatchesRecomputationAfterRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	catalogue := []catalog.Product{product("a", 8900), product("b", 99900), product("c", 32900), product("d", 14900)}
	s := NewStore()

	for i := 0; i < 500; i++ {
		p := catalogue[rng.Intn(len(catalogue))]
		switch rng.Intn(5) {
		case 0, 1:
			s.Add(p, rng.Intn(4), Options{})
		case 2:
			s.UpdateQuantity(p.ID, rng.Intn(6)-1)
		case 3:
			s.Remove(p.ID)
		case 4:
			if rng.Intn(10) == 0 {
				s.Clear()
			}
		}
		items := s.Items()
		require.True(t, s.Total().Equal(recomputed(items)), "step %d", i)

		seen := map[string]bool{}
		for _, it := range items {
			require.False(t, seen[it.Product.ID], "duplicate line for %s", it.Product.ID)
			require.GreaterOrEqual(t, it.Quantity, 1)
			seen[it.Product.ID] = true
		}
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Add(product("chair", 100), 1, Options{})

	items := s.Items()
	items[0].Quantity = 99

	it, _ := s.Item("chair")
	assert.Equal(t, 1, it.Quantity)
}

func TestSelect(t *testing.T) {
	s := NewStore()
	s.Add(product("chair", 100), 3, Options{})

	n := Select(s, func(snap Snapshot) int { return len(snap.Items) })
	assert.Equal(t, 1, n)
	total := Select(s, func(snap Snapshot) string { return snap.Total.String() })
	assert.Equal(t, "300", total)
}

func TestSubscribeDeliversLatestSnapshot(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)

	initial := <-ch
	assert.Empty(t, initial.Items)

	s.Add(product("chair", 100), 1, Options{})
	s.Add(product("chair", 100), 1, Options{})
	s.Remove("ghost") // no-op, no notification

	latest := <-ch
	assert.Equal(t, 2, latest.Count)
	assert.Equal(t, uint64(2), latest.Version)

	cancel()
	for range ch {
	}
}

func TestConcurrentUse(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Add(product("chair", 100), 1, Options{})
				_ = s.Total()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, s.Count())
	assert.True(t, s.Total().Equal(decimal.NewFromInt(80000)))

	cancel()
	for range ch {
	}
}
