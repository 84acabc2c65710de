package signal

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    string
	Rank  int
	Value float64
}

func (v *item) Key() string { return v.ID }

func TestCollectionAddGetRemove(t *testing.T) {
	t.Parallel()

	c := New[*item]()
	c.Add(&item{ID: "a", Value: 1})
	c.Add(&item{ID: "b", Value: 2})

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 0, c.IndexOf("a"))
	assert.Equal(t, 1, c.IndexOf("b"))

	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2.0, got.Value)

	_, ok = c.Remove("a")
	assert.True(t, ok)
	assert.Equal(t, -1, c.IndexOf("a"))
	assert.Equal(t, 0, c.IndexOf("b"))
	assert.Equal(t, 1, c.Len())
}

func TestCollectionSortedInsert(t *testing.T) {
	t.Parallel()

	c := NewSorted[*item](func(a, b *item) bool { return a.Rank < b.Rank })
	c.Add(&item{ID: "c", Rank: 30})
	c.Add(&item{ID: "a", Rank: 10})
	c.Add(&item{ID: "b", Rank: 20})

	assert.Equal(t, []string{"a", "b", "c"}, c.Keys())
	// Index map follows the sort positions.
	assert.Equal(t, 0, c.IndexOf("a"))
	assert.Equal(t, 2, c.IndexOf("c"))
}

func TestCollectionEvents(t *testing.T) {
	t.Parallel()

	c := New[*item]()
	var log []string
	c.Subscribe(EventAdd, func(ev Event[*item]) {
		log = append(log, "add:"+ev.Elem.ID)
	})
	c.Subscribe(EventChange, func(ev Event[*item]) {
		log = append(log, fmt.Sprintf("change:%s:%g->%g", ev.Elem.ID, ev.Old.Value, ev.Elem.Value))
	})
	c.Subscribe(EventRemove, func(ev Event[*item]) {
		log = append(log, "remove:"+ev.Elem.ID)
	})

	c.Add(&item{ID: "a", Value: 1})
	c.Update(&item{ID: "a", Value: 2})
	c.Add(&item{ID: "a", Value: 3}) // add on existing key is a change
	c.Remove("a")

	assert.Equal(t, []string{"add:a", "change:a:1->2", "change:a:2->3", "remove:a"}, log)
}

func TestCollectionListenerOrderAndUnsubscribe(t *testing.T) {
	t.Parallel()

	c := New[*item]()
	var order []int
	c.Subscribe(EventAdd, func(Event[*item]) { order = append(order, 1) })
	tok := c.Subscribe(EventAdd, func(Event[*item]) { order = append(order, 2) })
	c.Subscribe(EventAdd, func(Event[*item]) { order = append(order, 3) })

	c.Add(&item{ID: "a"})
	assert.Equal(t, []int{1, 2, 3}, order)

	c.Unsubscribe(EventAdd, tok)
	order = nil
	c.Add(&item{ID: "b"})
	assert.Equal(t, []int{1, 3}, order)
}

func TestCollectionMutateBatches(t *testing.T) {
	t.Parallel()

	c := New[*item]()
	for i := 0; i < 5; i++ {
		c.Add(&item{ID: fmt.Sprintf("i%d", i), Value: float64(i)})
	}

	var events int
	var batch []int
	c.Subscribe(EventChange, func(ev Event[*item]) {
		events++
		batch = ev.Batch
	})

	changed := c.Mutate(func(elems []*item) []int {
		var idx []int
		for i, v := range elems {
			if int(v.Value)%2 == 0 {
				v.Value *= 10
				idx = append(idx, i)
			}
		}
		return idx
	})

	assert.Equal(t, []int{0, 2, 4}, changed)
	assert.Equal(t, 1, events, "one notification for the whole scan")
	assert.Equal(t, []int{0, 2, 4}, batch)

	// A scan that changes nothing stays silent.
	events = 0
	c.Mutate(func(elems []*item) []int { return nil })
	assert.Zero(t, events)
}

func TestCollectionClearEmitsRemoves(t *testing.T) {
	t.Parallel()

	c := New[*item]()
	c.Add(&item{ID: "a"})
	c.Add(&item{ID: "b"})

	var removed []string
	c.Subscribe(EventRemove, func(ev Event[*item]) {
		removed = append(removed, ev.Elem.ID)
	})
	c.Clear()

	assert.Equal(t, []string{"a", "b"}, removed, "every dropped element notifies")
	assert.Zero(t, c.Len())
	assert.Equal(t, -1, c.IndexOf("a"))
}

func TestCollectionSum(t *testing.T) {
	t.Parallel()

	c := New[*item]()
	c.Add(&item{ID: "a", Value: 1.5})
	c.Add(&item{ID: "b", Value: 2.5})
	assert.InDelta(t, 4.0, c.Sum(func(v *item) float64 { return v.Value }), 1e-9)
}

// A listener may read the collection that notified it: delivery happens after
// the collection lock is released.
func TestListenerMayReadSourceCollection(t *testing.T) {
	t.Parallel()

	c := New[*item]()
	var seen float64
	c.Subscribe(EventAdd, func(ev Event[*item]) {
		seen = c.Sum(func(v *item) float64 { return v.Value })
	})
	c.Add(&item{ID: "a", Value: 7})
	assert.Equal(t, 7.0, seen)
}

func TestCollectionConcurrentReadsAndWrites(t *testing.T) {
	t.Parallel()

	c := New[*item]()
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Add(&item{ID: fmt.Sprintf("g%d-%d", g, i), Value: 1})
				c.Sum(func(v *item) float64 { return v.Value })
				c.Keys()
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, 800, c.Len())
}
