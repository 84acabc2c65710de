package bars

import (
	"sort"
	"sync"
	"time"

	"github.com/fxdaemon/fxBench-sub005/market"
)

// Store holds every bar series, serialized by one lock so the feed goroutine
// and UI reads never observe a torn series.
type Store struct {
	mu     sync.RWMutex
	series map[Key][]Bar

	lmu       sync.RWMutex
	subs      []storeSub
	nextToken int
}

type storeSub struct {
	token int
	fn    func(Key, Bar)
}

func NewStore() *Store {
	return &Store{series: make(map[Key][]Bar)}
}

// Subscribe registers fn to be called after a bar is added or updated.
func (s *Store) Subscribe(fn func(Key, Bar)) int {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.nextToken++
	s.subs = append(s.subs, storeSub{token: s.nextToken, fn: fn})
	return s.nextToken
}

func (s *Store) Unsubscribe(token int) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	for i, sub := range s.subs {
		if sub.token == token {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

func (s *Store) notify(k Key, b Bar) {
	s.lmu.RLock()
	subs := make([]func(Key, Bar), len(s.subs))
	for i, sub := range s.subs {
		subs[i] = sub.fn
	}
	s.lmu.RUnlock()
	for _, fn := range subs {
		fn(k, b)
	}
}

// Add appends one bar to its series. Bars older than the current tail are
// routed through the batch merge so the series stays chronological.
func (s *Store) Add(b Bar) {
	k := b.key()

	s.mu.Lock()
	ser := s.series[k]
	if n := len(ser); n > 0 && !b.Start.After(ser[n-1].Start) {
		s.series[k] = mergeSeries(ser, []Bar{b})
	} else {
		s.series[k] = append(ser, b)
	}
	s.mu.Unlock()

	s.notify(k, b)
}

// AddBatch merges a batch of bars (one symbol/interval) into the existing
// series. The batch is compared head/tail against the series: strictly older
// batches are prepended, strictly newer ones appended, overlapping ones
// spliced. Equal timestamps resolve in favor of the incoming bar; nothing is
// dropped silently.
func (s *Store) AddBatch(batch []Bar) {
	if len(batch) == 0 {
		return
	}
	sort.SliceStable(batch, func(i, j int) bool { return batch[i].Start.Before(batch[j].Start) })
	k := batch[0].key()

	s.mu.Lock()
	ser := s.series[k]
	switch {
	case len(ser) == 0:
		s.series[k] = dedupe(batch)
	case batch[len(batch)-1].Start.Before(ser[0].Start):
		s.series[k] = append(dedupe(batch), ser...)
	case batch[0].Start.After(ser[len(ser)-1].Start):
		s.series[k] = append(ser, dedupe(batch)...)
	default:
		s.series[k] = mergeSeries(ser, dedupe(batch))
	}
	last := s.series[k][len(s.series[k])-1]
	s.mu.Unlock()

	s.notify(k, last)
}

// mergeSeries merges two chronological series into one strictly increasing
// sequence, preferring incoming bars when timestamps collide.
func mergeSeries(existing, incoming []Bar) []Bar {
	out := make([]Bar, 0, len(existing)+len(incoming))
	i, j := 0, 0
	for i < len(existing) && j < len(incoming) {
		switch {
		case existing[i].Start.Before(incoming[j].Start):
			out = append(out, existing[i])
			i++
		case incoming[j].Start.Before(existing[i].Start):
			out = append(out, incoming[j])
			j++
		default:
			out = append(out, incoming[j])
			i++
			j++
		}
	}
	out = append(out, existing[i:]...)
	out = append(out, incoming[j:]...)
	return out
}

// dedupe drops same-timestamp duplicates within a sorted batch, keeping the
// later occurrence.
func dedupe(batch []Bar) []Bar {
	out := batch[:0:len(batch)]
	for _, b := range batch {
		if n := len(out); n > 0 && out[n-1].Start.Equal(b.Start) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// Append folds a tick into the series: a tick inside the last bar's period
// updates it in place, a tick in a later period opens a new bar. Ticks older
// than the last bar's period are ignored.
func (s *Store) Append(t market.Tick, interval time.Duration) bool {
	k := Key{Symbol: t.Symbol, Interval: interval}
	start := t.Time.Truncate(interval)

	s.mu.Lock()
	ser := s.series[k]
	var out Bar
	switch {
	case len(ser) == 0:
		out = NewBar(t, interval)
		s.series[k] = append(ser, out)
	case start.Equal(ser[len(ser)-1].Start):
		ser[len(ser)-1].merge(t)
		out = ser[len(ser)-1]
	case start.After(ser[len(ser)-1].Start):
		out = NewBar(t, interval)
		s.series[k] = append(ser, out)
	default:
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	s.notify(k, out)
	return true
}

// Set replaces the last bar of its series when the timestamps match.
func (s *Store) Set(b Bar) bool {
	k := b.key()

	s.mu.Lock()
	ser := s.series[k]
	n := len(ser)
	if n == 0 || !ser[n-1].Start.Equal(b.Start) {
		s.mu.Unlock()
		return false
	}
	ser[n-1] = b
	s.mu.Unlock()

	s.notify(k, b)
	return true
}

// RemoveLeaveTail trims the series down to its newest n bars.
func (s *Store) RemoveLeaveTail(symbol string, interval time.Duration, n int) {
	k := Key{Symbol: symbol, Interval: interval}

	s.mu.Lock()
	defer s.mu.Unlock()
	ser := s.series[k]
	if n < 0 {
		n = 0
	}
	if len(ser) > n {
		tail := make([]Bar, n)
		copy(tail, ser[len(ser)-n:])
		s.series[k] = tail
	}
}

// Len returns the number of bars in a series.
func (s *Store) Len(symbol string, interval time.Duration) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[Key{Symbol: symbol, Interval: interval}])
}

// Intervals lists the intervals tracked for a symbol, shortest first.
func (s *Store) Intervals(symbol string) []time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []time.Duration
	for k := range s.series {
		if k.Symbol == symbol {
			out = append(out, k.Interval)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get returns up to size bars ending at or before anchor, shifted offset
// windows further into history, clamped to the available range. Callers must
// tolerate a shorter result at series boundaries.
func (s *Store) Get(symbol string, interval time.Duration, anchor time.Time, size, offset int) []Bar {
	k := Key{Symbol: symbol, Interval: interval}

	s.mu.RLock()
	defer s.mu.RUnlock()
	ser := s.series[k]
	if len(ser) == 0 || size <= 0 {
		return nil
	}

	// Last bar at or before the anchor.
	end := sort.Search(len(ser), func(i int) bool { return ser[i].Start.After(anchor) }) - 1
	end -= offset
	if end < 0 {
		return nil
	}
	if end >= len(ser) {
		end = len(ser) - 1
	}
	startIdx := end - size + 1
	if startIdx < 0 {
		startIdx = 0
	}
	out := make([]Bar, end-startIdx+1)
	copy(out, ser[startIdx:end+1])
	return out
}

// Stale lists every series whose newest bar has gone a full interval past
// its own period without a successor. The desk clock sweep feeds these to
// the protocol layer for a historical refill.
func (s *Store) Stale(now time.Time) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Key
	for k, ser := range s.series {
		if len(ser) == 0 {
			continue
		}
		newest := ser[len(ser)-1].Start
		if !newest.Add(2 * k.Interval).After(now) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Interval < out[j].Interval
	})
	return out
}
