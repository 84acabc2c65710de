// Package market holds the price primitives shared by every other package:
// sides, ticks and symbol arithmetic.
package market

import (
	"math"
	"time"
)

// Side is the direction of an order or position.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "S"
	}
	return "B"
}

// Opposite returns the side a position of this side closes against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Tick is one bid/ask quote for a symbol.
type Tick struct {
	Symbol string
	Time   time.Time
	Bid    float64
	Ask    float64
}

func (t Tick) Mid() float64 {
	if t.Bid == 0 && t.Ask == 0 {
		return 0
	}
	return (t.Bid + t.Ask) / 2
}

func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// RoundToPoint rounds a price difference to the nearest multiple of the
// instrument's point size. A non-positive point size returns x unchanged.
func RoundToPoint(x, pointSize float64) float64 {
	if pointSize <= 0 {
		return x
	}
	return math.Round(x/pointSize) * pointSize
}
