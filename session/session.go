// Package session holds the per-login context the desk and the channel share:
// account currency, trading base unit, request correlation, and the
// stop/limit map used while the protocol layer replays orders.
package session

import (
	"sync"

	"github.com/fxdaemon/fxBench-sub005/id"
)

// StopLimit pairs the stop and limit rates reported for an order before the
// order itself arrives during replay.
type StopLimit struct {
	OrderID string
	Stop    float64
	Limit   float64
}

// Session is safe for use from the event-delivery and UI goroutines; every
// map behind it is guarded and only reachable through accessors.
type Session struct {
	ids *id.Generator

	mu           sync.RWMutex
	accountID    string
	currency     string
	baseUnitSize float64
	pointSizes   map[string]float64
	pending      map[string]string    // request id -> description of the in-flight command
	stopLimits   map[string]StopLimit // order id -> replayed stop/limit rates
}

func New(currency string, baseUnitSize float64) *Session {
	return &Session{
		ids:          id.Seeded(),
		currency:     currency,
		baseUnitSize: baseUnitSize,
		pointSizes:   make(map[string]float64),
		pending:      make(map[string]string),
		stopLimits:   make(map[string]StopLimit),
	}
}

func (s *Session) Currency() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currency
}

func (s *Session) BaseUnitSize() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseUnitSize
}

func (s *Session) SetAccount(accountID string) {
	s.mu.Lock()
	s.accountID = accountID
	s.mu.Unlock()
}

func (s *Session) AccountID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountID
}

// SetPointSize records the smallest quoted increment for a symbol.
func (s *Session) SetPointSize(symbol string, pointSize float64) {
	s.mu.Lock()
	s.pointSizes[symbol] = pointSize
	s.mu.Unlock()
}

// PointSize returns a symbol's point size, defaulting to 0.0001.
func (s *Session) PointSize(symbol string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.pointSizes[symbol]; ok && p > 0 {
		return p
	}
	return 0.0001
}

// NextRequestID allocates a correlation id from the session's own entropy
// stream and registers what it is for.
func (s *Session) NextRequestID(what string) string {
	rid := s.ids.New()
	s.mu.Lock()
	s.pending[rid] = what
	s.mu.Unlock()
	return rid
}

// TakeRequest resolves and removes a correlation id.
func (s *Session) TakeRequest(rid string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	what, ok := s.pending[rid]
	if ok {
		delete(s.pending, rid)
	}
	return what, ok
}

// PendingRequests reports the number of unresolved correlation ids.
func (s *Session) PendingRequests() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// PutStopLimit stores replayed stop/limit rates for an order.
func (s *Session) PutStopLimit(sl StopLimit) {
	s.mu.Lock()
	s.stopLimits[sl.OrderID] = sl
	s.mu.Unlock()
}

// TakeStopLimit resolves and removes an order's replayed stop/limit rates.
func (s *Session) TakeStopLimit(orderID string) (StopLimit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.stopLimits[orderID]
	if ok {
		delete(s.stopLimits, orderID)
	}
	return sl, ok
}
