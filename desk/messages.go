package desk

import (
	"time"

	"github.com/fxdaemon/fxBench-sub005/signal"
)

// Message is a note pushed down from the server (margin calls, maintenance
// notices, dealer chat).
type Message struct {
	MessageID string
	Time      time.Time
	From      string
	Subject   string
	Text      string
}

func (m *Message) Key() string { return m.MessageID }

// Messages keeps server messages in arrival order.
type Messages struct {
	c *signal.Collection[*Message]
}

func NewMessages() *Messages {
	return &Messages{c: signal.New[*Message]()}
}

func (ms *Messages) Add(m *Message)                  { ms.c.Add(m) }
func (ms *Messages) Get(id string) (*Message, bool)  { return ms.c.Get(id) }
func (ms *Messages) At(i int) (*Message, bool)       { return ms.c.At(i) }
func (ms *Messages) Len() int                        { return ms.c.Len() }
func (ms *Messages) Remove(id string) (*Message, bool) {
	return ms.c.Remove(id)
}
func (ms *Messages) Clear() { ms.c.Clear() }
func (ms *Messages) Each(fn func(i int, m *Message) bool) {
	ms.c.Each(fn)
}

func (ms *Messages) Subscribe(t signal.EventType, fn signal.Listener[*Message]) int {
	return ms.c.Subscribe(t, fn)
}

func (ms *Messages) Unsubscribe(t signal.EventType, token int) { ms.c.Unsubscribe(t, token) }
