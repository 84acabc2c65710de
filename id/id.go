// Package id generates the time-sortable identifiers used for outbound
// requests and session correlation keys.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator mints ULID strings from one monotonic entropy stream. Ids minted
// within the same millisecond stay lexicographically increasing, which is
// what request correlation and the journal indexes rely on. Each session gets
// its own generator; the package-level New serves everything else.
type Generator struct {
	mu   sync.Mutex
	mono io.Reader
}

// NewGenerator returns a generator whose entropy is seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{mono: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

// Seeded returns a generator seeded from crypto/rand, falling back to the
// wall clock if the system source fails.
func Seeded() *Generator {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewGenerator(seed)
}

// New returns a ULID string.
func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, err := ulid.New(ulid.Timestamp(time.Now().UTC()), g.mono)
	if err != nil {
		// Only possible if time goes backwards or entropy is exhausted.
		panic(err)
	}
	return v.String()
}

var def = Seeded()

// New mints an id from the shared default generator.
func New() string { return def.New() }
