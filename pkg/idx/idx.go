// Package idx issues ULIDs for request ids and session token ids. Ids from
// one process sort in creation order, even within a millisecond.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a canonical 26 character ULID.
type ID string

// Zero is the empty ID.
const Zero ID = ""

// ErrInvalid reports a string that is not a ULID.
var ErrInvalid = errors.New("idx: invalid ulid")

// gen serialises access to the monotonic entropy source, which is not
// safe for concurrent use.
var gen = struct {
	sync.Mutex
	entropy *ulid.MonotonicEntropy
}{entropy: ulid.Monotonic(rand.Reader, 0)}

// New returns an ID stamped with the current time.
func New() ID {
	return NewAt(time.Now())
}

// NewAt returns an ID stamped with t, or Zero if entropy ran out.
func NewAt(t time.Time) ID {
	gen.Lock()
	u, err := ulid.New(ulid.Timestamp(t), gen.entropy)
	gen.Unlock()
	if err != nil {
		return Zero
	}
	return ID(u.String())
}

// MustNew is New that panics instead of returning Zero.
func MustNew() ID {
	if id := New(); id != Zero {
		return id
	}
	panic("idx: ulid entropy exhausted")
}

// Parse accepts a ULID, ignoring surrounding whitespace.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if _, err := ulid.ParseStrict(s); err != nil {
		return Zero, ErrInvalid
	}
	return ID(s), nil
}

func (id ID) IsZero() bool   { return id == Zero }
func (id ID) String() string { return string(id) }

// Time is the embedded timestamp, or the zero time for Zero and invalid ids.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}
