package session

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Session IDs are ULIDs: 26 Crockford base32 characters, a 48-bit
// millisecond timestamp followed by 80 random bits. IDs minted in the
// same millisecond carry an increasing counter in the first random bytes,
// so they sort in creation order.

var (
	idMu    sync.Mutex
	lastMs  uint64
	counter uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewID returns a fresh ULID.
func NewID() string {
	return newIDAt(time.Now())
}

func newIDAt(t time.Time) string {
	idMu.Lock()
	ms := uint64(t.UnixMilli())
	if ms == lastMs {
		counter++
	} else {
		lastMs = ms
		counter = 0
	}
	seq := counter
	idMu.Unlock()

	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], ms<<16)
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], seq)
	return encodeULID(b)
}

// encodeULID writes the 128 bits of b as base32, five bits per character
// from the least significant end. The leading character carries the top
// three bits.
func encodeULID(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[0:8])
	lo := binary.BigEndian.Uint64(b[8:16])

	var out [26]byte
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
