package view

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// View ids are ULIDs: 48-bit millisecond timestamp, then 80 random bits,
// Crockford Base32 encoded into 26 characters. Ids minted within the same
// millisecond carry an increasing counter so they still sort in order.

var (
	idMu    sync.Mutex
	idLast  uint64
	idCount uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewID returns a new ULID.
func NewID() string {
	idMu.Lock()
	ms := uint64(time.Now().UnixMilli())
	if ms == idLast {
		idCount++
	} else {
		idLast = ms
		idCount = 0
	}
	count := idCount
	idMu.Unlock()

	var b [16]byte
	for i := 0; i < 6; i++ {
		b[i] = byte(ms >> (40 - 8*i))
	}
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], count)
	return encodeULID(b)
}

// encodeULID emits the 128 bits as 26 base32 digits. The first digit only
// carries the top 3 bits, since 26*5 = 130.
func encodeULID(b [16]byte) string {
	var out [26]byte
	hi := binary.BigEndian.Uint64(b[0:8])
	lo := binary.BigEndian.Uint64(b[8:16])
	for i := 25; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
