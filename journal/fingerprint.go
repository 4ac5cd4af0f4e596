package journal

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"holdem-autopilot/engine"
)

// Fingerprint identifies a reading: the fields the engine compares to
// detect a repeated capture. Two snapshots share a fingerprint exactly when
// SameReading holds between them.
func Fingerprint(s engine.Snapshot) string {
	var buf [7 + 3*8]byte
	buf[0], buf[1] = byte(s.Hole[0]), byte(s.Hole[1])
	for i, c := range s.Board {
		buf[2+i] = byte(c)
	}
	binary.BigEndian.PutUint64(buf[7:], uint64(s.Stack))
	binary.BigEndian.PutUint64(buf[15:], uint64(s.Bet[0]))
	binary.BigEndian.PutUint64(buf[23:], uint64(s.Bet[1]))
	sum := blake2b.Sum256(buf[:])
	return hex.EncodeToString(sum[:12])
}
