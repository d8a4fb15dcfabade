package tcpengine

import (
	cryptorand "crypto/rand"
	"encoding/binary"
)

// randomISN draws a random initial sequence number the way the original
// implementation does (std::random_device equivalent): cryptographically
// random, not merely time-seeded, since TCP ISN predictability is a real
// off-path attack surface even for a teaching-grade stack.
func randomISN() WSN {
	var buf [4]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return 0
	}
	return WSN(binary.BigEndian.Uint32(buf[:]))
}
