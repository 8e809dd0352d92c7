// Package invoice generates invoice numbers in the form INV-YYYYMMDD-#####.
// The 5-digit suffix is random and uniqueness is not enforced; at single-till
// sale volumes a same-day collision is a documented, accepted risk.
package invoice

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

func Number(now time.Time) string {
	return fmt.Sprintf("INV-%s-%05d", now.Format("20060102"), 10000+randomInt(90000))
}

func randomInt(n int64) int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano() % n
	}
	return int64(binary.BigEndian.Uint64(buf[:]) % uint64(n))
}
