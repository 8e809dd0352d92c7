package invoice

import (
	"regexp"
	"testing"
	"time"
)

func TestNumberFormat(t *testing.T) {
	now := time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^INV-20260901-\d{5}$`)

	for i := 0; i < 50; i++ {
		n := Number(now)
		if !pattern.MatchString(n) {
			t.Fatalf("invoice number %q does not match expected format", n)
		}
	}
}
