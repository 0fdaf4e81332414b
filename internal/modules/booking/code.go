// README: Human-readable booking codes (BK-YYMMDD-XXXXXX).
package booking

import (
	"crypto/rand"
	"time"
)

// Ambiguous characters (0/O, 1/I) are left out so codes can be read over the phone.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newCode(now time.Time) string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	suffix := make([]byte, len(b))
	for i, v := range b {
		suffix[i] = codeAlphabet[int(v)%len(codeAlphabet)]
	}
	return "BK-" + now.UTC().Format("060102") + "-" + string(suffix)
}
