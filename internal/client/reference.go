package client

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxReferenceIDLength is the gateway's limit on the merchant reference field.
const MaxReferenceIDLength = 20

// NewReferenceID builds a per-attempt reference: the last 8 digits of the unix-millis
// timestamp, a dash, and 6 random base36 characters.
func NewReferenceID(now time.Time) string {
	ts := fmt.Sprintf("%08d", now.UnixMilli()%100_000_000)

	// uuid v4 carries 122 random bits
	u := uuid.New()
	suffix := new(big.Int).SetBytes(u[:]).Text(36)
	suffix = strings.Repeat("0", 6) + suffix
	return ts + "-" + suffix[len(suffix)-6:]
}
