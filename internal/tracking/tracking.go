// Package tracking generates human-readable complaint tracking IDs.
//
// An ID has the form PREFIX-TTTTTTTTT-RRRRRRRR where T is the filing time in
// Unix milliseconds (base36, fixed width, so IDs sort by recency) and R is
// 40 random bits in Crockford base32. Uniqueness is enforced by the caller
// against storage; the generator only keeps collisions rare.
package tracking

import (
	"encoding/base32"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPrefix is used when no prefix is configured.
const DefaultPrefix = "GRV"

const (
	timeWidth   = 9
	randomBytes = 5 // 40 bits
)

var crockford = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// Generator produces tracking IDs.
type Generator struct {
	prefix string
	now    func() time.Time
}

// New returns a Generator using prefix, or DefaultPrefix when empty.
func New(prefix string) *Generator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{prefix: prefix, now: time.Now}
}

// SetClock overrides the time source (for testing).
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// Generate returns a new tracking ID.
func (g *Generator) Generate() string {
	ts := strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36))
	if len(ts) < timeWidth {
		ts = strings.Repeat("0", timeWidth-len(ts)) + ts
	}

	// The first six bytes of a v4 UUID carry no version or variant bits.
	u := uuid.New()
	suffix := crockford.EncodeToString(u[:randomBytes])

	return g.prefix + "-" + ts + "-" + suffix
}

// Valid reports whether id looks like a tracking ID produced by any prefix.
func Valid(id string) bool {
	parts := strings.Split(id, "-")
	if len(parts) != 3 || parts[0] == "" {
		return false
	}
	if len(parts[1]) != timeWidth || len(parts[2]) != 8 {
		return false
	}
	if _, err := strconv.ParseInt(parts[1], 36, 64); err != nil {
		return false
	}
	_, err := crockford.DecodeString(parts[2])
	return err == nil
}
