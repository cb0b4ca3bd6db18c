package certificates

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Suffix alphabet drops 0/O/1/I so numbers stay readable when typed from a
// printed certificate.
const suffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const suffixLength = 6

// NumberGenerator produces candidate certificate numbers of the form
// PREFIX-YYYYMMDD-XXXXXX. The clock and random source are injectable so
// tests can force collisions without real timing.
type NumberGenerator struct {
	prefix string
	now    func() time.Time
	rng    *rand.Rand
}

func NewNumberGenerator(prefix string) *NumberGenerator {
	return &NumberGenerator{
		prefix: prefix,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewNumberGeneratorAt builds a generator with a fixed clock and seed.
func NewNumberGeneratorAt(prefix string, now func() time.Time, rng *rand.Rand) *NumberGenerator {
	return &NumberGenerator{prefix: prefix, now: now, rng: rng}
}

// Next returns a fresh candidate number. Uniqueness is not guaranteed here;
// the storage layer's unique constraint is the final arbiter.
func (g *NumberGenerator) Next() string {
	var sb strings.Builder
	for i := 0; i < suffixLength; i++ {
		sb.WriteByte(suffixAlphabet[g.rng.Intn(len(suffixAlphabet))])
	}
	return fmt.Sprintf("%s-%s-%s", g.prefix, g.now().UTC().Format("20060102"), sb.String())
}
