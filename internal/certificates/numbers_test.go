package certificates

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNextFormat(t *testing.T) {
	gen := NewNumberGeneratorAt("TRN",
		fixedClock(time.Date(2025, 1, 10, 15, 4, 5, 0, time.UTC)),
		rand.New(rand.NewSource(1)))

	number := gen.Next()

	parts := strings.Split(number, "-")
	assert.Len(t, parts, 3)
	assert.Equal(t, "TRN", parts[0])
	assert.Equal(t, "20250110", parts[1])
	assert.Len(t, parts[2], suffixLength)
	for _, ch := range parts[2] {
		assert.Contains(t, suffixAlphabet, string(ch))
	}
}

func TestNextVariesWithRandomSource(t *testing.T) {
	clock := fixedClock(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	gen := NewNumberGeneratorAt("TRN", clock, rand.New(rand.NewSource(42)))

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[gen.Next()] = true
	}

	// Same day, different suffixes.
	assert.Greater(t, len(seen), 90)
}

func TestNextDeterministicForSeed(t *testing.T) {
	clock := fixedClock(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))

	a := NewNumberGeneratorAt("TRN", clock, rand.New(rand.NewSource(7))).Next()
	b := NewNumberGeneratorAt("TRN", clock, rand.New(rand.NewSource(7))).Next()

	assert.Equal(t, a, b)
}
