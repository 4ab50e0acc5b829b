package jitter_test

import (
	"hash/fnv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/timewarp/pkg/jitter"
)

func TestSum32_MatchesFNV1aForASCII(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "a", "src/main.go", "docs/README.mdx", "root"} {
		h := fnv.New32a()
		_, _ = h.Write([]byte(s))

		assert.Equal(t, h.Sum32(), jitter.Sum32(s), "seed %q", s)
	}
}

func TestSum32_EmptyIsOffsetBasis(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(2166136261), jitter.Sum32(""))
}

func TestHash01_Range(t *testing.T) {
	t.Parallel()

	seeds := []string{"", "x", "pkg/scene/layout.gox", "pkg/scene/layout.goy", "ünïcødé/路径.txtz"}

	for _, s := range seeds {
		v := jitter.Hash01(s)
		assert.GreaterOrEqual(t, v, 0.0, "seed %q", s)
		assert.Less(t, v, 1.0, "seed %q", s)
	}
}

func TestHash01_Deterministic(t *testing.T) {
	t.Parallel()

	first := jitter.Hash01("internal/api/server.gox")

	for range 100 {
		assert.Equal(t, first, jitter.Hash01("internal/api/server.gox"))
	}
}

func TestHash01_KnownValue(t *testing.T) {
	t.Parallel()

	// FNV-1a("a") = 0xe40c292c = 3826002220; 3826002220 % 100000 = 2220.
	assert.InDelta(t, 0.0222, jitter.Hash01("a"), 1e-12)
}

func TestHash01_AxisSeedsDiffer(t *testing.T) {
	t.Parallel()

	path := "cmd/timewarp/main.go"

	x := jitter.Hash01(path + "x")
	y := jitter.Hash01(path + "y")
	z := jitter.Hash01(path + "z")

	assert.False(t, x == y && y == z)
}

func TestCentered_Range(t *testing.T) {
	t.Parallel()

	v := jitter.Centered("README.md")
	assert.GreaterOrEqual(t, v, -0.5)
	assert.Less(t, v, 0.5)
	assert.Equal(t, jitter.Hash01("README.md")-0.5, v)
}
