package diffstat_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/timewarp/pkg/diffstat"
)

func TestCompute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		before string
		after  string
		want   diffstat.Stats
	}{
		{
			name:   "identical",
			before: "package main\n\nfunc main() {}\n",
			after:  "package main\n\nfunc main() {}\n",
			want:   diffstat.Stats{OldLines: 3, NewLines: 3},
		},
		{
			name:  "created",
			after: "a\nb\n",
			want:  diffstat.Stats{NewLines: 2, Added: 2, Hunks: 1},
		},
		{
			name:   "deleted",
			before: "a\nb\nc\n",
			want:   diffstat.Stats{OldLines: 3, Removed: 3, Hunks: 1},
		},
		{
			name:   "appended",
			before: "a\nb\n",
			after:  "a\nb\nc\n",
			want:   diffstat.Stats{OldLines: 2, NewLines: 3, Added: 1, Hunks: 1},
		},
		{
			name:   "replaced line counts as changed",
			before: "a\nb\nc\n",
			after:  "a\nB\nc\n",
			want:   diffstat.Stats{OldLines: 3, NewLines: 3, Changed: 1, Hunks: 1},
		},
		{
			name:   "two separate hunks",
			before: "a\nb\nc\nd\ne\n",
			after:  "a\nB\nc\nd\n",
			want:   diffstat.Stats{OldLines: 5, NewLines: 4, Changed: 1, Removed: 1, Hunks: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, diffstat.Compute(tt.before, tt.after))
		})
	}
}

func TestComputeWith_IgnoreWhitespace(t *testing.T) {
	t.Parallel()

	before := "if x {\n\treturn\n}\n"
	after := "if  x  {\n\treturn\n}\n"

	assert.Equal(t, 1, diffstat.Compute(before, after).Changed)
	assert.Zero(t, diffstat.ComputeWith(before, after, diffstat.Options{IgnoreWhitespace: true}).Churn())
}

func TestStats_String(t *testing.T) {
	t.Parallel()

	stats := diffstat.Stats{Added: 4, Removed: 2, Changed: 1}

	assert.Equal(t, "+4 -2 ~1", stats.String())
	assert.Equal(t, 7, stats.Churn())
}

func TestCompute_Binary(t *testing.T) {
	t.Parallel()

	stats := diffstat.Compute("\x89PNG\x00\x01", "\x89PNG\x00\x02")

	assert.True(t, stats.Binary)
	assert.Zero(t, stats.Churn())
	assert.Equal(t, "binary", stats.String())

	// A NUL past the sniff window is not looked at.
	late := strings.Repeat("a\n", 5000) + "\x00"
	assert.False(t, diffstat.Compute("", late).Binary)
}
