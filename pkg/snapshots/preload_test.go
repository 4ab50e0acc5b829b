package snapshots_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
	"github.com/Sumatoshi-tech/timewarp/pkg/snapshots"
)

type countingFixture struct {
	*snapshots.Fixture

	calls atomic.Int32
}

func (c *countingFixture) Snapshot(ctx context.Context, id string) (*scene.Snapshot, error) {
	c.calls.Add(1)

	return c.Fixture.Snapshot(ctx, id)
}

func TestPreload_ServesFetchedSnapshots(t *testing.T) {
	t.Parallel()

	fx, err := snapshots.ParseFixture([]byte(fixtureYAML), nil)
	require.NoError(t, err)

	src := &countingFixture{Fixture: fx}

	pre, err := snapshots.Preload(context.Background(), src, []string{"aaa1111", "bbb2222"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, pre.Len())
	assert.Equal(t, int32(2), src.calls.Load())

	snap, err := pre.Snapshot(context.Background(), "bbb2222")
	require.NoError(t, err)
	assert.Equal(t, "bbb2222", snap.CommitID)
	assert.Equal(t, int32(2), src.calls.Load(), "served from the preload")

	diff, err := pre.Diff(context.Background(), "bbb2222", "pkg/a.go")
	require.NoError(t, err)
	assert.Equal(t, "new\n", diff.After)
}

func TestPreload_FailsOnUnknownCommit(t *testing.T) {
	t.Parallel()

	fx, err := snapshots.ParseFixture([]byte(fixtureYAML), nil)
	require.NoError(t, err)

	_, err = snapshots.Preload(context.Background(), fx, []string{"aaa1111", "zzz"}, 1)
	require.ErrorIs(t, err, snapshots.ErrNotFound)
}
