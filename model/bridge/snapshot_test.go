package bridge_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
)

func TestNonceSnapshot(t *testing.T) {
	halted := bridge.NonceSnapshot{0: 5, 1: 6, 2: 6}
	recovered := bridge.NonceSnapshot{0: 5, 1: 5, 2: 5}

	assert.Equal(t, "{v0:5, v1:6, v2:6}", halted.String())
	assert.Equal(t, []int{0, 1, 2}, halted.Indices())

	_, ok := halted.AllEqual()
	assert.False(t, ok)
	v, ok := recovered.AllEqual()
	assert.True(t, ok)
	assert.Equal(t, uint64(5), v)

	_, ok = bridge.NonceSnapshot{}.AllEqual()
	assert.False(t, ok)

	assert.True(t, bridge.AllEqualTo(5)(recovered))
	assert.False(t, bridge.AllEqualTo(6)(recovered))
	assert.False(t, bridge.AllEqualTo(5)(halted))

	assert.True(t, halted.Equal(halted.Copy()))
	assert.False(t, halted.Equal(recovered))
	assert.False(t, halted.Equal(bridge.NonceSnapshot{0: 5, 1: 6}))
	assert.Empty(t, cmp.Diff(halted, halted.Copy()))
}

func TestNonceGroups_MatchedBy(t *testing.T) {
	partition := bridge.NonceGroups{{0}, {1, 2}}

	assert.True(t, partition.MatchedBy(bridge.NonceSnapshot{0: 5, 1: 6, 2: 6}))
	// groups must be distinct
	assert.False(t, partition.MatchedBy(bridge.NonceSnapshot{0: 5, 1: 5, 2: 5}))
	// groups must be internally equal
	assert.False(t, partition.MatchedBy(bridge.NonceSnapshot{0: 5, 1: 6, 2: 7}))
	// partial snapshots never match
	assert.False(t, partition.MatchedBy(bridge.NonceSnapshot{0: 5, 1: 6}))
	// extra validators never match
	assert.False(t, partition.MatchedBy(bridge.NonceSnapshot{0: 5, 1: 6, 2: 6, 3: 6}))
	// an index listed twice does not cover a missing one
	assert.False(t, bridge.NonceGroups{{0, 0}, {1}}.MatchedBy(bridge.NonceSnapshot{0: 5, 1: 6, 2: 6}))

	value, ok := partition.GroupValue(bridge.NonceSnapshot{0: 5, 1: 6, 2: 6}, 1)
	require.True(t, ok)
	assert.Equal(t, uint64(6), value)
}

func TestNonceGroups_Validate(t *testing.T) {
	require.NoError(t, bridge.NonceGroups{{0}, {1, 2}}.Validate(3))
	require.Error(t, bridge.NonceGroups{}.Validate(3))
	require.Error(t, bridge.NonceGroups{{0}, {}}.Validate(3))
	require.Error(t, bridge.NonceGroups{{0}, {1, 3}}.Validate(3))
	require.Error(t, bridge.NonceGroups{{0, 1}, {1, 2}}.Validate(3))
	require.Error(t, bridge.NonceGroups{{-1}}.Validate(3))
}

// TestNonceGroups_MatchedByRapid generates a partition together with a snapshot that respects it,
// and checks that MatchedBy holds exactly until a group is merged into another one.
func TestNonceGroups_MatchedByRapid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "validators")
		// assign each validator to one of k groups
		k := rapid.IntRange(1, n).Draw(t, "groups")
		assignment := rapid.SliceOfN(rapid.IntRange(0, k-1), n, n).Draw(t, "assignment")

		byGroup := make(map[int][]int)
		for i, g := range assignment {
			byGroup[g] = append(byGroup[g], i)
		}
		groups := make(bridge.NonceGroups, 0, len(byGroup))
		for g := 0; g < k; g++ {
			if members, ok := byGroup[g]; ok {
				groups = append(groups, members)
			}
		}
		require.NoError(t, groups.Validate(n))

		base := rapid.Uint64Range(0, 1<<32).Draw(t, "base")
		snapshot := make(bridge.NonceSnapshot, n)
		for gi, members := range groups {
			for _, i := range members {
				snapshot[i] = base + uint64(gi)
			}
		}
		require.True(t, groups.MatchedBy(snapshot), "groups %v snapshot %s", groups, snapshot)

		if len(groups) < 2 {
			return
		}
		// collapsing two groups onto one value breaks the partition
		victim := rapid.IntRange(1, len(groups)-1).Draw(t, "victim")
		collapsed := snapshot.Copy()
		for _, i := range groups[victim] {
			collapsed[i] = base
		}
		require.False(t, groups.MatchedBy(collapsed), "groups %v snapshot %s", groups, collapsed)
	})
}
