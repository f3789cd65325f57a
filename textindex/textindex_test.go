package textindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAndLookup(t *testing.T) {
	ix := New()
	ix.Update(1, "buy milk and bread")
	ix.Update(2, "milk shake recipe")

	milk := ix.Lookup("milk")
	require.NotNil(t, milk)
	assert.True(t, milk.Contains(1))
	assert.True(t, milk.Contains(2))

	bread := ix.Lookup("bread")
	require.NotNil(t, bread)
	assert.True(t, bread.Contains(1))
	assert.False(t, bread.Contains(2))

	assert.Nil(t, ix.Lookup("coffee"))
}

func TestUpdateReplacesPostings(t *testing.T) {
	ix := New()
	ix.Update(1, "alpha beta")
	ix.Update(1, "beta gamma")

	// Stale terms never survive an update.
	assert.Nil(t, ix.Lookup("alpha"))
	require.NotNil(t, ix.Lookup("beta"))
	require.NotNil(t, ix.Lookup("gamma"))
	assert.Equal(t, 2, ix.DocTokens(1))
}

func TestUpdateEmptyContentRemoves(t *testing.T) {
	ix := New()
	ix.Update(1, "alpha beta")
	ix.Update(1, "")

	assert.Nil(t, ix.Lookup("alpha"))
	assert.Nil(t, ix.Lookup("beta"))
	assert.False(t, ix.HasContent(1))
	assert.Equal(t, 0, ix.Docs())
	assert.Equal(t, 0, ix.Terms())
}

func TestRemove(t *testing.T) {
	ix := New()
	ix.Update(1, "alpha beta")
	ix.Update(2, "beta gamma")

	ix.Remove(1)

	assert.Nil(t, ix.Lookup("alpha"))
	beta := ix.Lookup("beta")
	require.NotNil(t, beta)
	assert.False(t, beta.Contains(1))
	assert.True(t, beta.Contains(2))

	// Removing an unknown document is a no-op.
	ix.Remove(99)
	assert.Equal(t, 1, ix.Docs())
}

func TestLookupPrefix(t *testing.T) {
	ix := New()
	ix.Update(1, "report reporting")
	ix.Update(2, "reptile")
	ix.Update(3, "summary")

	got := ix.LookupPrefix("rep")
	assert.True(t, got.Contains(1))
	assert.True(t, got.Contains(2))
	assert.False(t, got.Contains(3))

	assert.True(t, ix.LookupPrefix("zzz").IsEmpty())
	assert.True(t, ix.LookupPrefix("").IsEmpty())
}

func TestFrequency(t *testing.T) {
	ix := New()
	ix.Update(1, "go go go stop")

	assert.Equal(t, uint32(3), ix.Frequency(1, "go"))
	assert.Equal(t, uint32(1), ix.Frequency(1, "stop"))
	assert.Equal(t, uint32(0), ix.Frequency(1, "missing"))
	assert.Equal(t, 4, ix.DocTokens(1))
}

func TestCloneIsolation(t *testing.T) {
	parent := New()
	parent.Update(1, "alpha beta")
	parent.Update(2, "alpha gamma")

	child := parent.Clone()
	child.Update(1, "delta")
	child.Remove(2)

	// The parent is unaffected by mutations on the clone.
	alpha := parent.Lookup("alpha")
	require.NotNil(t, alpha)
	assert.True(t, alpha.Contains(1))
	assert.True(t, alpha.Contains(2))
	assert.Equal(t, uint32(1), parent.Frequency(1, "beta"))

	// The clone sees only its own state.
	childAlpha := child.Lookup("alpha")
	assert.Nil(t, childAlpha)
	require.NotNil(t, child.Lookup("delta"))
	assert.Equal(t, 1, child.Docs())
	assert.Equal(t, 2, parent.Docs())
}

func TestSnapshotRoundTrip(t *testing.T) {
	ix := New()
	ix.Update(1, "alpha beta beta")
	ix.Update(2, "gamma")

	restored := FromSnapshot(ix.Snapshot())

	assert.Equal(t, ix.Docs(), restored.Docs())
	assert.Equal(t, ix.Terms(), restored.Terms())
	assert.Equal(t, uint32(2), restored.Frequency(1, "beta"))
	assert.Equal(t, 3, restored.DocTokens(1))
	require.NotNil(t, restored.Lookup("gamma"))
	assert.True(t, restored.Lookup("gamma").Contains(2))
	assert.True(t, restored.LookupPrefix("alp").Contains(1))
}
