package commenttree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleForest() []Comment {
	return []Comment{
		{
			ID:           "c1",
			Content:      "first",
			RepliesCount: 2,
			Replies: []Comment{
				{ID: "r1", ParentID: "c1", Content: "reply one"},
				{ID: "r2", ParentID: "c1", Content: "reply two"},
			},
		},
		{ID: "c2", Content: "second", Replies: []Comment{}},
	}
}

func TestFind(t *testing.T) {
	t.Parallel()
	tree := sampleForest()

	tests := []struct {
		name    string
		id      string
		want    string
		wantHit bool
	}{
		{"top level", "c2", "second", true},
		{"nested reply", "r2", "reply two", true},
		{"missing", "nope", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Find(tree, tt.id)
			assert.Equal(t, tt.wantHit, ok)
			assert.Equal(t, tt.want, got.Content)
		})
	}
}

func TestFind_DeeperNesting(t *testing.T) {
	t.Parallel()
	tree := []Comment{{ID: "a", Replies: []Comment{{ID: "b", Replies: []Comment{{ID: "c", Content: "deep"}}}}}}

	got, ok := Find(tree, "c")
	require.True(t, ok)
	assert.Equal(t, "deep", got.Content)
}

func TestMap_CopiesPathAndSharesSiblings(t *testing.T) {
	t.Parallel()
	tree := sampleForest()

	out, ok := Map(tree, "r1", func(c Comment) Comment {
		c.Content = "edited"
		c.IsEdited = true
		return c
	})
	require.True(t, ok)

	// original untouched
	assert.Equal(t, "reply one", tree[0].Replies[0].Content)
	assert.False(t, tree[0].Replies[0].IsEdited)

	assert.Equal(t, "edited", out[0].Replies[0].Content)
	assert.True(t, out[0].Replies[0].IsEdited)
	assert.Equal(t, "reply two", out[0].Replies[1].Content)

	assert.Equal(t, tree[1], out[1])
}

func TestMap_UnrelatedBranchIsShared(t *testing.T) {
	t.Parallel()
	tree := sampleForest()

	out, ok := Map(tree, "c2", func(c Comment) Comment {
		c.Content = "changed"
		return c
	})
	require.True(t, ok)
	assert.Equal(t, "changed", out[1].Content)
	assert.Same(t, &tree[0].Replies[0], &out[0].Replies[0])
}

func TestMap_NotFoundReturnsInput(t *testing.T) {
	t.Parallel()
	tree := sampleForest()

	out, ok := Map(tree, "missing", func(c Comment) Comment {
		t.Fatal("update must not run")
		return c
	})
	assert.False(t, ok)
	assert.Equal(t, tree, out)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	t.Run("top level with replies", func(t *testing.T) {
		t.Parallel()
		tree := sampleForest()
		out, removed := Remove(tree, "c1")
		assert.Equal(t, 3, removed)
		require.Len(t, out, 1)
		assert.Equal(t, "c2", out[0].ID)
		assert.Len(t, tree, 2, "input must not change")
	})

	t.Run("reply decrements parent", func(t *testing.T) {
		t.Parallel()
		tree := sampleForest()
		out, removed := Remove(tree, "r1")
		assert.Equal(t, 1, removed)
		require.Len(t, out[0].Replies, 1)
		assert.Equal(t, "r2", out[0].Replies[0].ID)
		assert.Equal(t, 1, out[0].RepliesCount)
		assert.Equal(t, 2, tree[0].RepliesCount)
		assert.Len(t, tree[0].Replies, 2)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		tree := sampleForest()
		out, removed := Remove(tree, "ghost")
		assert.Zero(t, removed)
		assert.Equal(t, tree, out)
	})
}

func TestAppendReply(t *testing.T) {
	t.Parallel()
	tree := sampleForest()

	out, ok := AppendReply(tree, "c2", Comment{ID: "r3", ParentID: "c2", Content: "hi"})
	require.True(t, ok)
	require.Len(t, out[1].Replies, 1)
	assert.Equal(t, "r3", out[1].Replies[0].ID)
	assert.Equal(t, 1, out[1].RepliesCount)
	assert.Empty(t, tree[1].Replies)

	_, ok = AppendReply(tree, "ghost", Comment{ID: "x"})
	assert.False(t, ok)
}

func TestAppendReply_ReplyCannotTakeReplies(t *testing.T) {
	t.Parallel()
	tree := sampleForest()

	out, ok := AppendReply(tree, "r1", Comment{ID: "r3", ParentID: "r1"})
	assert.False(t, ok)
	assert.Equal(t, tree, out)
	assert.Empty(t, out[0].Replies[0].Replies)
	assert.Equal(t, 4, Count(out))
}

func TestFindTopLevel(t *testing.T) {
	t.Parallel()
	tree := sampleForest()

	got, ok := FindTopLevel(tree, "c1")
	require.True(t, ok)
	assert.Equal(t, "first", got.Content)

	_, ok = FindTopLevel(tree, "r1")
	assert.False(t, ok)
	_, ok = FindTopLevel(tree, "nope")
	assert.False(t, ok)
}

func TestCount(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 4, Count(sampleForest()))
	assert.Zero(t, Count(nil))
}
