// Package commenttree implements the pure recursive operations the command
// layer uses on a post's comment forest. No function here modifies its input:
// every change returns a new forest in which only the nodes on the path to the
// changed node are copied.
package commenttree

import "engagement/internal/poststate"

// Comment is the node type the tree operates on.
type Comment = poststate.Comment

// Find returns the first node with the given id in depth-first order.
func Find(tree []Comment, id string) (Comment, bool) {
	for _, c := range tree {
		if c.ID == id {
			return c, true
		}
		if found, ok := Find(c.Replies, id); ok {
			return found, true
		}
	}
	return Comment{}, false
}

// Map returns a forest in which the node with the given id is replaced by
// update(node). The second result is false, and tree is returned unchanged,
// when no node matches.
func Map(tree []Comment, id string, update func(Comment) Comment) ([]Comment, bool) {
	for i, c := range tree {
		if c.ID == id {
			out := copyForest(tree)
			out[i] = update(c)
			return out, true
		}
		if replies, ok := Map(c.Replies, id, update); ok {
			out := copyForest(tree)
			c.Replies = replies
			out[i] = c
			return out, true
		}
	}
	return tree, false
}

// Remove returns a forest without the node with the given id and its whole
// subtree, together with the number of nodes removed. When the removed node
// was a reply its direct parent's RepliesCount is decremented by one.
func Remove(tree []Comment, id string) ([]Comment, int) {
	for i, c := range tree {
		if c.ID == id {
			out := make([]Comment, 0, len(tree)-1)
			out = append(out, tree[:i]...)
			out = append(out, tree[i+1:]...)
			return out, 1 + Count(c.Replies)
		}
		replies, removed := Remove(c.Replies, id)
		if removed == 0 {
			continue
		}
		out := copyForest(tree)
		c.Replies = replies
		if len(replies) < len(tree[i].Replies) && c.RepliesCount > 0 {
			c.RepliesCount--
		}
		out[i] = c
		return out, removed
	}
	return tree, 0
}

// FindTopLevel returns the top-level comment with the given id. Replies are
// not considered, since only top-level comments can take replies.
func FindTopLevel(tree []Comment, id string) (Comment, bool) {
	for _, c := range tree {
		if c.ID == id {
			return c, true
		}
	}
	return Comment{}, false
}

// AppendReply appends reply to the top-level comment with id parentID and
// increments its RepliesCount. The second result is false when no top-level
// comment has that id, including when parentID names a reply.
func AppendReply(tree []Comment, parentID string, reply Comment) ([]Comment, bool) {
	for i, parent := range tree {
		if parent.ID != parentID {
			continue
		}
		replies := make([]Comment, 0, len(parent.Replies)+1)
		replies = append(replies, parent.Replies...)
		parent.Replies = append(replies, reply)
		parent.RepliesCount++

		out := copyForest(tree)
		out[i] = parent
		return out, true
	}
	return tree, false
}

// Count returns the number of nodes in the forest, replies included.
func Count(tree []Comment) int {
	n := 0
	for _, c := range tree {
		n += 1 + Count(c.Replies)
	}
	return n
}

func copyForest(tree []Comment) []Comment {
	out := make([]Comment, len(tree))
	copy(out, tree)
	return out
}
