package interactions

import "engagement/internal/poststate"

// reaction is the slice of a comment that a reaction toggle touches. It is
// captured before an optimistic update so the exact values can be restored.
type reaction struct {
	liked    bool
	disliked bool
	likes    int
	dislikes int
}

func reactionOf(c poststate.Comment) reaction {
	return reaction{
		liked:    c.UserHasLiked,
		disliked: c.UserHasDisliked,
		likes:    c.LikesCount,
		dislikes: c.DislikesCount,
	}
}

// toggle returns the reaction after the user toggles kind. Setting one flag
// clears the other and gives back its count.
func (r reaction) toggle(kind ReactionKind) reaction {
	switch kind {
	case Like:
		if r.liked {
			r.liked = false
			r.likes = max(r.likes-1, 0)
			return r
		}
		r.liked = true
		r.likes++
		if r.disliked {
			r.disliked = false
			r.dislikes = max(r.dislikes-1, 0)
		}
	case Dislike:
		if r.disliked {
			r.disliked = false
			r.dislikes = max(r.dislikes-1, 0)
			return r
		}
		r.disliked = true
		r.dislikes++
		if r.liked {
			r.liked = false
			r.likes = max(r.likes-1, 0)
		}
	}
	return r
}

func (r reaction) applyTo(c poststate.Comment) poststate.Comment {
	c.UserHasLiked = r.liked
	c.UserHasDisliked = r.disliked
	c.LikesCount = r.likes
	c.DislikesCount = r.dislikes
	return c
}
