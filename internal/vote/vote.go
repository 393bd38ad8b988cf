// Package vote implements the state machine that governs a user's vote on a
// price quote. For any (quote, user) pair the state is one of none, upvoted,
// or downvoted, derived from membership in the quote's vote sets — never
// stored separately.
//
// Allowed transitions:
//
//	none  + up      → upvoted
//	none  + down    → downvoted
//	none  + neutral → ErrNotVoted
//	up    + up      → ErrAlreadyUpvoted
//	up    + down    → downvoted (vote moves)
//	up    + neutral → none (undo)
//	down  + down    → ErrAlreadyDownvoted
//	down  + up      → upvoted (vote moves)
//	down  + neutral → none (undo)
//
// A rejected transition leaves the vote sets untouched.
package vote

import (
	"errors"

	"github.com/grocerybuddies/price-engine/internal/model"
)

var (
	// ErrInvalidDirection is returned for directions outside {-1, 0, 1}.
	ErrInvalidDirection = errors.New("vote: invalid direction")

	// ErrAlreadyUpvoted is returned when an upvoter upvotes again.
	ErrAlreadyUpvoted = errors.New("vote: user has already upvoted")

	// ErrAlreadyDownvoted is returned when a downvoter downvotes again.
	ErrAlreadyDownvoted = errors.New("vote: user has already downvoted")

	// ErrNotVoted is returned when a user undoes a vote they never cast.
	ErrNotVoted = errors.New("vote: user has not voted")
)

// Direction is a requested vote: up, down, or neutral (undo).
type Direction int

const (
	Down    Direction = -1
	Neutral Direction = 0
	Up      Direction = 1
)

// FromInt maps the wire encoding {-1, 0, 1} to a Direction.
func FromInt(i int) (Direction, error) {
	switch i {
	case -1, 0, 1:
		return Direction(i), nil
	}
	return 0, ErrInvalidDirection
}

// State is a user's current standing on a quote.
type State int

const (
	None State = iota
	Upvoted
	Downvoted
)

// StateOf derives the user's vote state from the quote's vote sets.
func StateOf(q *model.PriceQuote, user string) State {
	if contains(q.Upvotes, user) {
		return Upvoted
	}
	if contains(q.Downvotes, user) {
		return Downvoted
	}
	return None
}

// Apply mutates the quote's vote sets per the transition table. On error the
// quote is unchanged. The caller is responsible for persisting the item the
// quote belongs to.
func Apply(q *model.PriceQuote, user string, dir Direction) error {
	state := StateOf(q, user)

	switch dir {
	case Up:
		if state == Upvoted {
			return ErrAlreadyUpvoted
		}
		q.Upvotes = append(q.Upvotes, user)
		if state == Downvoted {
			q.Downvotes = remove(q.Downvotes, user)
		}
	case Down:
		if state == Downvoted {
			return ErrAlreadyDownvoted
		}
		q.Downvotes = append(q.Downvotes, user)
		if state == Upvoted {
			q.Upvotes = remove(q.Upvotes, user)
		}
	case Neutral:
		switch state {
		case Upvoted:
			q.Upvotes = remove(q.Upvotes, user)
		case Downvoted:
			q.Downvotes = remove(q.Downvotes, user)
		default:
			return ErrNotVoted
		}
	default:
		return ErrInvalidDirection
	}
	return nil
}

func contains(users []string, user string) bool {
	for _, u := range users {
		if u == user {
			return true
		}
	}
	return false
}

// remove drops the first occurrence of user, preserving order.
func remove(users []string, user string) []string {
	for i, u := range users {
		if u == user {
			return append(users[:i], users[i+1:]...)
		}
	}
	return users
}
