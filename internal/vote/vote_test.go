package vote

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/grocerybuddies/price-engine/internal/model"
)

func newQuote() *model.PriceQuote {
	return &model.PriceQuote{
		ID:        "q1",
		User:      "reporter",
		Price:     decimal.NewFromFloat(4.99),
		Upvotes:   []string{},
		Downvotes: []string{},
	}
}

// checkInvariant fails the test if the user sits in both vote sets.
func checkInvariant(t *testing.T, q *model.PriceQuote, user string) {
	t.Helper()
	up := StateOf(q, user) == Upvoted
	in := false
	for _, u := range q.Downvotes {
		if u == user {
			in = true
		}
	}
	if up && in {
		t.Fatalf("user %q in both upvotes and downvotes", user)
	}
}

// --- Direction parsing ---

func TestFromInt_ValidDirections(t *testing.T) {
	for _, i := range []int{-1, 0, 1} {
		dir, err := FromInt(i)
		if err != nil {
			t.Errorf("FromInt(%d): unexpected error %v", i, err)
		}
		if int(dir) != i {
			t.Errorf("FromInt(%d) = %d", i, dir)
		}
	}
}

func TestFromInt_InvalidDirections(t *testing.T) {
	for _, i := range []int{-2, 2, 5, 100} {
		if _, err := FromInt(i); err != ErrInvalidDirection {
			t.Errorf("FromInt(%d): expected ErrInvalidDirection, got %v", i, err)
		}
	}
}

// --- Transition table ---

func TestApply_NoneToUp(t *testing.T) {
	q := newQuote()
	if err := Apply(q, "alice", Up); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if StateOf(q, "alice") != Upvoted {
		t.Error("expected alice upvoted")
	}
}

func TestApply_NoneToDown(t *testing.T) {
	q := newQuote()
	if err := Apply(q, "alice", Down); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if StateOf(q, "alice") != Downvoted {
		t.Error("expected alice downvoted")
	}
}

func TestApply_UndoWithoutVote(t *testing.T) {
	q := newQuote()
	if err := Apply(q, "alice", Neutral); err != ErrNotVoted {
		t.Errorf("expected ErrNotVoted, got %v", err)
	}
}

func TestApply_DoubleUpvoteRejected(t *testing.T) {
	q := newQuote()
	Apply(q, "alice", Up)
	if err := Apply(q, "alice", Up); err != ErrAlreadyUpvoted {
		t.Errorf("expected ErrAlreadyUpvoted, got %v", err)
	}
	// Idempotent failure: no duplicate entries.
	if len(q.Upvotes) != 1 {
		t.Errorf("expected 1 upvote, got %d", len(q.Upvotes))
	}
}

func TestApply_DoubleDownvoteRejected(t *testing.T) {
	q := newQuote()
	Apply(q, "alice", Down)
	if err := Apply(q, "alice", Down); err != ErrAlreadyDownvoted {
		t.Errorf("expected ErrAlreadyDownvoted, got %v", err)
	}
	if len(q.Downvotes) != 1 {
		t.Errorf("expected 1 downvote, got %d", len(q.Downvotes))
	}
}

func TestApply_UpToDownMoves(t *testing.T) {
	q := newQuote()
	Apply(q, "alice", Up)
	if err := Apply(q, "alice", Down); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if StateOf(q, "alice") != Downvoted {
		t.Error("expected alice downvoted after switch")
	}
	if len(q.Upvotes) != 0 {
		t.Errorf("expected empty upvotes, got %v", q.Upvotes)
	}
	checkInvariant(t, q, "alice")
}

func TestApply_DownToUpMoves(t *testing.T) {
	q := newQuote()
	Apply(q, "alice", Down)
	if err := Apply(q, "alice", Up); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if StateOf(q, "alice") != Upvoted {
		t.Error("expected alice upvoted after switch")
	}
	if len(q.Downvotes) != 0 {
		t.Errorf("expected empty downvotes, got %v", q.Downvotes)
	}
	checkInvariant(t, q, "alice")
}

func TestApply_UndoUpvote(t *testing.T) {
	q := newQuote()
	Apply(q, "alice", Up)
	if err := Apply(q, "alice", Neutral); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if StateOf(q, "alice") != None {
		t.Error("expected alice back to none")
	}
}

// --- Round trip and multi-user behavior ---

func TestApply_UpDownUndoRoundTrip(t *testing.T) {
	q := newQuote()
	Apply(q, "bob", Up) // unrelated voter must be untouched

	if err := Apply(q, "alice", Up); err != nil {
		t.Fatal(err)
	}
	if err := Apply(q, "alice", Down); err != nil {
		t.Fatal(err)
	}
	if err := Apply(q, "alice", Neutral); err != nil {
		t.Fatal(err)
	}

	if StateOf(q, "alice") != None {
		t.Error("round trip should leave alice with no vote")
	}
	if StateOf(q, "bob") != Upvoted {
		t.Error("bob's vote should survive alice's round trip")
	}
	if len(q.Upvotes) != 1 || len(q.Downvotes) != 0 {
		t.Errorf("vote sets not restored: up=%v down=%v", q.Upvotes, q.Downvotes)
	}
}

func TestApply_ArbitrarySequenceKeepsSetsDisjoint(t *testing.T) {
	q := newQuote()
	seq := []Direction{Up, Down, Down, Up, Neutral, Neutral, Down, Up, Up}
	for _, dir := range seq {
		Apply(q, "alice", dir) // errors expected for some steps
		checkInvariant(t, q, "alice")
	}
}
