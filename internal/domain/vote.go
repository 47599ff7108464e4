package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// VoteType is the kind of helpfulness vote.
type VoteType string

// Vote types.
const (
	VoteHelpful   VoteType = "helpful"
	VoteUnhelpful VoteType = "unhelpful"
)

// Valid reports whether t is a known vote type.
func (t VoteType) Valid() bool {
	return t == VoteHelpful || t == VoteUnhelpful
}

// VoteTransition names the state change a vote caused.
type VoteTransition string

// Vote transitions.
const (
	VoteAdded   VoteTransition = "added"
	VoteRemoved VoteTransition = "removed"
	VoteChanged VoteTransition = "changed"
)

// ReviewVote is one user's vote on one review.
type ReviewVote struct {
	ID       uuid.UUID
	ReviewID uuid.UUID
	UserID   uuid.UUID
	Type     VoteType
	Audit
}

// VoteOutcome is the result of ApplyVote. Vote is the row to persist, or the
// row to delete when Transition is VoteRemoved.
type VoteOutcome struct {
	Transition VoteTransition
	Vote       ReviewVote
}

// ApplyVote runs the vote state machine for voter, whose current vote on the
// review is existing (nil for none):
//
//	none      + X -> X     (X counter +1, vote inserted)
//	X         + X -> none  (X counter -1, vote deleted)
//	X         + Y -> Y     (X -1, Y +1, vote type updated in place)
func (r *ProductReview) ApplyVote(voter uuid.UUID, existing *ReviewVote, vt VoteType, now time.Time) (VoteOutcome, error) {
	if !vt.Valid() {
		return VoteOutcome{}, apperrors.FieldInvalid("vote_type", "vote_type must be helpful or unhelpful")
	}
	if voter == r.UserID {
		return VoteOutcome{}, apperrors.FieldInvalid("review_id", "you cannot vote on your own review")
	}

	if existing == nil {
		v := ReviewVote{ID: uuid.New(), ReviewID: r.ID, UserID: voter, Type: vt}
		MarkCreated(&v.Audit, now)
		r.adjust(vt, +1)
		return VoteOutcome{Transition: VoteAdded, Vote: v}, nil
	}

	v := *existing
	if v.Type == vt {
		r.adjust(vt, -1)
		return VoteOutcome{Transition: VoteRemoved, Vote: v}, nil
	}

	r.adjust(v.Type, -1)
	r.adjust(vt, +1)
	v.Type = vt
	MarkUpdated(&v.Audit, now)
	return VoteOutcome{Transition: VoteChanged, Vote: v}, nil
}

// adjust moves a counter by delta, never below zero.
func (r *ProductReview) adjust(vt VoteType, delta int) {
	counter := &r.HelpfulCount
	if vt == VoteUnhelpful {
		counter = &r.UnhelpfulCount
	}
	*counter = max(*counter+delta, 0)
}
