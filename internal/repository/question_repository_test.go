package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/safepath/safepath-server/internal/model"
)

func TestVoteDelta(t *testing.T) {
	cases := []struct {
		from, to string
		up, down int
	}{
		{"", model.VoteUp, 1, 0},
		{"", model.VoteDown, 0, 1},
		{model.VoteUp, "", -1, 0},
		{model.VoteDown, "", 0, -1},
		{model.VoteUp, model.VoteDown, -1, 1},
		{model.VoteDown, model.VoteUp, 1, -1},
	}
	for _, tc := range cases {
		up, down := voteDelta(tc.from, tc.to)
		assert.Equal(t, tc.up, up, "from=%q to=%q", tc.from, tc.to)
		assert.Equal(t, tc.down, down, "from=%q to=%q", tc.from, tc.to)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(errors.New("Error 1062 (23000): Duplicate entry '1-2-discussion' for key 'uq_votes'")))
	assert.False(t, isDuplicateKey(errors.New("Error 1452: foreign key constraint fails")))
	assert.False(t, isDuplicateKey(nil))
}

func TestTallyTable(t *testing.T) {
	table, err := tallyTable(model.TargetDiscussion)
	assert.NoError(t, err)
	assert.Equal(t, "discussions", table)

	table, err = tallyTable(model.TargetReply)
	assert.NoError(t, err)
	assert.Equal(t, "replies", table)

	_, err = tallyTable("answer")
	assert.Error(t, err)
}

// The "upvoted" listing ranks questions by the highest upvote count on any
// single answer, not by an aggregate over all answers. Clients depend on
// this order, so the fixture below pins it.
func TestSortUpvoted(t *testing.T) {
	day := 24 * time.Hour
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	qs := []model.Question{
		{ID: 1, UpdatedAt: base, Answers: []model.Answer{
			{Upvotes: 2}, {Upvotes: 5},
		}},
		{ID: 2, UpdatedAt: base.Add(day), Answers: []model.Answer{
			{Upvotes: 4}, {Upvotes: 4}, {Upvotes: 4},
		}},
		{ID: 3, UpdatedAt: base.Add(2 * day)}, // no answers yet
		{ID: 4, UpdatedAt: base.Add(3 * day), Answers: []model.Answer{
			{Upvotes: 5},
		}},
	}
	sortUpvoted(qs)

	// Question 2 has the larger total (12) but a best answer of only 4, so
	// it ranks below both questions whose best answer has 5. Ties break by
	// recency, newest first.
	var order []uint64
	for _, q := range qs {
		order = append(order, q.ID)
	}
	assert.Equal(t, []uint64{4, 1, 2, 3}, order)
}
