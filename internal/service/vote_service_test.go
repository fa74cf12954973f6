package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safepath/safepath-server/internal/model"
	"github.com/safepath/safepath-server/internal/repository"
)

// fakeVoteStore mirrors the votes table plus the denormalized tallies.
type fakeVoteStore struct {
	nextID  uint64
	rows    map[string]*model.Vote // key: user:target:type
	targets map[string]bool        // key: type:target
	tallies map[string]*[2]int64   // key: type:target -> {up, down}

	failCreateOnce bool // simulate losing a concurrent first-vote race
}

func newFakeVoteStore() *fakeVoteStore {
	return &fakeVoteStore{
		nextID:  1,
		rows:    map[string]*model.Vote{},
		targets: map[string]bool{},
		tallies: map[string]*[2]int64{},
	}
}

func voteKey(userID, targetID uint64, targetType string) string {
	return fmt.Sprintf("%d:%d:%s", userID, targetID, targetType)
}

func targetKey(targetType string, id uint64) string {
	return fmt.Sprintf("%s:%d", targetType, id)
}

func (f *fakeVoteStore) addTarget(targetType string, id uint64) {
	f.targets[targetKey(targetType, id)] = true
	f.tallies[targetKey(targetType, id)] = &[2]int64{}
}

func (f *fakeVoteStore) Find(_ context.Context, userID, targetID uint64, targetType string) (model.Vote, error) {
	if v, ok := f.rows[voteKey(userID, targetID, targetType)]; ok {
		return *v, nil
	}
	return model.Vote{}, repository.ErrNotFound
}

func (f *fakeVoteStore) Create(_ context.Context, v model.Vote) error {
	key := voteKey(v.UserID, v.TargetID, v.TargetType)
	if _, ok := f.rows[key]; ok {
		return repository.ErrDuplicateVote
	}
	if f.failCreateOnce {
		// Another request slipped its row in between our Find and Create.
		f.failCreateOnce = false
		f.rows[key] = &model.Vote{ID: f.nextID, UserID: v.UserID, TargetID: v.TargetID,
			TargetType: v.TargetType, VoteType: model.VoteUp}
		f.nextID++
		tally := f.tallies[targetKey(v.TargetType, v.TargetID)]
		tally[0]++
		return repository.ErrDuplicateVote
	}
	stored := v
	stored.ID = f.nextID
	f.nextID++
	f.rows[key] = &stored
	return nil
}

func (f *fakeVoteStore) UpdateType(_ context.Context, id uint64, voteType string) error {
	for _, v := range f.rows {
		if v.ID == id {
			v.VoteType = voteType
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeVoteStore) Delete(_ context.Context, id uint64) error {
	for k, v := range f.rows {
		if v.ID == id {
			delete(f.rows, k)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeVoteStore) ListForTargets(_ context.Context, userID uint64, targetIDs []uint64, targetType string) (map[uint64]string, error) {
	out := map[uint64]string{}
	for _, id := range targetIDs {
		if v, ok := f.rows[voteKey(userID, id, targetType)]; ok {
			out[id] = v.VoteType
		}
	}
	return out, nil
}

func (f *fakeVoteStore) TargetExists(_ context.Context, targetType string, id uint64) (bool, error) {
	return f.targets[targetKey(targetType, id)], nil
}

func (f *fakeVoteStore) ApplyTallyDelta(_ context.Context, targetType string, id uint64, up, down int) error {
	tally := f.tallies[targetKey(targetType, id)]
	tally[0] += int64(up)
	tally[1] += int64(down)
	if tally[0] < 0 {
		tally[0] = 0
	}
	if tally[1] < 0 {
		tally[1] = 0
	}
	return nil
}

func (f *fakeVoteStore) Tally(_ context.Context, targetType string, id uint64) (int64, int64, error) {
	tally, ok := f.tallies[targetKey(targetType, id)]
	if !ok {
		return 0, 0, repository.ErrNotFound
	}
	return tally[0], tally[1], nil
}

// fakeQuestionStore mirrors questions, answers and the answer_votes table.
type fakeQuestionStore struct {
	authors map[uint64]uint64 // questionID -> authorID
	answers map[uint64]*model.Answer
	votes   map[uint64]map[uint64]string // answerID -> userID -> voteType
}

func newFakeQuestionStore() *fakeQuestionStore {
	return &fakeQuestionStore{
		authors: map[uint64]uint64{},
		answers: map[uint64]*model.Answer{},
		votes:   map[uint64]map[uint64]string{},
	}
}

func (f *fakeQuestionStore) addQuestion(id, author uint64) { f.authors[id] = author }

func (f *fakeQuestionStore) addAnswer(a model.Answer) {
	stored := a
	f.answers[a.ID] = &stored
	f.votes[a.ID] = map[uint64]string{}
}

func (f *fakeQuestionStore) GetAnswer(_ context.Context, questionID, answerID uint64) (model.Answer, error) {
	a, ok := f.answers[answerID]
	if !ok || a.QuestionID != questionID {
		return model.Answer{}, repository.ErrNotFound
	}
	return *a, nil
}

func (f *fakeQuestionStore) GetAnswerVote(_ context.Context, answerID, userID uint64) (string, error) {
	return f.votes[answerID][userID], nil
}

func (f *fakeQuestionStore) SetAnswerVote(_ context.Context, answerID, userID uint64, from, to string) error {
	if from == to {
		return nil
	}
	if to == "" {
		delete(f.votes[answerID], userID)
	} else {
		f.votes[answerID][userID] = to
	}
	a := f.answers[answerID]
	up, down := tallyDelta(from, to)
	a.Upvotes += int64(up)
	a.Downvotes += int64(down)
	if a.Upvotes < 0 {
		a.Upvotes = 0
	}
	if a.Downvotes < 0 {
		a.Downvotes = 0
	}
	return nil
}

func (f *fakeQuestionStore) Author(_ context.Context, questionID uint64) (uint64, error) {
	author, ok := f.authors[questionID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return author, nil
}

func (f *fakeQuestionStore) AcceptAnswer(_ context.Context, questionID, answerID uint64) error {
	for _, a := range f.answers {
		if a.QuestionID == questionID {
			a.IsAccepted = a.ID == answerID
		}
	}
	return nil
}

func newTestVotes() (*VoteService, *fakeVoteStore, *fakeQuestionStore) {
	votes := newFakeVoteStore()
	questions := newFakeQuestionStore()
	return NewVoteService(votes, questions), votes, questions
}

// ----- toggle model -----

func TestToggleAdd(t *testing.T) {
	svc, votes, _ := newTestVotes()
	votes.addTarget(model.TargetDiscussion, 10)

	res, err := svc.Toggle(context.Background(), 1, 10, model.TargetDiscussion, model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, VoteAdded, res.Outcome)
	assert.Equal(t, model.VoteUp, res.VoteType)
	assert.Equal(t, int64(1), res.Upvotes)
	assert.Equal(t, int64(0), res.Downvotes)
}

func TestToggleRemove(t *testing.T) {
	svc, votes, _ := newTestVotes()
	votes.addTarget(model.TargetDiscussion, 10)
	ctx := context.Background()

	_, err := svc.Toggle(ctx, 1, 10, model.TargetDiscussion, model.VoteUp)
	require.NoError(t, err)

	res, err := svc.Toggle(ctx, 1, 10, model.TargetDiscussion, model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, VoteRemoved, res.Outcome)
	assert.Empty(t, res.VoteType)
	assert.Equal(t, int64(0), res.Upvotes)
}

func TestToggleChange(t *testing.T) {
	svc, votes, _ := newTestVotes()
	votes.addTarget(model.TargetReply, 5)
	ctx := context.Background()

	_, err := svc.Toggle(ctx, 1, 5, model.TargetReply, model.VoteUp)
	require.NoError(t, err)

	res, err := svc.Toggle(ctx, 1, 5, model.TargetReply, model.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, VoteChanged, res.Outcome)
	assert.Equal(t, model.VoteDown, res.VoteType)
	assert.Equal(t, int64(0), res.Upvotes)
	assert.Equal(t, int64(1), res.Downvotes)
}

func TestToggleTwoUsersIndependent(t *testing.T) {
	svc, votes, _ := newTestVotes()
	votes.addTarget(model.TargetDiscussion, 10)
	ctx := context.Background()

	_, err := svc.Toggle(ctx, 1, 10, model.TargetDiscussion, model.VoteUp)
	require.NoError(t, err)
	res, err := svc.Toggle(ctx, 2, 10, model.TargetDiscussion, model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Upvotes)

	// User 1 removing their vote leaves user 2's standing.
	res, err = svc.Toggle(ctx, 1, 10, model.TargetDiscussion, model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Upvotes)
}

func TestToggleInvalidArguments(t *testing.T) {
	svc, votes, _ := newTestVotes()
	votes.addTarget(model.TargetDiscussion, 10)
	ctx := context.Background()

	_, err := svc.Toggle(ctx, 1, 10, "question", model.VoteUp)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Toggle(ctx, 1, 10, model.TargetDiscussion, "sideways")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestToggleTargetMissing(t *testing.T) {
	svc, _, _ := newTestVotes()

	_, err := svc.Toggle(context.Background(), 1, 99, model.TargetDiscussion, model.VoteUp)
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestToggleLostInsertRaceBecomesUpdate(t *testing.T) {
	svc, votes, _ := newTestVotes()
	votes.addTarget(model.TargetDiscussion, 10)
	votes.failCreateOnce = true

	// The racing request landed an upvote; ours was a downvote, so after the
	// duplicate-key retry it must be treated as a vote change.
	res, err := svc.Toggle(context.Background(), 1, 10, model.TargetDiscussion, model.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, VoteChanged, res.Outcome)
	assert.Equal(t, int64(0), res.Upvotes)
	assert.Equal(t, int64(1), res.Downvotes)
}

func TestGetVotesForTargets(t *testing.T) {
	svc, votes, _ := newTestVotes()
	votes.addTarget(model.TargetDiscussion, 10)
	votes.addTarget(model.TargetDiscussion, 11)
	ctx := context.Background()

	_, err := svc.Toggle(ctx, 1, 10, model.TargetDiscussion, model.VoteUp)
	require.NoError(t, err)

	got, err := svc.GetVotesForTargets(ctx, 1, []uint64{10, 11, 12}, model.TargetDiscussion)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]string{10: model.VoteUp}, got)
}

// ----- embedded answer model -----

func TestVoteAnswerAddAndToggleOff(t *testing.T) {
	svc, _, questions := newTestVotes()
	questions.addQuestion(1, 100)
	questions.addAnswer(model.Answer{ID: 50, QuestionID: 1, AuthorID: 2})
	ctx := context.Background()

	a, err := svc.VoteAnswer(ctx, 3, 1, 50, model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.Upvotes)

	// Same side again toggles off.
	a, err = svc.VoteAnswer(ctx, 3, 1, 50, model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.Upvotes)
}

func TestVoteAnswerSwitchSides(t *testing.T) {
	svc, _, questions := newTestVotes()
	questions.addQuestion(1, 100)
	questions.addAnswer(model.Answer{ID: 50, QuestionID: 1, AuthorID: 2})
	ctx := context.Background()

	_, err := svc.VoteAnswer(ctx, 3, 1, 50, model.VoteDown)
	require.NoError(t, err)

	// Upvoting removes the standing downvote in the same operation.
	a, err := svc.VoteAnswer(ctx, 3, 1, 50, model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.Upvotes)
	assert.Equal(t, int64(0), a.Downvotes)
}

func TestVoteAnswerMissing(t *testing.T) {
	svc, _, questions := newTestVotes()
	questions.addQuestion(1, 100)

	_, err := svc.VoteAnswer(context.Background(), 3, 1, 99, model.VoteUp)
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestVoteAnswerInvalidType(t *testing.T) {
	svc, _, questions := newTestVotes()
	questions.addQuestion(1, 100)
	questions.addAnswer(model.Answer{ID: 50, QuestionID: 1})

	_, err := svc.VoteAnswer(context.Background(), 3, 1, 50, "meh")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAcceptAnswerOwnerOnly(t *testing.T) {
	svc, _, questions := newTestVotes()
	questions.addQuestion(1, 100)
	questions.addAnswer(model.Answer{ID: 50, QuestionID: 1})

	err := svc.AcceptAnswer(context.Background(), 7, 1, 50)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAcceptAnswerSingleWinner(t *testing.T) {
	svc, _, questions := newTestVotes()
	questions.addQuestion(1, 100)
	questions.addAnswer(model.Answer{ID: 50, QuestionID: 1})
	questions.addAnswer(model.Answer{ID: 51, QuestionID: 1})
	ctx := context.Background()

	require.NoError(t, svc.AcceptAnswer(ctx, 100, 1, 50))
	require.NoError(t, svc.AcceptAnswer(ctx, 100, 1, 51))

	a50, _ := questions.GetAnswer(ctx, 1, 50)
	a51, _ := questions.GetAnswer(ctx, 1, 51)
	assert.False(t, a50.IsAccepted, "accepting a sibling must clear the old winner")
	assert.True(t, a51.IsAccepted)
}

func TestAcceptAnswerMissing(t *testing.T) {
	svc, _, questions := newTestVotes()
	questions.addQuestion(1, 100)

	err := svc.AcceptAnswer(context.Background(), 100, 1, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = svc.AcceptAnswer(context.Background(), 100, 2, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
