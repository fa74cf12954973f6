package service

import (
	"context"
	"errors"

	"github.com/safepath/safepath-server/internal/model"
	"github.com/safepath/safepath-server/internal/repository"
)

// Toggle outcomes.
const (
	VoteAdded   = "added"
	VoteRemoved = "removed"
	VoteChanged = "changed"
)

// VoteStore is the persistence surface for discussion/reply votes.
// Implemented by repository.VoteRepo.
type VoteStore interface {
	Find(ctx context.Context, userID, targetID uint64, targetType string) (model.Vote, error)
	Create(ctx context.Context, v model.Vote) error
	UpdateType(ctx context.Context, id uint64, voteType string) error
	Delete(ctx context.Context, id uint64) error
	ListForTargets(ctx context.Context, userID uint64, targetIDs []uint64, targetType string) (map[uint64]string, error)
	TargetExists(ctx context.Context, targetType string, id uint64) (bool, error)
	ApplyTallyDelta(ctx context.Context, targetType string, id uint64, up, down int) error
	Tally(ctx context.Context, targetType string, id uint64) (int64, int64, error)
}

// QuestionStore is the Q&A persistence surface the vote service needs for
// answer voting and accepting. Implemented by repository.QuestionRepo.
type QuestionStore interface {
	GetAnswer(ctx context.Context, questionID, answerID uint64) (model.Answer, error)
	GetAnswerVote(ctx context.Context, answerID, userID uint64) (string, error)
	SetAnswerVote(ctx context.Context, answerID, userID uint64, from, to string) error
	Author(ctx context.Context, questionID uint64) (uint64, error)
	AcceptAnswer(ctx context.Context, questionID, answerID uint64) error
}

// VoteResult is the snapshot returned after a toggle, letting clients update
// their UI without a second fetch. Counts can be momentarily stale under
// concurrent voting but never negative.
type VoteResult struct {
	Outcome   string `json:"outcome"`
	VoteType  string `json:"vote_type,omitempty"`
	Upvotes   int64  `json:"upvotes"`
	Downvotes int64  `json:"downvotes"`
}

// VoteService implements both vote models: the toggle model for discussions
// and replies, and the mutually-exclusive embedded model for Q&A answers.
type VoteService struct {
	Votes     VoteStore
	Questions QuestionStore
}

func NewVoteService(votes VoteStore, questions QuestionStore) *VoteService {
	return &VoteService{Votes: votes, Questions: questions}
}

// Toggle applies one vote action from a user to a discussion or reply.
// Repeating the same vote removes it, voting the other way flips it, and a
// first vote adds it. The result carries the outcome plus fresh tallies.
func (s *VoteService) Toggle(ctx context.Context, userID, targetID uint64, targetType, voteType string) (VoteResult, error) {
	if targetType != model.TargetDiscussion && targetType != model.TargetReply {
		return VoteResult{}, ErrInvalidArgument
	}
	if voteType != model.VoteUp && voteType != model.VoteDown {
		return VoteResult{}, ErrInvalidArgument
	}
	ok, err := s.Votes.TargetExists(ctx, targetType, targetID)
	if err != nil {
		return VoteResult{}, err
	}
	if !ok {
		return VoteResult{}, ErrTargetNotFound
	}

	outcome, kept, err := s.toggleRow(ctx, userID, targetID, targetType, voteType)
	if err != nil {
		return VoteResult{}, err
	}

	up, down, err := s.Votes.Tally(ctx, targetType, targetID)
	if err != nil {
		return VoteResult{}, err
	}
	return VoteResult{Outcome: outcome, VoteType: kept, Upvotes: up, Downvotes: down}, nil
}

// toggleRow mutates the vote row and counters and reports the outcome along
// with the vote type left standing ("" after a removal).
func (s *VoteService) toggleRow(ctx context.Context, userID, targetID uint64, targetType, voteType string) (string, string, error) {
	existing, err := s.Votes.Find(ctx, userID, targetID, targetType)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		err = s.Votes.Create(ctx, model.Vote{
			UserID: userID, TargetID: targetID, TargetType: targetType, VoteType: voteType,
		})
		if errors.Is(err, repository.ErrDuplicateVote) {
			// Lost a concurrent first-vote race: a row now exists, so
			// re-read and fall through to the update/remove paths.
			existing, err = s.Votes.Find(ctx, userID, targetID, targetType)
			if err != nil {
				return "", "", err
			}
			break
		}
		if err != nil {
			return "", "", err
		}
		up, down := tallyDelta("", voteType)
		return VoteAdded, voteType, s.Votes.ApplyTallyDelta(ctx, targetType, targetID, up, down)
	case err != nil:
		return "", "", err
	}

	if existing.VoteType == voteType {
		if err := s.Votes.Delete(ctx, existing.ID); err != nil {
			return "", "", err
		}
		up, down := tallyDelta(voteType, "")
		return VoteRemoved, "", s.Votes.ApplyTallyDelta(ctx, targetType, targetID, up, down)
	}

	if err := s.Votes.UpdateType(ctx, existing.ID, voteType); err != nil {
		return "", "", err
	}
	up, down := tallyDelta(existing.VoteType, voteType)
	return VoteChanged, voteType, s.Votes.ApplyTallyDelta(ctx, targetType, targetID, up, down)
}

// GetVotesForTargets returns the caller's standing votes over a batch of
// targets, as targetID -> vote type. Pure read, no side effects.
func (s *VoteService) GetVotesForTargets(ctx context.Context, userID uint64, targetIDs []uint64, targetType string) (map[uint64]string, error) {
	if targetType != model.TargetDiscussion && targetType != model.TargetReply {
		return nil, ErrInvalidArgument
	}
	return s.Votes.ListForTargets(ctx, userID, targetIDs, targetType)
}

// VoteAnswer applies one vote action from a user to a Q&A answer under the
// mutually-exclusive model: a user is on the up side, the down side, or
// neither. Returns the answer as it stands after the transition.
func (s *VoteService) VoteAnswer(ctx context.Context, userID, questionID, answerID uint64, voteType string) (model.Answer, error) {
	if voteType != model.VoteUp && voteType != model.VoteDown {
		return model.Answer{}, ErrInvalidArgument
	}
	if _, err := s.Questions.GetAnswer(ctx, questionID, answerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Answer{}, ErrTargetNotFound
		}
		return model.Answer{}, err
	}

	from, err := s.Questions.GetAnswerVote(ctx, answerID, userID)
	if err != nil {
		return model.Answer{}, err
	}
	to := voteType
	if from == voteType { // same side again toggles the vote off
		to = ""
	}
	if err := s.Questions.SetAnswerVote(ctx, answerID, userID, from, to); err != nil {
		if errors.Is(err, repository.ErrDuplicateVote) {
			// Concurrent fresh votes collided; the winner's row stands and
			// this attempt becomes a no-op.
			return s.Questions.GetAnswer(ctx, questionID, answerID)
		}
		return model.Answer{}, err
	}
	return s.Questions.GetAnswer(ctx, questionID, answerID)
}

// AcceptAnswer marks one answer of a question as the accepted one. Only the
// question's author may accept, and accepting a different answer later moves
// the flag rather than adding a second winner.
func (s *VoteService) AcceptAnswer(ctx context.Context, userID, questionID, answerID uint64) error {
	author, err := s.Questions.Author(ctx, questionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return err
	}
	if author != userID {
		return ErrForbidden
	}
	if _, err := s.Questions.GetAnswer(ctx, questionID, answerID); err != nil {
		return err
	}
	return s.Questions.AcceptAnswer(ctx, questionID, answerID)
}

// tallyDelta converts a vote-state transition into counter deltas.
func tallyDelta(from, to string) (up, down int) {
	if from == model.VoteUp {
		up--
	}
	if from == model.VoteDown {
		down--
	}
	if to == model.VoteUp {
		up++
	}
	if to == model.VoteDown {
		down++
	}
	return up, down
}
