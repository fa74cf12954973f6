package repository

import (
	"context"
	"database/sql"
	"sort"

	"github.com/safepath/safepath-server/internal/model"
)

// QuestionRepo stores Q&A questions, their answers, and the per-answer vote
// membership.  Answer votes use their own table keyed (answer_id, user_id)
// so a user holds at most one vote per answer; the vote_type column decides
// whether that membership counts toward upvotes or downvotes.
type QuestionRepo struct{ DB *sql.DB }

func NewQuestionRepo(db *sql.DB) *QuestionRepo { return &QuestionRepo{DB: db} }

// Create inserts a question and returns its ID.
func (r *QuestionRepo) Create(ctx context.Context, q *model.Question) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO questions (author_id, title, description, category) VALUES (?,?,?,?)",
		q.AuthorID, q.Title, q.Description, q.Category)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = uint64(id)
	return nil
}

// GetByID loads one question with its answers ranked for display.
func (r *QuestionRepo) GetByID(ctx context.Context, id uint64) (model.Question, error) {
	var q model.Question
	err := r.DB.QueryRowContext(ctx,
		`SELECT q.id, q.author_id, u.name, q.title, q.description, q.category, q.created_at, q.updated_at
		 FROM questions q JOIN users u ON u.id = q.author_id WHERE q.id=? LIMIT 1`, id).
		Scan(&q.ID, &q.AuthorID, &q.AuthorName, &q.Title, &q.Description, &q.Category, &q.CreatedAt, &q.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Question{}, ErrNotFound
	}
	if err != nil {
		return model.Question{}, err
	}
	q.Answers, err = r.answersFor(ctx, q.ID)
	return q, err
}

// List returns up to limit questions with their answers.  sort "upvoted"
// reproduces the historical ordering: primarily by the highest answer
// upvote count on the question, then by recency.  Note this ranks by the
// single best answer, not an aggregate over all answers; clients have come
// to rely on the resulting order.
func (r *QuestionRepo) List(ctx context.Context, sort string, limit int) ([]model.Question, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	order := "q.created_at DESC"
	if sort == "upvoted" {
		order = "COALESCE((SELECT MAX(a.upvotes) FROM answers a WHERE a.question_id = q.id), 0) DESC, q.updated_at DESC"
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT q.id, q.author_id, u.name, q.title, q.description, q.category, q.created_at, q.updated_at
		 FROM questions q JOIN users u ON u.id = q.author_id
		 ORDER BY `+order+` LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.AuthorID, &q.AuthorName, &q.Title, &q.Description,
			&q.Category, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Answers, err = r.answersFor(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	if sort == "upvoted" {
		sortUpvoted(out)
	}
	return out, nil
}

// sortUpvoted applies the final "upvoted" ordering in one place so the SQL
// pre-selection and the response agree: ranked by each question's single
// best answer, then recency.
func sortUpvoted(qs []model.Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		ui, uj := maxAnswerUpvotes(qs[i]), maxAnswerUpvotes(qs[j])
		if ui != uj {
			return ui > uj
		}
		return qs[i].UpdatedAt.After(qs[j].UpdatedAt)
	})
}

func maxAnswerUpvotes(q model.Question) int64 {
	var max int64
	for _, a := range q.Answers {
		if a.Upvotes > max {
			max = a.Upvotes
		}
	}
	return max
}

// answersFor loads a question's answers ordered accepted-first, then by
// descending upvotes.
func (r *QuestionRepo) answersFor(ctx context.Context, questionID uint64) ([]model.Answer, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT a.id, a.question_id, a.author_id, u.name, a.content, a.upvotes, a.downvotes, a.is_accepted, a.created_at, a.updated_at
		 FROM answers a JOIN users u ON u.id = a.author_id WHERE a.question_id=?
		 ORDER BY a.is_accepted DESC, a.upvotes DESC, a.created_at ASC`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Answer{}
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.AuthorName, &a.Content,
			&a.Upvotes, &a.Downvotes, &a.IsAccepted, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AddAnswer appends an answer to a question.
func (r *QuestionRepo) AddAnswer(ctx context.Context, a *model.Answer) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO answers (question_id, author_id, content) VALUES (?,?,?)",
		a.QuestionID, a.AuthorID, a.Content)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetAnswer loads one answer of a question, ErrNotFound when either the
// question or the answer is missing.
func (r *QuestionRepo) GetAnswer(ctx context.Context, questionID, answerID uint64) (model.Answer, error) {
	var a model.Answer
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, question_id, author_id, content, upvotes, downvotes, is_accepted, created_at, updated_at FROM answers WHERE id=? AND question_id=? LIMIT 1",
		answerID, questionID).
		Scan(&a.ID, &a.QuestionID, &a.AuthorID, &a.Content, &a.Upvotes, &a.Downvotes, &a.IsAccepted, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Answer{}, ErrNotFound
	}
	return a, err
}

// GetAnswerVote returns the user's standing vote on an answer ("upvote",
// "downvote") or the empty string when no vote exists.
func (r *QuestionRepo) GetAnswerVote(ctx context.Context, answerID, userID uint64) (string, error) {
	var vt string
	err := r.DB.QueryRowContext(ctx,
		"SELECT vote_type FROM answer_votes WHERE answer_id=? AND user_id=? LIMIT 1",
		answerID, userID).Scan(&vt)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return vt, err
}

// SetAnswerVote transitions the user's vote on an answer from one state to
// another and applies the matching counter deltas, all in one transaction.
// States are "" (no vote), "upvote" or "downvote".  A reader can therefore
// never observe membership without the tally delta or vice versa.  Counter
// decrements are floored at zero.
func (r *QuestionRepo) SetAnswerVote(ctx context.Context, answerID, userID uint64, from, to string) error {
	if from == to {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	switch {
	case from == "": // fresh vote
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO answer_votes (answer_id, user_id, vote_type) VALUES (?,?,?)",
			answerID, userID, to); err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateVote
			}
			return err
		}
	case to == "": // toggle-off
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM answer_votes WHERE answer_id=? AND user_id=?", answerID, userID); err != nil {
			return err
		}
	default: // switch sides
		if _, err := tx.ExecContext(ctx,
			"UPDATE answer_votes SET vote_type=? WHERE answer_id=? AND user_id=?", to, answerID, userID); err != nil {
			return err
		}
	}

	up, down := voteDelta(from, to)
	if _, err := tx.ExecContext(ctx,
		"UPDATE answers SET upvotes = GREATEST(CAST(upvotes AS SIGNED) + ?, 0), downvotes = GREATEST(CAST(downvotes AS SIGNED) + ?, 0) WHERE id=?",
		up, down, answerID); err != nil {
		return err
	}
	return tx.Commit()
}

// voteDelta converts a vote-state transition into counter deltas.
func voteDelta(from, to string) (up, down int) {
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

// Author returns the owning account of a question.
func (r *QuestionRepo) Author(ctx context.Context, questionID uint64) (uint64, error) {
	var author uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT author_id FROM questions WHERE id=? LIMIT 1", questionID).Scan(&author)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return author, err
}

// AcceptAnswer marks exactly one answer of a question as accepted.  The
// single UPDATE flips is_accepted on for the chosen answer and off for all
// its siblings, so at most one winner can ever be observed.
func (r *QuestionRepo) AcceptAnswer(ctx context.Context, questionID, answerID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE answers SET is_accepted = (id = ?) WHERE question_id = ?", answerID, questionID)
	return err
}
