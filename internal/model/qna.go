package model

import "time"

// Question is a Q&A thread (`questions` table).  Answers are loaded with
// the question and shaped for display: accepted answer first, then by
// descending upvotes.
type Question struct {
	ID          uint64    `json:"id"`
	AuthorID    uint64    `json:"author_id"`
	AuthorName  string    `json:"author_name,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Answers     []Answer  `json:"answers"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Answer is one answer to a question (`answers` table).  Unlike discussion
// votes, answer votes are mutually exclusive per user: upvoting removes any
// standing downvote by the same user and vice versa.  The membership itself
// lives in `answer_votes`; the counters here are the denormalized tallies.
// At most one answer per question carries IsAccepted.
type Answer struct {
	ID         uint64    `json:"id"`
	QuestionID uint64    `json:"question_id"`
	AuthorID   uint64    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Content    string    `json:"content"`
	Upvotes    int64     `json:"upvotes"`
	Downvotes  int64     `json:"downvotes"`
	IsAccepted bool      `json:"is_accepted"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
