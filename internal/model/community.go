package model

import "time"

// Vote target and kind enumerations shared by the community endpoints and
// the voting service.  Stored as strings in the `votes` table.
const (
	TargetDiscussion = "discussion"
	TargetReply      = "reply"

	VoteUp   = "upvote"
	VoteDown = "downvote"
)

// Discussion is a community forum thread, one row in `discussions`.
// The upvote/downvote counters are denormalized tallies kept in sync with
// the `votes` table by the voting service; they are never recomputed on
// read.
type Discussion struct {
	ID         uint64    `json:"id"`
	AuthorID   uint64    `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"` // joined from users
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	Tags       []string  `json:"tags"`
	ImageURL   string    `json:"image_url,omitempty"`
	Lat        *float64  `json:"lat,omitempty"`
	Lng        *float64  `json:"lng,omitempty"`
	Upvotes    int64     `json:"upvotes"`
	Downvotes  int64     `json:"downvotes"`
	Views      int64     `json:"views"`
	ReplyCount int64     `json:"reply_count"`
	IsPinned   bool      `json:"is_pinned"`
	IsClosed   bool      `json:"is_closed"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Reply is a single response inside a discussion thread (`replies` table).
type Reply struct {
	ID           uint64    `json:"id"`
	DiscussionID uint64    `json:"discussion_id"`
	AuthorID     uint64    `json:"author_id"`
	AuthorName   string    `json:"author_name,omitempty"`
	Content      string    `json:"content"`
	Upvotes      int64     `json:"upvotes"`
	Downvotes    int64     `json:"downvotes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Vote is one user's vote on a discussion or reply (`votes` table).
// At most one row exists per (user, target, target type); the database
// enforces this with a unique index, which is what makes concurrent
// first-votes race-safe.
type Vote struct {
	ID         uint64    `json:"id"`
	UserID     uint64    `json:"user_id"`
	TargetID   uint64    `json:"target_id"`
	TargetType string    `json:"target_type"`
	VoteType   string    `json:"vote_type"`
	CreatedAt  time.Time `json:"created_at"`
}

// Category describes a selectable discussion category for the client UI.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}
