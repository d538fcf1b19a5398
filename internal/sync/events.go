package sync

import (
	"time"

	"poetryhub/internal/backend"
)

const (
	EventBackendSwitched = "backend.switched"
	EventPoemLiked       = "poem.liked"
	EventCommentAdded    = "comment.added"
	EventCommentDeleted  = "comment.deleted"
)

// BackendEvent announces that readers should re-fetch from a new backend.
type BackendEvent struct {
	Type       string     `json:"type"`
	Backend    backend.ID `json:"backend"`
	Previous   backend.ID `json:"previous"`
	Generation uint64     `json:"generation"`
	At         time.Time  `json:"at"`
}

// PoemEvent covers likes and comment changes on one poem.
type PoemEvent struct {
	Type      string     `json:"type"`
	Backend   backend.ID `json:"backend"`
	PoemID    string     `json:"poem_id"`
	Likes     int        `json:"likes,omitempty"`
	CommentID string     `json:"comment_id,omitempty"`
	Author    string     `json:"author,omitempty"`
	At        time.Time  `json:"at"`
}

func NewPoemEvent(typ string, id backend.ID, poemID string) PoemEvent {
	return PoemEvent{Type: typ, Backend: id, PoemID: poemID, At: time.Now().UTC()}
}
