package tms

import "time"

// createdAtLayout is the timestamp format the API uses for created_at.
const createdAtLayout = "2006-01-02T15:04:05Z"

// Project is a TMS project reference. The ID is opaque and immutable
// once fetched; Name is the human-readable label.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Key is a translation key reference. Keys are matched across projects
// by exact, case-sensitive Name.
type Key struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// KeyLinks is the link listing for one parent key.
type KeyLinks struct {
	Children []Key `json:"children"`
}

// KeyLinkRequest creates links from a parent key to child keys.
type KeyLinkRequest struct {
	ChildKeyIDs []string `json:"child_key_ids"`
}

// User is a project membership record.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

// CreatedTime parses the record's creation timestamp. A missing or
// malformed value is a per-record validation failure, not a run error.
func (u User) CreatedTime() (time.Time, error) {
	return time.Parse(createdAtLayout, u.CreatedAt)
}
