package domain

import (
	"regexp"
	"strings"
	"time"
)

// removal placeholders used by the content source for moderated bodies.
var removalPlaceholders = map[string]bool{
	"[removed]": true,
	"[deleted]": true,
}

// ContentUnit is one discrete piece of source text (a comment or a post body).
// Produced by the content source; read-only to the core.
type ContentUnit struct {
	ID        string `json:"id"`
	SourceID  string `json:"source_id"` // thread the unit belongs to
	Body      string `json:"body"`
	Author    string `json:"author,omitempty"` // empty means anonymized/deleted
	Permalink string `json:"permalink,omitempty"`
	Stickied  bool   `json:"stickied"`
}

// Removed reports whether the body is a moderation placeholder.
func (u *ContentUnit) Removed() bool {
	return removalPlaceholders[u.Body]
}

// HasAuthor reports whether the unit still has an attributed author.
func (u *ContentUnit) HasAuthor() bool {
	return u.Author != ""
}

// Thread is a top-level content source entry: a title plus an optional
// self-text body and a reply tree.
type Thread struct {
	ID          string    `json:"id"`
	Subreddit   string    `json:"subreddit"`
	Title       string    `json:"title"`
	SelfText    string    `json:"selftext"`
	Author      string    `json:"author,omitempty"`
	Permalink   string    `json:"permalink"`
	NSFW        bool      `json:"nsfw"`
	Stickied    bool      `json:"stickied"`
	IsSelf      bool      `json:"is_self"`
	NumComments int       `json:"num_comments"`
	Score       int       `json:"score"`
	UpvoteRatio float64   `json:"upvote_ratio"`
	CreatedAt   time.Time `json:"created_at"`
}

var bracketTag = regexp.MustCompile(`\[[^\]]*\]`)

// CleanTitle returns the title with bracketed tags removed.
func (t *Thread) CleanTitle() string {
	return strings.TrimSpace(bracketTag.ReplaceAllString(t.Title, ""))
}

// TreeItem is one entry in a reply tree: either a resolved node or a
// pagination marker for children not yet fetched. Exactly one field is set.
type TreeItem struct {
	Node *TreeNode
	More *MoreMarker
}

// TreeNode is a content unit plus its (possibly partial) children.
type TreeNode struct {
	Unit     ContentUnit
	Children []TreeItem
}

// MoreMarker stands in for children that require another fetch.
type MoreMarker struct {
	ID       string
	ParentID string
	ChildIDs []string
}

// NodeItem wraps a node as a TreeItem.
func NodeItem(n *TreeNode) TreeItem { return TreeItem{Node: n} }

// MoreItem wraps a pagination marker as a TreeItem.
func MoreItem(m *MoreMarker) TreeItem { return TreeItem{More: m} }
