package reddit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

// Reddit wraps every API object in a kind/data envelope ("thing").
// Kinds used here: Listing, t1 (comment), t3 (link), more.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listingData struct {
	Children []thing `json:"children"`
	After    string  `json:"after"`
}

// linkData is the t3 payload for a thread.
type linkData struct {
	ID          string  `json:"id"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Author      string  `json:"author"`
	Permalink   string  `json:"permalink"`
	Over18      bool    `json:"over_18"`
	Stickied    bool    `json:"stickied"`
	IsSelf      bool    `json:"is_self"`
	NumComments int     `json:"num_comments"`
	Score       int     `json:"score"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	CreatedUTC  float64 `json:"created_utc"`
}

// commentData is the t1 payload. Replies is either a nested listing thing
// or the empty string when there are none, so it stays raw here.
type commentData struct {
	ID        string          `json:"id"`
	LinkID    string          `json:"link_id"`
	ParentID  string          `json:"parent_id"`
	Body      string          `json:"body"`
	Author    string          `json:"author"`
	Permalink string          `json:"permalink"`
	Stickied  bool            `json:"stickied"`
	Replies   json.RawMessage `json:"replies"`
}

// moreData is the payload of a "more" pagination marker.
type moreData struct {
	ID       string   `json:"id"`
	ParentID string   `json:"parent_id"`
	Children []string `json:"children"`
}

const deletedAuthor = "[deleted]"

func (l *linkData) toThread() *domain.Thread {
	author := l.Author
	if author == deletedAuthor {
		author = ""
	}
	return &domain.Thread{
		ID:          l.ID,
		Subreddit:   l.Subreddit,
		Title:       l.Title,
		SelfText:    l.SelfText,
		Author:      author,
		Permalink:   l.Permalink,
		NSFW:        l.Over18,
		Stickied:    l.Stickied,
		IsSelf:      l.IsSelf,
		NumComments: l.NumComments,
		Score:       l.Score,
		UpvoteRatio: l.UpvoteRatio,
		CreatedAt:   time.Unix(int64(l.CreatedUTC), 0).UTC(),
	}
}

func (c *commentData) toUnit(threadID string) domain.ContentUnit {
	author := c.Author
	if author == deletedAuthor {
		author = ""
	}
	sourceID := threadID
	if sourceID == "" {
		sourceID = stripKindPrefix(c.LinkID)
	}
	return domain.ContentUnit{
		ID:        c.ID,
		SourceID:  sourceID,
		Body:      c.Body,
		Author:    author,
		Permalink: c.Permalink,
		Stickied:  c.Stickied,
	}
}

// stripKindPrefix turns a fullname like "t3_abc" into "abc".
func stripKindPrefix(fullname string) string {
	if i := strings.IndexByte(fullname, '_'); i >= 0 {
		return fullname[i+1:]
	}
	return fullname
}

// parseTree converts a listing of t1/more things into a domain reply tree.
func parseTree(listing listingData, threadID string) ([]domain.TreeItem, error) {
	items := make([]domain.TreeItem, 0, len(listing.Children))

	for _, child := range listing.Children {
		switch child.Kind {
		case "t1":
			var c commentData
			if err := json.Unmarshal(child.Data, &c); err != nil {
				return nil, err
			}

			node := &domain.TreeNode{Unit: c.toUnit(threadID)}
			if replies, ok := decodeReplies(c.Replies); ok {
				children, err := parseTree(replies, threadID)
				if err != nil {
					return nil, err
				}
				node.Children = children
			}
			items = append(items, domain.NodeItem(node))

		case "more":
			var m moreData
			if err := json.Unmarshal(child.Data, &m); err != nil {
				return nil, err
			}
			if len(m.Children) == 0 {
				continue
			}
			items = append(items, domain.MoreItem(&domain.MoreMarker{
				ID:       m.ID,
				ParentID: m.ParentID,
				ChildIDs: m.Children,
			}))
		}
	}

	return items, nil
}

// decodeReplies unwraps a comment's replies field. Reddit sends "" instead
// of an empty listing.
func decodeReplies(raw json.RawMessage) (listingData, bool) {
	if len(raw) == 0 || string(raw) == `""` || string(raw) == "null" {
		return listingData{}, false
	}

	var t thing
	if err := json.Unmarshal(raw, &t); err != nil || t.Kind != "Listing" {
		return listingData{}, false
	}

	var listing listingData
	if err := json.Unmarshal(t.Data, &listing); err != nil {
		return listingData{}, false
	}
	return listing, true
}
