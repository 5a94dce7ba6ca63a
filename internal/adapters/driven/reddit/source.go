package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ContentSource = (*Source)(nil)

// Source implements ContentSource against the Reddit JSON API.
type Source struct {
	client *Client
}

// NewSource creates a ContentSource backed by the given client.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

// FetchListing retrieves thread summaries for a listing query.
func (s *Source) FetchListing(ctx context.Context, q driven.ListingQuery) ([]*domain.Thread, error) {
	if q.Subreddit == "" {
		return nil, fmt.Errorf("%w: subreddit is required", domain.ErrInvalidInput)
	}

	sort := string(q.Sort)
	if sort == "" {
		sort = string(driven.SortHot)
	}

	params := url.Values{"raw_json": {"1"}}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort == driven.SortTop && q.Time != "" {
		params.Set("t", string(q.Time))
	}

	path := fmt.Sprintf("/r/%s/%s.json?%s", url.PathEscape(q.Subreddit), sort, params.Encode())
	return s.fetchThreadListing(ctx, path)
}

// Search retrieves thread summaries matching a keyword query.
func (s *Source) Search(ctx context.Context, q driven.SearchQuery) ([]*domain.Thread, error) {
	if q.Subreddit == "" || q.Query == "" {
		return nil, fmt.Errorf("%w: subreddit and query are required", domain.ErrInvalidInput)
	}

	params := url.Values{
		"raw_json":    {"1"},
		"q":           {q.Query},
		"restrict_sr": {"1"},
	}
	if q.Sort != "" {
		params.Set("sort", string(q.Sort))
	}
	if q.Time != "" {
		params.Set("t", string(q.Time))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	path := fmt.Sprintf("/r/%s/search.json?%s", url.PathEscape(q.Subreddit), params.Encode())
	return s.fetchThreadListing(ctx, path)
}

func (s *Source) fetchThreadListing(ctx context.Context, path string) ([]*domain.Thread, error) {
	var envelope thing
	if err := s.client.get(ctx, path, &envelope); err != nil {
		return nil, err
	}

	var listing listingData
	if err := json.Unmarshal(envelope.Data, &listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	threads := make([]*domain.Thread, 0, len(listing.Children))
	for _, child := range listing.Children {
		if child.Kind != "t3" {
			continue
		}
		var link linkData
		if err := json.Unmarshal(child.Data, &link); err != nil {
			return nil, fmt.Errorf("decode thread: %w", err)
		}
		threads = append(threads, link.toThread())
	}

	return threads, nil
}

// FetchThread retrieves a thread together with its comment tree.
// The response is a two-element array: the thread listing, then the comments.
func (s *Source) FetchThread(ctx context.Context, threadID string) (*domain.Thread, []domain.TreeItem, error) {
	if threadID == "" {
		return nil, nil, fmt.Errorf("%w: thread ID is required", domain.ErrInvalidInput)
	}

	path := fmt.Sprintf("/comments/%s.json?raw_json=1", url.PathEscape(threadID))

	var envelopes []thing
	if err := s.client.get(ctx, path, &envelopes); err != nil {
		return nil, nil, err
	}
	if len(envelopes) < 2 {
		return nil, nil, fmt.Errorf("%w: unexpected thread response shape", domain.ErrSourceUnavailable)
	}

	var threadListing listingData
	if err := json.Unmarshal(envelopes[0].Data, &threadListing); err != nil {
		return nil, nil, fmt.Errorf("decode thread listing: %w", err)
	}
	if len(threadListing.Children) == 0 || threadListing.Children[0].Kind != "t3" {
		return nil, nil, fmt.Errorf("%w: thread %s", domain.ErrSourceNotFound, threadID)
	}

	var link linkData
	if err := json.Unmarshal(threadListing.Children[0].Data, &link); err != nil {
		return nil, nil, fmt.Errorf("decode thread: %w", err)
	}

	var commentListing listingData
	if err := json.Unmarshal(envelopes[1].Data, &commentListing); err != nil {
		return nil, nil, fmt.Errorf("decode comment listing: %w", err)
	}

	tree, err := parseTree(commentListing, link.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("parse comment tree: %w", err)
	}

	return link.toThread(), tree, nil
}

// ExpandMore resolves a pagination marker via the morechildren endpoint.
// The endpoint returns a flat list, so replies are stitched back into a
// tree using parent IDs. Children whose parent is outside the batch become
// roots of the returned slice.
func (s *Source) ExpandMore(ctx context.Context, threadID string, marker domain.MoreMarker) ([]domain.TreeItem, error) {
	if threadID == "" || len(marker.ChildIDs) == 0 {
		return nil, nil
	}

	params := url.Values{
		"api_type": {"json"},
		"raw_json": {"1"},
		"link_id":  {"t3_" + threadID},
		"children": {strings.Join(marker.ChildIDs, ",")},
	}
	path := "/api/morechildren.json?" + params.Encode()

	var result struct {
		JSON struct {
			Data struct {
				Things []thing `json:"things"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := s.client.get(ctx, path, &result); err != nil {
		return nil, err
	}

	return stitchFlatTree(result.JSON.Data.Things, threadID)
}

// stitchFlatTree rebuilds parent/child structure from a flat morechildren
// response.
func stitchFlatTree(things []thing, threadID string) ([]domain.TreeItem, error) {
	nodes := make(map[string]*domain.TreeNode)
	type flatItem struct {
		parentID string
		item     domain.TreeItem
	}
	var ordered []flatItem

	for _, t := range things {
		switch t.Kind {
		case "t1":
			var c commentData
			if err := json.Unmarshal(t.Data, &c); err != nil {
				return nil, fmt.Errorf("decode expanded comment: %w", err)
			}
			node := &domain.TreeNode{Unit: c.toUnit(threadID)}
			nodes["t1_"+c.ID] = node
			ordered = append(ordered, flatItem{c.ParentID, domain.NodeItem(node)})

		case "more":
			var m moreData
			if err := json.Unmarshal(t.Data, &m); err != nil {
				return nil, fmt.Errorf("decode expanded marker: %w", err)
			}
			if len(m.Children) == 0 {
				continue
			}
			ordered = append(ordered, flatItem{m.ParentID, domain.MoreItem(&domain.MoreMarker{
				ID:       m.ID,
				ParentID: m.ParentID,
				ChildIDs: m.Children,
			})})
		}
	}

	var roots []domain.TreeItem
	for _, fi := range ordered {
		if parent, ok := nodes[fi.parentID]; ok {
			parent.Children = append(parent.Children, fi.item)
		} else {
			roots = append(roots, fi.item)
		}
	}

	return roots, nil
}
