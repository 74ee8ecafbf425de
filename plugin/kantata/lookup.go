package kantata

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"

	errs "github.com/timeclerk/timeclerk/internal/errors"
)

// Name resolution by ID. These never fail: on any lookup problem they fall
// back to a deterministic "<Kind> <id>" label so a report is never aborted
// by a missing name.

// UserName resolves a user ID to a display name.
func (c *Client) UserName(ctx context.Context, id ID) string {
	key := "user:" + id.String()
	if name, ok := c.names.get(key); ok {
		return name
	}

	var resp listResponse
	if err := c.get(ctx, fmt.Sprintf("/users/%s.json", id), nil, &resp); err == nil {
		if user, ok := resp.Users[id]; ok {
			if name := user.displayName(); name != "" {
				c.names.set(key, name)
				return name
			}
		}
	} else {
		slog.Debug("user name lookup failed", "user_id", id, "error", err)
	}
	return fmt.Sprintf("User %s", id)
}

// WorkspaceName resolves a workspace ID to its title.
func (c *Client) WorkspaceName(ctx context.Context, id ID) string {
	key := "workspace:" + id.String()
	if name, ok := c.names.get(key); ok {
		return name
	}

	var resp listResponse
	if err := c.get(ctx, fmt.Sprintf("/workspaces/%s.json", id), nil, &resp); err == nil {
		if ws, ok := resp.Workspaces[id]; ok && ws.Title != "" {
			c.names.set(key, ws.Title)
			return ws.Title
		}
	} else {
		slog.Debug("workspace name lookup failed", "workspace_id", id, "error", err)
	}
	return fmt.Sprintf("Workspace %s", id)
}

// StoryName resolves a story ID to its title.
func (c *Client) StoryName(ctx context.Context, id ID) string {
	key := "story:" + id.String()
	if name, ok := c.names.get(key); ok {
		return name
	}

	var resp listResponse
	if err := c.get(ctx, fmt.Sprintf("/stories/%s.json", id), nil, &resp); err == nil {
		if story, ok := resp.Stories[id]; ok && story.Title != "" {
			c.names.set(key, story.Title)
			return story.Title
		}
	} else {
		slog.Debug("story name lookup failed", "story_id", id, "error", err)
	}
	return fmt.Sprintf("Story %s", id)
}

// Reverse lookup by name. The upstream search is a substring match; the
// first result in the upstream's own ordering wins. An empty result set is
// a NotFound error.

// FindUser searches users by name and returns the first match.
func (c *Client) FindUser(ctx context.Context, name string) (*UserMatch, error) {
	query := url.Values{"search": []string{name}}
	var resp listResponse
	if err := c.get(ctx, "/users.json", query, &resp); err != nil {
		return nil, err
	}

	id, ok := firstID(resp, func(r listResponse) []ID { return mapIDs(r.Users) })
	if !ok {
		return nil, notFoundf("no user found with name containing %q", name)
	}

	user := resp.Users[id]
	match := &UserMatch{ID: id, Name: user.displayName(), Email: user.Email}
	if match.Name == "" {
		match.Name = name
	}
	return match, nil
}

// FindWorkspace searches workspaces by name and returns the first match.
func (c *Client) FindWorkspace(ctx context.Context, name string) (*WorkspaceMatch, error) {
	query := url.Values{"search": []string{name}}
	var resp listResponse
	if err := c.get(ctx, "/workspaces.json", query, &resp); err != nil {
		return nil, err
	}

	id, ok := firstID(resp, func(r listResponse) []ID { return mapIDs(r.Workspaces) })
	if !ok {
		return nil, notFoundf("no workspace found with name containing %q", name)
	}

	ws := resp.Workspaces[id]
	match := &WorkspaceMatch{ID: id, Name: ws.Title, Description: ws.Description}
	if match.Name == "" {
		match.Name = name
	}
	return match, nil
}

// FindStory searches stories by name within a workspace and returns the
// first match. Story search always requires the workspace scope.
func (c *Client) FindStory(ctx context.Context, workspaceID ID, name string) (*StoryMatch, error) {
	query := url.Values{
		"workspace_id": []string{workspaceID.String()},
		"search":       []string{name},
	}
	var resp listResponse
	if err := c.get(ctx, "/stories.json", query, &resp); err != nil {
		return nil, err
	}

	id, ok := firstID(resp, func(r listResponse) []ID { return mapIDs(r.Stories) })
	if !ok {
		return nil, notFoundf("no story found with name containing %q in workspace %s", name, workspaceID)
	}

	story := resp.Stories[id]
	match := &StoryMatch{ID: id, Name: story.Title, WorkspaceID: workspaceID}
	if match.Name == "" {
		match.Name = name
	}
	return match, nil
}

// firstID picks the first record ID of a search response, preferring the
// ordered "results" array and falling back to the smallest ID.
func firstID(resp listResponse, ids func(listResponse) []ID) (ID, bool) {
	if len(resp.Results) > 0 {
		return resp.Results[0].ID, true
	}

	all := ids(resp)
	if len(all) == 0 {
		return 0, false
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all[0], true
}

func mapIDs[T any](m map[ID]T) []ID {
	ids := make([]ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids
}

func notFoundf(format string, args ...any) error {
	return errs.NotFound(fmt.Sprintf(format, args...))
}
