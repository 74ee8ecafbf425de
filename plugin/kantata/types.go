package kantata

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// ID is a Kantata record identifier. The upstream API is inconsistent about
// representing IDs as JSON numbers, quoted numbers, or object keys, so the
// wire forms are normalized into a plain int64 here.
type ID int64

// UnmarshalJSON accepts numeric, quoted-numeric, and null ID values.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*id = ID(n)
	return nil
}

// UnmarshalText decodes IDs used as JSON object keys.
func (id *ID) UnmarshalText(text []byte) error {
	n, err := strconv.ParseInt(string(text), 10, 64)
	if err != nil {
		return err
	}
	*id = ID(n)
	return nil
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// TimeEntry is one recorded unit of worked time.
type TimeEntry struct {
	ID            ID
	UserID        ID
	WorkspaceID   ID
	StoryID       ID // zero when the entry has no task
	DatePerformed time.Time
	Minutes       int
	Billable      bool
	Notes         string
}

// Hours converts the entry duration to fractional hours.
func (e TimeEntry) Hours() float64 {
	return float64(e.Minutes) / 60.0
}

// timeEntryJSON is the upstream wire shape of a time entry.
type timeEntryJSON struct {
	ID            ID     `json:"id"`
	UserID        ID     `json:"user_id"`
	WorkspaceID   ID     `json:"workspace_id"`
	StoryID       ID     `json:"story_id"`
	DatePerformed string `json:"date_performed"`
	TimeInMinutes int    `json:"time_in_minutes"`
	Billable      bool   `json:"billable"`
	Notes         string `json:"notes"`
}

func (w timeEntryJSON) toEntry() TimeEntry {
	entry := TimeEntry{
		ID:          w.ID,
		UserID:      w.UserID,
		WorkspaceID: w.WorkspaceID,
		StoryID:     w.StoryID,
		Minutes:     w.TimeInMinutes,
		Billable:    w.Billable,
		Notes:       w.Notes,
	}
	if d, err := time.Parse("2006-01-02", w.DatePerformed); err == nil {
		entry.DatePerformed = d
	}
	return entry
}

// userJSON is the upstream wire shape of a user record.
type userJSON struct {
	ID          ID     `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email_address"`
}

// displayName picks the best available name field.
// Preference: first+last > name > full_name > display_name.
func (u userJSON) displayName() string {
	if first, last := trim(u.FirstName), trim(u.LastName); first != "" && last != "" {
		return first + " " + last
	}
	if u.Name != "" {
		return u.Name
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.DisplayName
}

// workspaceJSON is the upstream wire shape of a workspace (project) record.
type workspaceJSON struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// storyJSON is the upstream wire shape of a story (task) record.
type storyJSON struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	WorkspaceID ID     `json:"workspace_id"`
}

// resultRef is one element of the ordered "results" array present in list
// responses. It is the only place the upstream exposes result ordering, since
// the record payloads themselves arrive as ID-keyed objects.
type resultRef struct {
	Key string `json:"key"`
	ID  ID     `json:"id"`
}

// listResponse is the common envelope of Kantata list endpoints.
type listResponse struct {
	Count       int                  `json:"count"`
	Results     []resultRef          `json:"results"`
	TimeEntries map[ID]timeEntryJSON `json:"time_entries"`
	Users       map[ID]userJSON      `json:"users"`
	Workspaces  map[ID]workspaceJSON `json:"workspaces"`
	Stories     map[ID]storyJSON     `json:"stories"`
}

// UserMatch is a user found by name search.
type UserMatch struct {
	ID    ID     `json:"user_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// WorkspaceMatch is a workspace found by name search.
type WorkspaceMatch struct {
	ID          ID     `json:"workspace_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StoryMatch is a story found by name search within a workspace.
type StoryMatch struct {
	ID          ID     `json:"story_id"`
	Name        string `json:"name"`
	WorkspaceID ID     `json:"workspace_id"`
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
