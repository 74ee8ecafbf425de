package agent

import (
	"encoding/json"

	"github.com/sashabaranov/go-openai"
)

// Tool endpoint names on the tool server.
const (
	toolQueryTimeEntries   = "query_time_entries"
	toolLogTimeEntry       = "time_entry"
	toolLogTimeEntryByName = "time_entry_by_name"
)

// writeTools are tools that mutate upstream state and require an explicit
// user confirmation before execution.
var writeTools = map[string]bool{
	toolLogTimeEntry:       true,
	toolLogTimeEntryByName: true,
}

// jsonSchema is a minimal OpenAI function-parameter schema.
type jsonSchema struct {
	Type                 string                 `json:"type"`
	Properties           map[string]*jsonSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Description          string                 `json:"description,omitempty"`
	AdditionalProperties bool                   `json:"additionalProperties"`
}

func (s *jsonSchema) MarshalJSON() ([]byte, error) {
	type alias jsonSchema
	return json.Marshal((*alias)(s))
}

// chatTools is the static registry exposed to the model.
var chatTools = []openai.Tool{
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolQueryTimeEntries,
			Description: "Query logged time entries for a time period, optionally filtered by user, project, or task name. Returns a formatted report.",
			Parameters: &jsonSchema{
				Type: "object",
				Properties: map[string]*jsonSchema{
					"time_period": {
						Type:        "string",
						Description: "Natural language period: today, yesterday, this week, last week, this month, last month, this year, a month name with year like 'june 2025', a single ISO date, or an ISO range like '2025-06-01 to 2025-06-15'.",
					},
					"user_name":    {Type: "string", Description: "Optional person name to filter by."},
					"project_name": {Type: "string", Description: "Optional project name to filter by."},
					"task_name":    {Type: "string", Description: "Optional task name to filter by; only applied when a project is also given."},
				},
				Required: []string{"time_period"},
			},
		},
	},
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolLogTimeEntry,
			Description: "Log a time entry using numeric IDs for the user and project.",
			Parameters: &jsonSchema{
				Type: "object",
				Properties: map[string]*jsonSchema{
					"user_id":    {Type: "integer", Description: "Numeric user id."},
					"project_id": {Type: "integer", Description: "Numeric project id."},
					"task_id":    {Type: "integer", Description: "Optional numeric task id."},
					"hours":      {Type: "number", Description: "Hours worked, must be positive."},
					"billable":   {Type: "boolean", Description: "Whether the time is billable."},
					"date":       {Type: "string", Description: "Date word (today, yesterday, tomorrow) or ISO date. Defaults to today."},
					"notes":      {Type: "string", Description: "Free-form notes."},
				},
				Required: []string{"user_id", "project_id", "hours"},
			},
		},
	},
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        toolLogTimeEntryByName,
			Description: "Log a time entry using display names instead of IDs. Names are resolved before writing; unknown names fail the call.",
			Parameters: &jsonSchema{
				Type: "object",
				Properties: map[string]*jsonSchema{
					"user_name":    {Type: "string", Description: "Person name, e.g. 'Jane Doe'."},
					"project_name": {Type: "string", Description: "Project name."},
					"task_name":    {Type: "string", Description: "Optional task name within the project."},
					"hours":        {Type: "number", Description: "Hours worked, must be positive."},
					"billable":     {Type: "boolean", Description: "Whether the time is billable."},
					"date":         {Type: "string", Description: "Date word or ISO date. Defaults to today."},
					"notes":        {Type: "string", Description: "Free-form notes."},
				},
				Required: []string{"user_name", "project_name", "hours"},
			},
		},
	},
}
