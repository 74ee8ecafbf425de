// Package agent implements a conversational front end for the time-entry
// tool server, driven by OpenAI function calling.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// maxToolRounds bounds tool-call loops within one Send.
const maxToolRounds = 8

const systemPrompt = `You are a time-tracking assistant. You help people log
time entries and query logged time through the available tools.

Rules:
- Use query_time_entries for any question about logged time.
- Use time_entry_by_name when the user gives names, time_entry when the
  user gives numeric IDs.
- Never invent IDs, names, or hours. Ask for anything that is missing.
- Dates accept today, yesterday, tomorrow, or an ISO date; time periods
  additionally accept this week, last week, this month, last month,
  this year, a month with year, or an ISO date range.
- Report tool output faithfully. When a query result is marked partial,
  say so.`

// Agent drives chat sessions against an OpenAI-compatible model.
type Agent struct {
	client *openai.Client
	model  string
	tools  *ToolClient
	logger *slog.Logger
}

// Config holds the agent configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// ServerURL is the base URL of the tool server.
	ServerURL string
}

func New(cfg Config, logger *slog.Logger) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("agent requires an OpenAI API key")
	}
	if cfg.ServerURL == "" {
		return nil, errors.New("agent requires the tool server URL")
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Agent{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		tools:  NewToolClient(cfg.ServerURL),
		logger: logger,
	}, nil
}

// Reply is one agent turn. When NeedsConfirmation is set the caller must
// answer with yes, no, or a correction before the pending write executes.
type Reply struct {
	Text              string
	NeedsConfirmation bool
	Preview           string
}

// Session is one conversation. Not safe for concurrent use.
type Session struct {
	ID string

	agent    *Agent
	messages []openai.ChatCompletionMessage
	pending  *openai.ToolCall
}

func (a *Agent) NewSession() *Session {
	return &Session{
		ID:    shortuuid.New(),
		agent: a,
		messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		},
	}
}

// Send processes one user input. If a write confirmation is pending the
// input is interpreted as the confirmation answer.
func (s *Session) Send(ctx context.Context, input string) (*Reply, error) {
	if s.pending != nil {
		return s.resolveConfirmation(ctx, input)
	}
	s.messages = append(s.messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: input,
	})
	return s.run(ctx)
}

// resolveConfirmation handles the yes/no/correction answer for a pending
// write. A correction cancels the pending call and feeds the new input
// back through the normal loop.
func (s *Session) resolveConfirmation(ctx context.Context, answer string) (*Reply, error) {
	pending := s.pending
	s.pending = nil

	switch {
	case isYes(answer):
		result, err := s.agent.tools.CallTool(ctx, pending.Function.Name, json.RawMessage(pending.Function.Arguments))
		content := string(result)
		if err != nil {
			content = fmt.Sprintf(`{"error": %q}`, err.Error())
		}
		s.appendToolResult(pending.ID, content)
		return s.run(ctx)

	case isNo(answer):
		s.appendToolResult(pending.ID, `{"cancelled": true, "reason": "user declined"}`)
		return s.run(ctx)

	default:
		s.appendToolResult(pending.ID, `{"cancelled": true, "reason": "user corrected the request"}`)
		s.messages = append(s.messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: answer,
		})
		return s.run(ctx)
	}
}

// run executes completion rounds until the model produces a plain reply or
// a write needs confirmation.
func (s *Session) run(ctx context.Context) (*Reply, error) {
	for round := 0; round < maxToolRounds; round++ {
		resp, err := s.agent.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    s.agent.model,
			Messages: s.messages,
			Tools:    chatTools,
		})
		if err != nil {
			return nil, errors.Wrap(err, "chat completion")
		}
		if len(resp.Choices) == 0 {
			return nil, errors.New("empty completion response")
		}

		msg := resp.Choices[0].Message
		s.messages = append(s.messages, msg)

		if len(msg.ToolCalls) == 0 {
			return &Reply{Text: msg.Content}, nil
		}

		for i, call := range msg.ToolCalls {
			if writeTools[call.Function.Name] {
				// Tool results for any remaining calls in this round must
				// still be supplied; mark them deferred.
				for _, later := range msg.ToolCalls[i+1:] {
					s.appendToolResult(later.ID, `{"deferred": true}`)
				}
				preview := s.buildPreview(ctx, call)
				s.pending = &call
				return &Reply{
					NeedsConfirmation: true,
					Preview:           preview,
					Text:              preview + "\nConfirm? (yes/no, or describe what to change)",
				}, nil
			}

			result, err := s.agent.tools.CallTool(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			content := string(result)
			if err != nil {
				s.agent.logger.Warn("tool call failed",
					slog.String("tool", call.Function.Name),
					slog.String("error", err.Error()))
				content = fmt.Sprintf(`{"error": %q}`, err.Error())
			}
			s.appendToolResult(call.ID, content)
		}
	}
	return nil, errors.New("tool loop exceeded round limit")
}

func (s *Session) appendToolResult(callID, content string) {
	s.messages = append(s.messages, openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		ToolCallID: callID,
		Content:    content,
	})
}

// buildPreview renders the pending write for the user to confirm, with
// names and date resolved through the tool server. Resolution failures
// degrade to the raw values; the create itself will surface real errors.
func (s *Session) buildPreview(ctx context.Context, call openai.ToolCall) string {
	var args struct {
		UserID      int64   `json:"user_id"`
		ProjectID   int64   `json:"project_id"`
		TaskID      int64   `json:"task_id"`
		UserName    string  `json:"user_name"`
		ProjectName string  `json:"project_name"`
		TaskName    string  `json:"task_name"`
		Hours       float64 `json:"hours"`
		Billable    bool    `json:"billable"`
		Date        string  `json:"date"`
		Notes       string  `json:"notes"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return "About to log a time entry: " + call.Function.Arguments
	}

	user := args.UserName
	project := args.ProjectName
	if call.Function.Name == toolLogTimeEntryByName {
		if resolved, err := s.agent.tools.LookupUser(ctx, args.UserName); err == nil {
			user = resolved
		}
		if resolved, err := s.agent.tools.LookupWorkspace(ctx, args.ProjectName); err == nil {
			project = resolved
		}
	} else {
		user = fmt.Sprintf("user #%d", args.UserID)
		project = fmt.Sprintf("project #%d", args.ProjectID)
		if args.TaskID != 0 {
			args.TaskName = fmt.Sprintf("task #%d", args.TaskID)
		}
	}

	date := args.Date
	if resolved, err := s.agent.tools.ResolveDate(ctx, args.Date); err == nil {
		date = resolved
	}

	billable := "no"
	if args.Billable {
		billable = "yes"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "About to log a time entry:\n")
	fmt.Fprintf(&b, "  User:     %s\n", user)
	fmt.Fprintf(&b, "  Project:  %s\n", project)
	if args.TaskName != "" {
		fmt.Fprintf(&b, "  Task:     %s\n", args.TaskName)
	}
	fmt.Fprintf(&b, "  Date:     %s\n", date)
	fmt.Fprintf(&b, "  Hours:    %.1f\n", args.Hours)
	fmt.Fprintf(&b, "  Billable: %s", billable)
	if args.Notes != "" {
		fmt.Fprintf(&b, "\n  Notes:    %s", args.Notes)
	}
	return b.String()
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "yeah", "yep", "ok", "confirm", "sure":
		return true
	}
	return false
}

func isNo(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "n", "no", "nope", "cancel", "stop":
		return true
	}
	return false
}
