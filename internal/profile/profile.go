package profile

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the timeclerk server and agent.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the tool server
	Addr string
	// Port is the binding port for the tool server
	Port int
	// Version is the current version of the server
	Version string

	// KantataToken is the bearer token for the Kantata OX API
	KantataToken string
	// KantataBaseURL is the Kantata API endpoint
	KantataBaseURL string

	// OpenAIAPIKey is the API key for the conversational agent
	OpenAIAPIKey string
	// OpenAIBaseURL overrides the OpenAI endpoint (optional)
	OpenAIBaseURL string
	// OpenAIModel is the chat model used for tool calling
	OpenAIModel string

	// ServerURL is the tool server endpoint used by the chat client
	ServerURL string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAgentEnabled returns true if the conversational agent can be started.
func (p *Profile) IsAgentEnabled() bool {
	return p.OpenAIAPIKey != ""
}

// ListenAddr returns the address the tool server binds to.
func (p *Profile) ListenAddr() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}

// Validate normalizes the profile and rejects unusable configurations.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.KantataToken == "" {
		return errors.New("kantata API token is required")
	}

	p.KantataBaseURL = strings.TrimRight(p.KantataBaseURL, "/")
	if p.KantataBaseURL == "" {
		p.KantataBaseURL = "https://api.mavenlink.com/api/v1"
	}
	if _, err := url.Parse(p.KantataBaseURL); err != nil {
		return errors.Wrapf(err, "invalid kantata base URL %q", p.KantataBaseURL)
	}

	if p.OpenAIModel == "" {
		p.OpenAIModel = "gpt-4o-mini"
	}

	p.ServerURL = strings.TrimRight(p.ServerURL, "/")
	if p.ServerURL == "" {
		p.ServerURL = fmt.Sprintf("http://localhost:%d", p.Port)
	}

	return nil
}
