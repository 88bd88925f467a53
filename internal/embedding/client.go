package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI client shared by the embedder and the SQL
// generation agent.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client with the given API key. The key is
// passed explicitly so tests and callers control construction instead of
// relying on process-global environment state.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages
// (e.g. SQL generation).
func (c *Client) Client() *openai.Client {
	return c.client
}
