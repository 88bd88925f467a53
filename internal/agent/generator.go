package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
)

const systemPrompt = "You convert natural language questions about a PostgreSQL database " +
	"into a single SQL statement. Use only relations and columns present in the schema context. " +
	"Return ONLY SQL. No markdown, no explanation."

// OpenAIGenerator implements Generator via OpenAI chat completions.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator using the given chat model.
func NewOpenAIGenerator(client *openai.Client, model string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: client,
		model:  model,
	}
}

// GenerateSQL asks the model for a SQL statement and extracts it from the
// response. On retries the previous statement and database error are
// included so the model can correct itself.
func (g *OpenAIGenerator) GenerateSQL(ctx context.Context, req GenerateRequest) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildUserPrompt(req)),
		},
		Model: openai.ChatModel(g.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion choices")
	}

	return ExtractSQL(resp.Choices[0].Message.Content)
}

func buildUserPrompt(req GenerateRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "--- SCHEMA CONTEXT START ---\n%s\n--- SCHEMA CONTEXT END ---\n\n", req.SchemaContext)
	fmt.Fprintf(&b, "User question: %s\n", strings.TrimSpace(req.Question))

	if req.PreviousError != "" {
		b.WriteString("\nThe previous attempt failed.\n")
		fmt.Fprintf(&b, "Statement:\n%s\n", req.PreviousSQL)
		fmt.Fprintf(&b, "Database error:\n%s\n", req.PreviousError)
		b.WriteString("Return a corrected SQL statement.\n")
	}

	return b.String()
}
