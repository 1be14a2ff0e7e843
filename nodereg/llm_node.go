package nodereg

import (
	"context"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	markdownhtml "github.com/gomarkdown/markdown/html"
	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
)

// LLMNode is the reference `llmAgentflow` node implementation: it sends
// the resolved prompt (or, when data has no prompt, a string input) as a
// single user message to an OpenAI-compatible chat completion endpoint and
// returns `output.content`. Accumulated chat history is not sent.
//
// Individual node-type semantics are explicitly out of scope for the
// engine (§1 Non-goals) — this type exists only as a concrete reference
// node, grounded on the teacher's prebuilt/chat_agent.go wrapping of an
// llms.Model behind a narrow Chat(ctx, message) surface.
type LLMNode struct {
	Client *openai.Client
	Model  string
}

// NewLLMNode constructs a reference LLM node against an OpenAI-compatible
// endpoint.
func NewLLMNode(apiKey, model string) *LLMNode {
	return &LLMNode{
		Client: openai.NewClient(apiKey),
		Model:  model,
	}
}

// Run implements Runner.
func (n *LLMNode) Run(ctx context.Context, data map[string]any, input any, params RunParams) (Output, error) {
	prompt, _ := data["prompt"].(string)
	if prompt == "" {
		if s, ok := input.(string); ok {
			prompt = s
		}
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	resp, err := n.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    n.Model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("llmAgentflow: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llmAgentflow: empty completion")
	}

	content := resp.Choices[0].Message.Content
	role := string(llms.ChatMessageTypeAI)

	return Output{
		"chatHistory": []map[string]any{
			{"role": role, "content": renderMarkdownPlain(content)},
		},
		"output": map[string]any{
			"content": content,
		},
	}, nil
}

// renderMarkdownPlain renders Markdown content to an HTML fragment and
// removes the <p>, <strong> and <em> tags, used so {{chat_history}} lines
// read as prose when a model returns Markdown-formatted output. Other tags
// (headings, lists, code) are left in place.
func renderMarkdownPlain(content string) string {
	renderer := markdownhtml.NewRenderer(markdownhtml.RendererOptions{})
	htmlBytes := markdown.ToHTML([]byte(content), nil, renderer)
	text := strings.NewReplacer(
		"<p>", "", "</p>", "\n",
		"<strong>", "", "</strong>", "",
		"<em>", "", "</em>", "",
	).Replace(string(htmlBytes))
	return strings.TrimSpace(text)
}
