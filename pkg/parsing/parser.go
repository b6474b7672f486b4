package parsing

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/taskistation/todo-backend/pkg/logger"
)

// DefaultModel is used when no model is configured
const DefaultModel = openai.GPT4oMini

// DefaultSubtaskTitle replaces suggestions the model returned without a title
const DefaultSubtaskTitle = "Subtask"

// Subtask is a suggested checklist item
type Subtask struct {
	Title string `json:"title"`
}

// TaskParser derives structure from the free text of a task
type TaskParser interface {
	SuggestSubtasks(ctx context.Context, title string, description string) ([]Subtask, error)
}

// Config holds the connection settings of an OpenAI compatible API
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAITaskParser asks a chat completion model for suggestions
type OpenAITaskParser struct {
	client *openai.Client
	model  string
	logger logger.Interface
}

// NewOpenAITaskParser builds a new OpenAITaskParser
func NewOpenAITaskParser(cfg Config, logger logger.Interface) *OpenAITaskParser {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAITaskParser{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}
}

const subtaskPrompt = `Task: "%s"
Description: "%s"

Based on this task description, suggest 3-5 actionable subtasks that would help complete this task.
Return your response as a JSON array of objects, where each object has a "title" field for the subtask.
Example format:
[
  {"title": "Research options"},
  {"title": "Create draft"},
  {"title": "Review with team"}
]
Only return the JSON array, no other text.`

// SuggestSubtasks returns subtask suggestions for a task. Without a description there is nothing to suggest.
// Model failures are logged and result in an empty list.
func (p *OpenAITaskParser) SuggestSubtasks(ctx context.Context, title string, description string) ([]Subtask, error) {
	if strings.TrimSpace(description) == "" {
		return []Subtask{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(subtaskPrompt, title, description),
			},
		},
	})
	if err != nil {
		p.logger.Error("subtask suggestion request failed", err)
		return []Subtask{}, nil
	}

	if len(resp.Choices) == 0 {
		p.logger.Info("empty response from model for subtask suggestions")
		return []Subtask{}, nil
	}

	subtasks, err := ExtractSubtasks(resp.Choices[0].Message.Content)
	if err != nil {
		p.logger.Error("could not parse subtask suggestions", err)
		return []Subtask{}, nil
	}

	return subtasks, nil
}

var jsonArray = regexp.MustCompile(`\[[\s\S]*\]`)

// ExtractSubtasks reads the first JSON array of a model answer
func ExtractSubtasks(content string) ([]Subtask, error) {
	match := jsonArray.FindString(content)
	if match == "" {
		return nil, errors.New("no json array in response")
	}

	var raw []struct {
		Title string `json:"title"`
	}
	err := json.Unmarshal([]byte(match), &raw)
	if err != nil {
		return nil, errors.Wrap(err, "json array malformed")
	}

	subtasks := make([]Subtask, 0, len(raw))
	for _, item := range raw {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = DefaultSubtaskTitle
		}
		subtasks = append(subtasks, Subtask{Title: title})
	}

	return subtasks, nil
}
