// Package ai generates multiple-choice questions for a chapter through an
// OpenAI-compatible chat completion API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/mcatbot/pkg/models"
)

// Generator produces questions for a chapter
type Generator interface {
	GenerateQuestions(ctx context.Context, book *models.Book, chapter *models.Chapter, count int) ([]models.Question, error)
}

// ChatGPT represents a client for the OpenAI chat completions API
type ChatGPT struct {
	apiKey      string
	apiURL      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// New creates a new ChatGPT client
func New(apiKey, apiURL, model string) (*ChatGPT, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable is not set")
	}
	return &ChatGPT{
		apiKey:      apiKey,
		apiURL:      apiURL,
		model:       model,
		maxTokens:   2000,
		temperature: 0.7,
		client:      &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// NewGenerator returns the ChatGPT client, or the mock generator when no key is configured
func NewGenerator(apiKey, apiURL, model string) Generator {
	gpt, err := New(apiKey, apiURL, model)
	if err != nil {
		return Mock{}
	}
	return gpt
}

// Message represents a message in the ChatGPT conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the ChatGPT API
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse represents a response from the ChatGPT API
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// generatedQuestion is the shape the model is asked to return
type generatedQuestion struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	ConceptTags   []string `json:"concept_tags"`
	Difficulty    string   `json:"difficulty"`
}

const systemPrompt = "You write MCAT practice questions. Every question has exactly four options, " +
	"one correct answer given as a letter A-D, a short explanation and one to three lower-case concept tags."

// GenerateQuestions asks the model for count questions on the chapter
func (c *ChatGPT) GenerateQuestions(ctx context.Context, book *models.Book, chapter *models.Chapter, count int) ([]models.Question, error) {
	prompt := fmt.Sprintf(
		"Write %d MCAT-style multiple-choice questions for chapter %d \"%s\" of the review book \"%s\". "+
			"Respond with a JSON array only, each element having the keys "+
			"question_text, options, correct_answer, explanation, concept_tags, difficulty (easy|medium|hard).",
		count, chapter.ChapterNumber, chapter.Title, book.Name,
	)

	content, err := c.complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}

	generated, err := parseQuestions(content)
	if err != nil {
		return nil, err
	}
	return toQuestions(generated, book, chapter), nil
}

func (c *ChatGPT) complete(ctx context.Context, messages []Message) (string, error) {
	request := ChatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(requestData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("API error: %s", response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("no response choices returned")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// parseQuestions extracts the JSON array from the reply, tolerating a fenced code block
func parseQuestions(content string) ([]generatedQuestion, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON array in model response")
	}
	var out []generatedQuestion
	if err := json.Unmarshal([]byte(content[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("failed to parse generated questions: %w", err)
	}
	valid := out[:0]
	for _, q := range out {
		if strings.TrimSpace(q.QuestionText) == "" || len(q.Options) < 2 || q.CorrectAnswer == "" {
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return nil, errors.New("model returned no usable questions")
	}
	return valid, nil
}

func toQuestions(generated []generatedQuestion, book *models.Book, chapter *models.Chapter) []models.Question {
	stamp := time.Now().UTC().Format("20060102150405")
	questions := make([]models.Question, 0, len(generated))
	for i, g := range generated {
		questions = append(questions, models.Question{
			ID:            fmt.Sprintf("%s-ch%d-gen-%s-%d", book.ID, chapter.ChapterNumber, stamp, i+1),
			ChapterID:     chapter.ID,
			QuestionText:  g.QuestionText,
			Options:       g.Options,
			CorrectAnswer: g.CorrectAnswer,
			Explanation:   g.Explanation,
			ConceptTags:   g.ConceptTags,
			Difficulty:    strings.ToLower(g.Difficulty),
		})
	}
	return questions
}
