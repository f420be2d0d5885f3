package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"repolens/internal/review"
	"repolens/internal/vulnscan"
)

const reviewPrompt = `You are a strict automated code reviewer.
Review the single source file in the input and respond with ONLY a JSON object:
{
  "score": <integer 0-100, overall quality>,
  "summary": "<two or three sentences>",
  "issues": [{"severity": "high|medium|low", "line": <int>, "message": "...", "suggestion": "..."}],
  "vulnerabilities": [{"type": "...", "severity": "high|medium|low", "line": <int>, "description": "..."}]
}
Score 100 means no findings at all. Report real problems only, no stylistic nitpicks.`

// Content beyond this many bytes is truncated before the model call.
const maxReviewBytes = 48 * 1024

// Reviewer turns one file into a structured review using the backend that
// serves the requested model. It implements review.FileAnalyzer.
type Reviewer struct {
	geminiKey string
	groqKey   string
	timeout   time.Duration

	mu      sync.Mutex
	clients map[string]Generator

	// newGenerator is injectable in tests.
	newGenerator func(ctx context.Context, m Model) (Generator, error)
}

func NewReviewer(geminiKey, groqKey string, timeout time.Duration) *Reviewer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r := &Reviewer{
		geminiKey: geminiKey,
		groqKey:   groqKey,
		timeout:   timeout,
		clients:   map[string]Generator{},
	}
	r.newGenerator = r.dial
	return r
}

func (r *Reviewer) dial(ctx context.Context, m Model) (Generator, error) {
	switch m.Provider {
	case "gemini":
		return NewGeminiClient(ctx, r.geminiKey, m.Name)
	case "groq":
		return NewGroqClient(r.groqKey, m.Name)
	default:
		return nil, fmt.Errorf("llmclient: no backend for provider %q", m.Provider)
	}
}

func (r *Reviewer) generatorFor(ctx context.Context, model string) (Generator, error) {
	m, ok := Lookup(model)
	if !ok {
		return nil, fmt.Errorf("llmclient: unknown model %q", model)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.clients[m.Name]; ok {
		return g, nil
	}
	g, err := r.newGenerator(ctx, m)
	if err != nil {
		return nil, err
	}
	r.clients[m.Name] = g
	return g, nil
}

type reviewInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type reviewOutput struct {
	Score           *int               `json:"score"`
	Summary         string             `json:"summary"`
	Issues          []review.Issue     `json:"issues"`
	Vulnerabilities []vulnscan.Finding `json:"vulnerabilities"`
}

// AnalyzeFile reviews one file. Every call carries its own timeout,
// independent of whatever deadline the batch runs under.
func (r *Reviewer) AnalyzeFile(ctx context.Context, path string, content []byte, model string) (review.FileResult, error) {
	g, err := r.generatorFor(ctx, model)
	if err != nil {
		return review.FileResult{}, err
	}

	if len(content) > maxReviewBytes {
		content = content[:maxReviewBytes]
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := g.GenerateJSON(callCtx, reviewPrompt, reviewInput{Path: path, Content: string(content)})
	if err != nil {
		return review.FileResult{}, err
	}

	var out reviewOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return review.FileResult{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	res := review.FileResult{
		File:            path,
		Summary:         out.Summary,
		Issues:          out.Issues,
		Vulnerabilities: out.Vulnerabilities,
	}
	if out.Score != nil {
		s := *out.Score
		if s < 0 {
			s = 0
		}
		if s > 100 {
			s = 100
		}
		res.Score = &s
	}
	return res, nil
}

// Close releases every cached backend client.
func (r *Reviewer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, g := range r.clients {
		_ = g.Close()
		delete(r.clients, name)
	}
	return nil
}
