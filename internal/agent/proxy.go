// Package agent forwards prompts to the external explanation service.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dpolishuk/codeflow/internal/models"
)

// explainTopN bounds how many results are described to the agent.
const explainTopN = 5

// AgentTypeExplain selects the agent that summarizes search results.
const AgentTypeExplain = "explain"

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message    string  `json:"message"`
	SnapshotID *string `json:"snapshot_id,omitempty"`
	AgentType  string  `json:"agent_type"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	ToolCalls []any  `json:"tool_calls"`
}

// AgentProxy relays chat turns to the agent service.
type AgentProxy struct {
	chatURL string
	http    *http.Client
}

func NewAgentProxy(baseURL string) *AgentProxy {
	return &AgentProxy{
		chatURL: strings.TrimRight(baseURL, "/") + "/chat",
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Chat posts one turn for agentType. snapshotID scopes the agent's tools to
// a snapshot when set.
func (p *AgentProxy) Chat(ctx context.Context, message string, snapshotID *string, agentType string) (*ChatResponse, error) {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(ChatRequest{Message: message, SnapshotID: snapshotID, AgentType: agentType}); err != nil {
		return nil, fmt.Errorf("agent chat: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.chatURL, &body)
	if err != nil {
		return nil, fmt.Errorf("agent chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("agent chat: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	out := &ChatResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("agent chat: decode response: %w", err)
	}
	return out, nil
}

// Explain asks the agent to summarize how the top results answer query.
// An empty answer is an error so the caller falls back to its own summary.
func (p *AgentProxy) Explain(ctx context.Context, query string, results []models.ScoredResult) (string, error) {
	resp, err := p.Chat(ctx, ExplainPrompt(query, results), nil, AgentTypeExplain)
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(resp.Response)
	if answer == "" {
		return "", fmt.Errorf("agent returned an empty explanation")
	}
	return answer, nil
}

// ExplainPrompt renders the question and up to explainTopN results.
func ExplainPrompt(query string, results []models.ScoredResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nRelevant code:\n", query)
	for i, r := range results[:min(explainTopN, len(results))] {
		fmt.Fprintf(&b, "%d. %s in %s:%d (score %.2f)\n", i+1, r.Description, r.FilePath, r.StartLine, r.CombinedScore)
		if r.Context != "" {
			fmt.Fprintf(&b, "   %s\n", r.Context)
		}
	}
	b.WriteString("\nExplain briefly how this code answers the question.")
	return b.String()
}
