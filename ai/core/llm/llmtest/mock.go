// Package llmtest provides a scriptable llm.Service for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/hrygo/gridiron/ai/core/llm"
)

type rule struct {
	contains string
	response string
	err      error
}

// MockLLM is a configurable mock LLM service.
// MockLLM 是一个可配置的 Mock LLM 服务。
//
// Chat answers with the first rule whose substring occurs in any message.
// ChatWithTools replays the tool script in order, then falls back to the default response.
type MockLLM struct {
	mu              sync.Mutex
	rules           []rule
	toolScript      []*llm.ChatResponse
	defaultResponse string
	stats           *llm.LLMCallStats
	chatCalls       int
	toolCalls       int
	seen            [][]llm.Message
}

// NewMockLLM creates a new MockLLM instance.
func NewMockLLM() *MockLLM {
	return &MockLLM{
		defaultResponse: "Mock response",
		stats:           &llm.LLMCallStats{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}
}

// WithResponse answers any conversation mentioning contains with output.
func (m *MockLLM) WithResponse(contains, output string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule{contains: contains, response: output})
	return m
}

// WithError fails any conversation mentioning contains.
func (m *MockLLM) WithError(contains string, err error) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule{contains: contains, err: err})
	return m
}

// WithDefaultResponse sets the default response when no rule matches.
func (m *MockLLM) WithDefaultResponse(output string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResponse = output
	return m
}

// WithToolScript queues responses returned by successive ChatWithTools calls.
func (m *MockLLM) WithToolScript(responses ...*llm.ChatResponse) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolScript = append(m.toolScript, responses...)
	return m
}

func (m *MockLLM) match(msgs []llm.Message) (string, error) {
	for _, r := range m.rules {
		for _, msg := range msgs {
			if strings.Contains(msg.Content, r.contains) {
				return r.response, r.err
			}
		}
	}
	return m.defaultResponse, nil
}

// Chat implements llm.Service.
func (m *MockLLM) Chat(ctx context.Context, msgs []llm.Message) (string, *llm.LLMCallStats, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatCalls++
	m.seen = append(m.seen, msgs)

	out, err := m.match(msgs)
	if err != nil {
		return "", nil, err
	}
	stats := *m.stats
	return out, &stats, nil
}

// ChatWithTools implements llm.Service.
func (m *MockLLM) ChatWithTools(ctx context.Context, msgs []llm.Message, _ []llm.ToolDescriptor) (*llm.ChatResponse, *llm.LLMCallStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCalls++
	m.seen = append(m.seen, msgs)

	stats := *m.stats
	if len(m.toolScript) > 0 {
		next := m.toolScript[0]
		m.toolScript = m.toolScript[1:]
		return next, &stats, nil
	}
	out, err := m.match(msgs)
	if err != nil {
		return nil, nil, err
	}
	return &llm.ChatResponse{Content: out}, &stats, nil
}

// Warmup implements llm.Service.
func (m *MockLLM) Warmup(context.Context) {}

// ChatCalls returns the number of Chat invocations.
func (m *MockLLM) ChatCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chatCalls
}

// ToolCalls returns the number of ChatWithTools invocations.
func (m *MockLLM) ToolCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toolCalls
}

// Conversations returns every message list the mock received.
func (m *MockLLM) Conversations() [][]llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]llm.Message(nil), m.seen...)
}

// ToolCallResponse builds a ChatResponse requesting a single tool call.
func ToolCallResponse(id, name, args string) *llm.ChatResponse {
	return &llm.ChatResponse{ToolCalls: []llm.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: llm.FunctionCall{Name: name, Arguments: args},
	}}}
}
