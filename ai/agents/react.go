package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/gridiron/ai/core/llm"
	"github.com/hrygo/gridiron/internal/strutil"
)

/*
ReActExecutor - tool-calling loop

ALGORITHM:
 1. Send the conversation plus tool descriptors (ChatWithTools).
 2. Tool calls in the reply: run each tool, append the assistant turn and one
    tool message per call, continue with the next iteration.
 3. No tool calls: the content is the final answer.

Tool failures are reported back to the model as "Error: ..." so it can correct itself;
only LLM failures, cancellation and the iteration limit end the loop with an error.
*/
type ReActExecutor struct {
	maxIterations int
}

// Step is one tool invocation, reported to the observer as it completes.
type Step struct {
	Iteration  int
	Tool       string
	Input      string
	Output     string
	Err        error
	DurationMs int64
}

// Observer receives steps as the loop runs. It must not block.
type Observer func(Step)

// ExecutionStats summarizes a loop run.
type ExecutionStats struct {
	Iterations      int
	ToolCalls       int
	LLM             llm.LLMCallStats
	TotalDurationMs int64
}

// NewReActExecutor creates a new ReActExecutor. Non-positive limits default to 10.
func NewReActExecutor(maxIterations int) *ReActExecutor {
	if maxIterations <= 0 {
		maxIterations = 10
	}
	return &ReActExecutor{maxIterations: maxIterations}
}

// MaxIterations returns the loop limit.
func (e *ReActExecutor) MaxIterations() int {
	return e.maxIterations
}

// Execute runs the loop over messages until the model answers without tool calls.
func (e *ReActExecutor) Execute(
	ctx context.Context,
	service llm.Service,
	messages []llm.Message,
	tools []Tool,
	observe Observer,
) (string, *ExecutionStats, error) {
	stats := &ExecutionStats{}
	startTime := time.Now()
	defer func() {
		stats.TotalDurationMs = time.Since(startTime).Milliseconds()
	}()

	toolMap := make(map[string]Tool, len(tools))
	for _, t := range tools {
		toolMap[t.Name()] = t
	}
	descriptors := Descriptors(tools)
	messages = append([]llm.Message(nil), messages...)

	for iteration := 1; iteration <= e.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return "", stats, err
		}
		stats.Iterations = iteration

		llmStart := time.Now()
		response, llmStats, err := service.ChatWithTools(ctx, messages, descriptors)
		if err != nil {
			return "", stats, fmt.Errorf("LLM chat with tools failed: %w", err)
		}
		stats.LLM.Add(llmStats)

		slog.Debug("react: LLM response",
			"iteration", iteration,
			"tool_calls", len(response.ToolCalls),
			"content_length", len(response.Content),
			"duration_ms", time.Since(llmStart).Milliseconds())

		if len(response.ToolCalls) == 0 {
			return response.Content, stats, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})
		for _, call := range response.ToolCalls {
			stats.ToolCalls++
			output, elapsed, toolErr := runTool(ctx, toolMap, call)
			if toolErr != nil {
				if ctx.Err() != nil {
					return "", stats, ctx.Err()
				}
				output = fmt.Sprintf("Error: %v", toolErr)
			}

			slog.Debug("react: tool execution completed",
				"tool", call.Function.Name,
				"error", toolErr,
				"duration_ms", elapsed.Milliseconds())
			if observe != nil {
				observe(Step{
					Iteration:  iteration,
					Tool:       call.Function.Name,
					Input:      call.Function.Arguments,
					Output:     strutil.Truncate(output, 500),
					Err:        toolErr,
					DurationMs: elapsed.Milliseconds(),
				})
			}
			messages = append(messages, llm.ToolResult(call, output))
		}
	}

	return "", stats, fmt.Errorf("%w (%d)", ErrMaxIterations, e.maxIterations)
}

func runTool(ctx context.Context, tools map[string]Tool, call llm.ToolCall) (string, time.Duration, error) {
	start := time.Now()
	tool, ok := tools[call.Function.Name]
	if !ok {
		return "", time.Since(start), fmt.Errorf("%w: %s", ErrToolNotFound, call.Function.Name)
	}
	out, err := tool.Run(ctx, call.Function.Arguments)
	return out, time.Since(start), err
}
