// Package agent runs the tool-calling conversation loop: prompt plus
// recalled history in, one assistant answer out, with catalog tools
// executed in between as the model asks for them.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/rs/zerolog"

	contractx "github.com/trungdn/milk-sell-agent/agent/contract"
	logx "github.com/trungdn/milk-sell-agent/pkg/logger"
)

// maxToolRounds bounds how many times the model may call tools within a
// single turn.
const maxToolRounds = 8

// ToolGateway is what the loop needs from the tool registry.
type ToolGateway interface {
	OpenAITools() []openai.ChatCompletionToolUnionParam
	Execute(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)
}

type Config struct {
	Model               string
	SystemPrompt        string
	MaxCompletionTokens int
	Temperature         float64
}

// Client implements contract.Orchestrator on top of an OpenAI-compatible
// chat endpoint.
type Client struct {
	llm   *openai.Client
	tools ToolGateway
	log   zerolog.Logger

	model               string
	systemPrompt        string
	maxCompletionTokens int
	temperature         float64
}

func New(llm *openai.Client, tools ToolGateway, cfg Config) (*Client, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("model name is required")
	}
	systemPrompt := strings.TrimSpace(cfg.SystemPrompt)
	if systemPrompt == "" {
		return nil, contractx.ErrPromptMissing
	}

	return &Client{
		llm:                 llm,
		tools:               tools,
		log:                 logx.Component("agent"),
		model:               model,
		systemPrompt:        systemPrompt,
		maxCompletionTokens: cfg.MaxCompletionTokens,
		temperature:         cfg.Temperature,
	}, nil
}

// Answer runs one conversation turn. History carries only user and
// assistant roles; anything else is dropped, matching what the memory
// store produces.
func (c *Client) Answer(ctx context.Context, history []contractx.Message, query string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(c.systemPrompt))
	for _, msg := range history {
		switch msg.Role {
		case contractx.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case contractx.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(query))

	// Content the model produced alongside earlier tool calls; the answer
	// of last resort when the final message comes back empty.
	var lastAssistant string

	for round := 0; round < maxToolRounds; round++ {
		params := openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(c.model),
			Messages: messages,
			Tools:    c.tools.OpenAITools(),
		}
		if c.maxCompletionTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(c.maxCompletionTokens))
		}
		if c.temperature > 0 {
			params.Temperature = openai.Float(c.temperature)
		}

		completion, err := c.llm.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
		}
		if len(completion.Choices) == 0 {
			return "", contractx.ErrEmptyResponse
		}

		message := completion.Choices[0].Message
		if content := strings.TrimSpace(message.Content); content != "" {
			lastAssistant = content
		}

		if len(message.ToolCalls) == 0 {
			if content := strings.TrimSpace(message.Content); content != "" {
				return content, nil
			}
			if lastAssistant != "" {
				return lastAssistant, nil
			}
			return completion.RawJSON(), nil
		}

		c.log.Debug().
			Int("round", round).
			Int("tool_calls", len(message.ToolCalls)).
			Msg("model requested tools")

		messages = append(messages, message.ToParam())
		for _, call := range message.ToolCalls {
			reply, err := c.runTool(ctx, call)
			if err != nil {
				return "", err
			}
			messages = append(messages, reply)
		}
	}

	if lastAssistant != "" {
		return lastAssistant, nil
	}
	return "", fmt.Errorf("%w: tool loop exceeded %d rounds", contractx.ErrEmptyResponse, maxToolRounds)
}

func (c *Client) runTool(ctx context.Context, call openai.ChatCompletionMessageToolCallUnion) (openai.ChatCompletionMessageParamUnion, error) {
	name := call.Function.Name

	args := map[string]any{}
	if raw := call.Function.Arguments; raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			payload := mustMarshal(contractx.ToolResult{
				Tool:  name,
				Error: "invalid tool arguments: " + err.Error(),
			})
			return openai.ToolMessage(payload, call.ID), nil
		}
	}

	result, err := c.tools.Execute(ctx, name, args)
	if err != nil {
		return openai.ChatCompletionMessageParamUnion{}, err
	}
	return openai.ToolMessage(mustMarshal(result), call.ID), nil
}

func mustMarshal(result contractx.ToolResult) string {
	payload, err := json.Marshal(result)
	if err != nil {
		// ToolResult carries only JSON-safe values; reaching this means a
		// tool returned something it should not have.
		return fmt.Sprintf(`{"tool":%q,"error":"unencodable tool result"}`, result.Tool)
	}
	return string(payload)
}
