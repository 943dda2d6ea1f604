// Package tool exposes the catalog query surface and the purchase workflow
// as model-callable tools.
package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"

	contractx "github.com/trungdn/milk-sell-agent/agent/contract"
	logx "github.com/trungdn/milk-sell-agent/pkg/logger"
	"github.com/trungdn/milk-sell-agent/store/catalog"
)

// Info describes one tool to the model and to the HTTP tool listing.
// Parameters is a JSON schema object.
type Info struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type handler func(ctx context.Context, args map[string]any) (any, error)

type entry struct {
	info Info
	run  handler
}

// Registry routes tool calls by name.
type Registry struct {
	entries []entry
	index   map[string]int
	log     zerolog.Logger
}

// NewRegistry wires the search tools over the catalog store and, when sale
// is non-nil, the purchase tool.
func NewRegistry(store *catalog.Store, sale *Sale) *Registry {
	entries := searchEntries(store)
	if sale != nil {
		entries = append(entries, sale.entry())
	}

	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.info.Name] = i
	}
	return &Registry{
		entries: entries,
		index:   index,
		log:     logx.Component("tool"),
	}
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Infos lists the registered tools in registration order.
func (r *Registry) Infos() []Info {
	infos := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		infos = append(infos, e.info)
	}
	return infos
}

// Execute runs one tool. Unknown tools and bad arguments come back inside
// the ToolResult so the model can correct itself; storage and transport
// failures come back as errors and fail the turn.
func (r *Registry) Execute(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
	i, ok := r.index[tool]
	if !ok {
		return contractx.ToolResult{
			Tool:  tool,
			Error: fmt.Sprintf("tool=%s is not available", tool),
		}, nil
	}

	r.log.Debug().Str("tool", tool).Msg("executing tool")
	result, err := r.entries[i].run(ctx, args)
	if err != nil {
		var bad *argError
		if errors.As(err, &bad) {
			return contractx.ToolResult{Tool: tool, Error: bad.Error()}, nil
		}
		return contractx.ToolResult{}, fmt.Errorf("execute %s: %w", tool, err)
	}
	return contractx.ToolResult{Tool: tool, Result: result}, nil
}

// OpenAITools exports the registry as chat-completion function tools.
func (r *Registry) OpenAITools() []openai.ChatCompletionToolUnionParam {
	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(r.entries))
	for _, e := range r.entries {
		tools = append(tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        e.info.Name,
			Description: openai.String(e.info.Description),
			Parameters:  shared.FunctionParameters(e.info.Parameters),
		}))
	}
	return tools
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func integerProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}
