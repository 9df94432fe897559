// Package tools defines the function-calling tools exposed to the
// agent model and the registry that dispatches their invocations.
package tools

import (
	"context"

	"google.golang.org/genai"
)

// Tool is one callable function exposed to the model.
type Tool interface {
	// Name returns the function name the model calls.
	Name() string

	// Declaration describes the function to the model.
	Declaration() *genai.FunctionDeclaration

	// Execute runs the tool. The returned map is sent back to the
	// model verbatim as the function response.
	Execute(ctx context.Context, args map[string]any) (map[string]any, error)
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}
