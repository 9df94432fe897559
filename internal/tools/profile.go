package tools

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/worawit-m/lineagent/internal/line"
)

// ProfileTool lets the model look up the display name of the LINE user
// it is talking to, for personalized campaign copy.
type ProfileTool struct {
	client *line.Client
}

// NewProfileTool creates the get_profile tool.
func NewProfileTool(client *line.Client) *ProfileTool {
	return &ProfileTool{client: client}
}

func (t *ProfileTool) Name() string { return "get_profile" }

func (t *ProfileTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Look up the LINE profile (display name, status message) of a user by user id.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"user_id": {
					Type:        genai.TypeString,
					Description: "LINE user id, e.g. U4af4980629...",
				},
			},
			Required: []string{"user_id"},
		},
	}
}

func (t *ProfileTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	userID := stringArg(args, "user_id")
	if userID == "" {
		return nil, errors.New("user_id is required")
	}
	p, err := t.client.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return map[string]any{
		"user_id":        p.UserID,
		"display_name":   p.DisplayName,
		"status_message": p.StatusMessage,
	}, nil
}
