package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/worawit-m/lineagent/internal/storage"
)

// ImageModel is the image-capable model used for generation requests.
const ImageModel = "gemini-2.5-flash-image-preview"

// ImageTool generates an image from a prompt and uploads it to object
// storage so the chat channel can serve it by URL.
type ImageTool struct {
	client   *genai.Client
	uploader storage.Uploader
	model    string
}

// NewImageTool creates the generate_image tool.
func NewImageTool(client *genai.Client, uploader storage.Uploader) *ImageTool {
	return &ImageTool{client: client, uploader: uploader, model: ImageModel}
}

func (t *ImageTool) Name() string { return "generate_image" }

func (t *ImageTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: "Generate an image from a text prompt and return its public URL. Use when the user asks for campaign artwork, banners, or any visual content.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"prompt": {
					Type:        genai.TypeString,
					Description: "Detailed description of the image to generate",
				},
			},
			Required: []string{"prompt"},
		},
	}
}

// Execute generates the image and uploads it. The model receives the
// URL rather than raw bytes.
func (t *ImageTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	prompt := stringArg(args, "prompt")
	if prompt == "" {
		return nil, errors.New("prompt is required")
	}
	log.Printf("[Tools] generating image: %.80s", prompt)

	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	}}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	}

	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}

	blob := firstImage(resp)
	if blob == nil {
		return nil, errors.New("model returned no image data")
	}

	key := fmt.Sprintf("generated/%s/%s%s", time.Now().UTC().Format("2006-01-02"), uuid.NewString(), extensionFor(blob.MIMEType))
	url, err := t.uploader.Upload(ctx, key, blob.Data, blob.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	return map[string]any{
		"url":       url,
		"mime_type": blob.MIMEType,
	}, nil
}

func firstImage(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData
			}
		}
	}
	return nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
