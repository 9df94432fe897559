package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultAPIBase  = "https://api.line.me"
	defaultBlobBase = "https://api-data.line.me"

	// LINE caps the loading animation at 60 seconds.
	loadingSeconds = 60
)

// Client is a minimal LINE Messaging API client covering the calls this
// service makes: reply, push, loading animation, blob download, profile.
type Client struct {
	Token    string
	APIBase  string
	BlobBase string
	client   *http.Client
}

// Profile is a LINE user profile.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

// NewClient creates a Client with the given channel access token.
func NewClient(token string) *Client {
	return &Client{
		Token:    token,
		APIBase:  defaultAPIBase,
		BlobBase: defaultBlobBase,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// ReplyMessage sends one text message using a reply token.
func (c *Client) ReplyMessage(ctx context.Context, replyToken, text string) error {
	body := map[string]any{
		"replyToken": replyToken,
		"messages": []map[string]any{
			{"type": "text", "text": text},
		},
	}
	return c.post(ctx, c.APIBase+"/v2/bot/message/reply", body)
}

// PushMessage sends one text message directly to a user. Used when the
// reply token was already consumed or expired.
func (c *Client) PushMessage(ctx context.Context, to, text string) error {
	body := map[string]any{
		"to": to,
		"messages": []map[string]any{
			{"type": "text", "text": text},
		},
	}
	return c.post(ctx, c.APIBase+"/v2/bot/message/push", body)
}

// ShowLoadingAnimation starts the typing indicator for a chat.
func (c *Client) ShowLoadingAnimation(ctx context.Context, chatID string) error {
	body := map[string]any{
		"chatId":         chatID,
		"loadingSeconds": loadingSeconds,
	}
	return c.post(ctx, c.APIBase+"/v2/bot/chat/loading/start", body)
}

// GetProfile fetches a user's profile.
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBase+"/v2/bot/profile/"+userID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("get profile", resp)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetMessageContent downloads a message's binary content (image or file)
// from the blob endpoint. Returns the bytes and the Content-Type.
func (c *Client) GetMessageContent(ctx context.Context, messageID string) ([]byte, string, error) {
	url := fmt.Sprintf("%s/v2/bot/message/%s/content", c.BlobBase, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", apiError("get message content", resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return apiError(url, resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func apiError(op string, resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("line api %s: status %d: %s", op, resp.StatusCode, bytes.TrimSpace(detail))
}
