package posting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/podreach/publisher/internal/credentials"
)

// replyRequest is the JSON body for creating a reply post.
type replyRequest struct {
	Text  string `json:"text"`
	Reply struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply"`
}

// replyResponse maps the 201 Created response body.
type replyResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// errorResponse maps the provider's error body. The platform uses two error
// shapes: a v1-style errors array with numeric codes, and a v2-style
// title/detail pair. Both are read; the numeric code wins when present.
type errorResponse struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// HTTPClient posts replies directly to the platform's HTTP API.
// One synchronous call per item; the short client timeout is independent of
// the dispatcher's batch deadline.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Post publishes text as a reply to targetID and returns the structured
// outcome. Non-2xx responses are still outcomes, not errors.
func (c *HTTPClient) Post(ctx context.Context, creds credentials.Credentials, targetID, text string) (*Outcome, error) {
	payload := replyRequest{Text: text}
	payload.Reply.InReplyToTweetID = targetID

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal reply request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post reply: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read reply response: %w", err)
	}

	outcome := &Outcome{StatusCode: resp.StatusCode}

	if outcome.Success() {
		var ok replyResponse
		if err := json.Unmarshal(raw, &ok); err != nil {
			return nil, fmt.Errorf("decode reply response: %w", err)
		}
		outcome.PostID = ok.Data.ID
		return outcome, nil
	}

	var fail errorResponse
	if err := json.Unmarshal(raw, &fail); err != nil {
		// Not every failure carries a JSON body; keep the raw text as detail.
		outcome.Detail = string(raw)
		return outcome, nil
	}
	if len(fail.Errors) > 0 {
		outcome.ErrorCode = fail.Errors[0].Code
		outcome.Detail = fail.Errors[0].Message
	}
	if outcome.Detail == "" {
		outcome.Detail = fail.Detail
	}
	if outcome.Detail == "" {
		outcome.Detail = fail.Title
	}
	return outcome, nil
}

// compile-time check that HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)
