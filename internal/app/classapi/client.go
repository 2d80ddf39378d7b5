package classapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"edulive/internal/app/perms"
	"edulive/internal/pkg/logx"
)

// defaultTimeout bounds every REST call; the session treats timeouts as
// transient errors the user retries manually.
const defaultTimeout = 10 * time.Second

// Client talks to the education platform's REST API.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a REST client for the given base URL. authToken may be
// empty for guest flows; individual endpoints decide whether anonymity is
// acceptable.
func NewClient(baseURL, authToken string) *Client {
	return &Client{
		baseURL:    baseURL,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logx.Logger().With().Str("component", "classapi").Logger(),
	}
}

// joinByTokenRequest is the body of the join-by-token endpoint.
type joinByTokenRequest struct {
	RoomToken string        `json:"roomToken"`
	Password  string        `json:"password,omitempty"`
	Guest     *GuestDetails `json:"guest,omitempty"`
}

// JoinByToken joins a class via an access token. The server may demand a
// password or, for anonymous callers, guest details; both conditions come
// back as *APIError with the corresponding business code.
func (c *Client) JoinByToken(ctx context.Context, roomToken, password string, guest *GuestDetails) (*JoinResult, error) {
	body := joinByTokenRequest{RoomToken: roomToken, Password: password, Guest: guest}

	var result JoinResult
	if err := c.post(ctx, "/api/class/join", body, &result); err != nil {
		return nil, err
	}

	c.logger.Info().Str("class_id", result.Class.ID).Str("role", result.Role).Msg("joined class by token")
	return &result, nil
}

// joinByIDResponse wraps the class descriptor of the join-by-id endpoint.
type joinByIDResponse struct {
	Class LiveClass `json:"liveClass"`
}

// JoinByClassID resolves a class by its id. This flow requires pre-verified
// enrollment, so it carries no role information: the caller derives the role
// by comparing its identity against the class teacher id.
func (c *Client) JoinByClassID(ctx context.Context, classID string) (*LiveClass, error) {
	var result joinByIDResponse
	if err := c.get(ctx, "/api/class/"+classID, &result); err != nil {
		return nil, err
	}
	return &result.Class, nil
}

// UpdateSettings persists a teacher's settings change before it is broadcast
// on the channel.
func (c *Client) UpdateSettings(ctx context.Context, classID string, settings perms.ClassSettings) error {
	return c.post(ctx, "/api/class/"+classID+"/settings", settings, nil)
}

// whiteboardNotes wraps the opaque drawing payload.
type whiteboardNotes struct {
	Notes json.RawMessage `json:"notes"`
}

// WhiteboardNotes loads the saved whiteboard drawing data for a class.
func (c *Client) WhiteboardNotes(ctx context.Context, classID string) (json.RawMessage, error) {
	var result whiteboardNotes
	if err := c.get(ctx, "/api/class/"+classID+"/whiteboard", &result); err != nil {
		return nil, err
	}
	return result.Notes, nil
}

// SaveWhiteboardNotes persists whiteboard drawing data for a class.
func (c *Client) SaveWhiteboardNotes(ctx context.Context, classID string, notes json.RawMessage) error {
	return c.post(ctx, "/api/class/"+classID+"/whiteboard", whiteboardNotes{Notes: notes}, nil)
}

// post issues a JSON POST and unmarshals the envelope data into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

// get issues a GET and unmarshals the envelope data into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	return c.do(req, out)
}

// do executes the request, decodes the standard envelope, and maps non-zero
// business codes to *APIError.
func (c *Client) do(req *http.Request, out any) error {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("class API request: %w", err)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode class API response (HTTP %d): %w", res.StatusCode, err)
	}

	if env.Code != 0 {
		return &APIError{Code: env.Code, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode class API data: %w", err)
		}
	}

	return nil
}
