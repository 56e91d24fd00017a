package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelview/internal/model"

	"github.com/gorilla/websocket"
)

// HTTPRemote implements Remote against the reelview backend. The voter
// identity travels as credentials: a bearer token for authenticated users and
// an X-Device-ID header for anonymous/guest voters; the server resolves the
// identity from those, so the identity arguments are advisory here.
type HTTPRemote struct {
	BaseURL  string
	Token    string
	DeviceID string

	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// NewHTTPRemote creates a remote with sane timeouts.
func NewHTTPRemote(baseURL string) *HTTPRemote {
	return &HTTPRemote{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Dialer:     websocket.DefaultDialer,
	}
}

// envelope mirrors the server's response helpers.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (r *HTTPRemote) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}
	if r.DeviceID != "" {
		req.Header.Set("X-Device-ID", r.DeviceID)
	}

	client := r.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		return fmt.Errorf("%s %s: %s (status %d)", method, path, env.Message, resp.StatusCode)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

func (r *HTTPRemote) FetchComments(ctx context.Context, reviewID string) ([]model.Comment, error) {
	var data struct {
		Comments []model.Comment `json:"comments"`
	}
	if err := r.do(ctx, http.MethodGet, "/api/v1/reviews/"+reviewID+"/comments", nil, &data); err != nil {
		return nil, err
	}
	return data.Comments, nil
}

func (r *HTTPRemote) FetchReactions(ctx context.Context, _ model.Identity, commentIDs []string) ([]model.Reaction, error) {
	var data struct {
		Reactions []model.Reaction `json:"reactions"`
	}
	path := "/api/v1/comments/reactions?ids=" + url.QueryEscape(strings.Join(commentIDs, ","))
	if err := r.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Reactions, nil
}

func (r *HTTPRemote) FetchReview(ctx context.Context, reviewID string) (*model.Review, error) {
	var data struct {
		Review model.Review `json:"review"`
	}
	if err := r.do(ctx, http.MethodGet, "/api/v1/reviews/"+reviewID, nil, &data); err != nil {
		return nil, err
	}
	return &data.Review, nil
}

func (r *HTTPRemote) FetchReviews(ctx context.Context) ([]model.Review, error) {
	var data struct {
		Reviews []model.Review `json:"reviews"`
	}
	if err := r.do(ctx, http.MethodGet, "/api/v1/reviews", nil, &data); err != nil {
		return nil, err
	}
	return data.Reviews, nil
}

func (r *HTTPRemote) CreateComment(ctx context.Context, in CreateCommentInput) (*model.Comment, error) {
	payload := map[string]interface{}{
		"review_id": in.ReviewID,
		"parent_id": in.ParentID,
		"body":      in.Body,
		"author":    in.Author,
	}
	var data struct {
		Comment model.Comment `json:"comment"`
	}
	if err := r.do(ctx, http.MethodPost, "/api/v1/comments", payload, &data); err != nil {
		return nil, err
	}
	return &data.Comment, nil
}

func (r *HTTPRemote) UpdateCommentBody(ctx context.Context, commentID, body string) error {
	return r.do(ctx, http.MethodPut, "/api/v1/comments/"+commentID, map[string]string{"body": body}, nil)
}

func (r *HTTPRemote) ReportComment(ctx context.Context, commentID, reason string) error {
	return r.do(ctx, http.MethodPost, "/api/v1/comments/"+commentID+"/report", map[string]string{"reason": reason}, nil)
}

func (r *HTTPRemote) DeleteComment(ctx context.Context, commentID string) error {
	return r.do(ctx, http.MethodDelete, "/api/v1/comments/"+commentID, nil, nil)
}

func (r *HTTPRemote) ToggleReaction(ctx context.Context, commentID string, _ model.Identity, typ model.ReactionType) error {
	return r.do(ctx, http.MethodPost, "/api/v1/comments/"+commentID+"/reactions", map[string]string{"type": string(typ)}, nil)
}

func (r *HTTPRemote) CreateHelpfulVote(ctx context.Context, reviewID string, _ model.Identity) (bool, error) {
	var data struct {
		AlreadyVoted bool `json:"already_voted"`
	}
	if err := r.do(ctx, http.MethodPost, "/api/v1/reviews/"+reviewID+"/helpful", nil, &data); err != nil {
		return false, err
	}
	return data.AlreadyVoted, nil
}

func (r *HTTPRemote) CheckHelpfulVote(ctx context.Context, reviewID string, _ model.Identity) (bool, error) {
	var data struct {
		Voted bool `json:"voted"`
	}
	if err := r.do(ctx, http.MethodGet, "/api/v1/reviews/"+reviewID+"/helpful", nil, &data); err != nil {
		return false, err
	}
	return data.Voted, nil
}

// SubscribeComments dials the per-review websocket channel and yields decoded
// change-feed frames until Close or a read error.
func (r *HTTPRemote) SubscribeComments(ctx context.Context, reviewID string) (FeedStream, error) {
	wsURL, err := r.feedURL(reviewID)
	if err != nil {
		return nil, err
	}

	dialer := r.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	if r.DeviceID != "" {
		header.Set("X-Device-ID", r.DeviceID)
	}
	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}

	stream := &wsFeedStream{conn: conn, events: make(chan model.FeedEvent, 16)}
	go stream.readLoop()
	return stream, nil
}

func (r *HTTPRemote) feedURL(reviewID string) (string, error) {
	u, err := url.Parse(r.BaseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/reviews/" + reviewID
	if r.Token != "" {
		q := u.Query()
		q.Set("token", r.Token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

type wsFeedStream struct {
	conn   *websocket.Conn
	events chan model.FeedEvent
}

func (s *wsFeedStream) Events() <-chan model.FeedEvent { return s.events }

func (s *wsFeedStream) Close() error {
	return s.conn.Close()
}

func (s *wsFeedStream) readLoop() {
	defer close(s.events)
	for {
		var ev model.FeedEvent
		if err := s.conn.ReadJSON(&ev); err != nil {
			return
		}
		s.events <- ev
	}
}
