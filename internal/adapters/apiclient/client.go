// Package apiclient implements core.SpaceRepository against the spaces
// backend REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dkeye/Spaces/internal/core"
	"github.com/dkeye/Spaces/internal/domain"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return core.ErrSpaceNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) FetchSpaceByID(ctx context.Context, id domain.SpaceID) (*domain.Space, error) {
	var space domain.Space
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/spaces/%s", id), nil, &space); err != nil {
		return nil, err
	}
	return &space, nil
}

func (c *Client) UpdateSpace(ctx context.Context, id domain.SpaceID, patch core.SpacePatch) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/spaces/%s", id), patch, nil)
}

func (c *Client) JoinSpace(ctx context.Context, id domain.SpaceID, p domain.ParticipantData, autoApprove bool) error {
	body := struct {
		Participant domain.ParticipantData `json:"participant"`
		AutoApprove bool                   `json:"autoApprove"`
	}{p, autoApprove}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/spaces/%s/join", id), body, nil)
}

func (c *Client) LeaveSpace(ctx context.Context, id domain.SpaceID, userID domain.UserID) error {
	body := struct {
		UserID domain.UserID `json:"userId"`
	}{userID}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/spaces/%s/leave", id), body, nil)
}

func (c *Client) MuteParticipant(ctx context.Context, id domain.SpaceID, target domain.UserID, muted bool) error {
	body := struct {
		Muted bool `json:"muted"`
	}{muted}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/spaces/%s/participants/%s/mute", id, target), body, nil)
}

func (c *Client) BanParticipant(ctx context.Context, id domain.SpaceID, target domain.UserID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/spaces/%s/participants/%s/ban", id, target), nil, nil)
}

func (c *Client) RequestToSpeak(ctx context.Context, id domain.SpaceID, userID domain.UserID) error {
	body := struct {
		UserID domain.UserID `json:"userId"`
	}{userID}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/spaces/%s/requests/speak", id), body, nil)
}

func (c *Client) ApproveJoinRequest(ctx context.Context, id domain.SpaceID, userID domain.UserID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/spaces/%s/requests/join/%s/approve", id, userID), nil, nil)
}

func (c *Client) RejectJoinRequest(ctx context.Context, id domain.SpaceID, userID domain.UserID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/spaces/%s/requests/join/%s/reject", id, userID), nil, nil)
}

func (c *Client) ApproveRequest(ctx context.Context, id domain.SpaceID, userID domain.UserID, forSpeaking bool) error {
	body := struct {
		ForSpeaking bool `json:"forSpeaking"`
	}{forSpeaking}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/spaces/%s/requests/%s/approve", id, userID), body, nil)
}

func (c *Client) RejectRequest(ctx context.Context, id domain.SpaceID, userID domain.UserID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/spaces/%s/requests/%s/reject", id, userID), nil, nil)
}

func (c *Client) EndSpace(ctx context.Context, id domain.SpaceID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/spaces/%s/end", id), nil, nil)
}
