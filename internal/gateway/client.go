// Package gateway is the client of the remote room API. Transport and
// HTTP failures are normalized into the domain error taxonomy so callers
// never see status codes.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cwrk-planet/codeshare/internal/domain"
)

type Options struct {
	BaseURL string
	Timeout time.Duration

	// Token и Email прикрепляются к каждому запросу; пустые значения —
	// guest-доступ, сервер сам применяет guest-семантику.
	Token string
	Email string
}

type Client struct {
	http *resty.Client
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json")
	if opts.Token != "" {
		c.SetHeader("Authorization", "Bearer "+opts.Token)
	}
	if opts.Email != "" {
		c.SetHeader("X-User-Email", opts.Email)
	}
	return &Client{http: c}
}

// Create allocates a room server-side. POST /rooms → 201 Room.
func (c *Client) Create(ctx context.Context, seed CreateRoomRequest) (*domain.Room, error) {
	var room domain.Room
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(seed).
		SetResult(&room).
		Post("/rooms")
	if err := c.check(resp, err); err != nil {
		return nil, fmt.Errorf("gateway.Create: %w", err)
	}
	return &room, nil
}

// Get fetches a room by id. GET /rooms/{id} → 200 Room | 404.
func (c *Client) Get(ctx context.Context, id string) (*domain.Room, error) {
	var room domain.Room
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&room).
		Get("/rooms/" + id)
	if err := c.check(resp, err); err != nil {
		return nil, fmt.Errorf("gateway.Get: %w", err)
	}
	return &room, nil
}

// Patch applies a partial update; only provided fields change and
// lastEdited is server-assigned. PATCH /rooms/{id} → 200 Room.
func (c *Client) Patch(ctx context.Context, id string, patch domain.RoomPatch) (*domain.Room, error) {
	var room domain.Room
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(patch).
		SetResult(&room).
		Patch("/rooms/" + id)
	if err := c.check(resp, err); err != nil {
		return nil, fmt.Errorf("gateway.Patch: %w", err)
	}
	return &room, nil
}

// Share upserts or removes a membership. PATCH /rooms/{id}/share → 200 Room.
func (c *Client) Share(ctx context.Context, id string, req ShareRequest) (*domain.Room, error) {
	var room domain.Room
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&room).
		Patch("/rooms/" + id + "/share")
	if err := c.check(resp, err); err != nil {
		return nil, fmt.Errorf("gateway.Share: %w", err)
	}
	return &room, nil
}

// List returns the caller's rooms split into owned and shared.
// GET /rooms → 200 {owned, shared}.
func (c *Client) List(ctx context.Context) (RoomList, error) {
	var list RoomList
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&list).
		Get("/rooms")
	if err := c.check(resp, err); err != nil {
		return RoomList{}, fmt.Errorf("gateway.List: %w", err)
	}
	return list, nil
}

// Delete destroys the room. DELETE /rooms/{id} → 204.
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/rooms/" + id)
	if err := c.check(resp, err); err != nil {
		return fmt.Errorf("gateway.Delete: %w", err)
	}
	return nil
}

// Health probes the API. GET /health → 200.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err := c.check(resp, err); err != nil {
		return fmt.Errorf("gateway.Health: %w", err)
	}
	return nil
}

func (c *Client) check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	if !resp.IsError() {
		return nil
	}

	var body ErrorResponse
	_ = json.Unmarshal(resp.Body(), &body)

	switch resp.StatusCode() {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return wrap(domain.ErrForbidden, body.Error)
	case http.StatusConflict:
		return wrap(domain.ErrConflict, body.Error)
	default:
		return fmt.Errorf("%w: status %d: %s", domain.ErrTransport, resp.StatusCode(), body.Error)
	}
}

func wrap(sentinel error, detail string) error {
	if detail == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, detail)
}
