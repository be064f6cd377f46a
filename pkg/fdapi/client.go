package fdapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"resty.dev/v3"
)

// Envelope is the common part of every v1 response.
type Envelope struct {
	Ret    int    `json:"ret"`
	Status string `json:"status"`
}

func (e *Envelope) envelope() *Envelope {
	return e
}

type enveloped interface {
	envelope() *Envelope
}

// Persistent is the long-lived login token kept by the browser between sessions.
type Persistent struct {
	ID     int64  `json:"id"`
	Series int64  `json:"series"`
	Token  string `json:"token"`
}

type Client struct {
	client *resty.Client
	logger *slog.Logger

	v1 string
	v2 string

	mu         sync.RWMutex
	jwt        string
	persistent string
}

func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		config = DefaultConfig
	}
	if config.APIv1 == "" || config.APIv2 == "" {
		return nil, fmt.Errorf("%w: both APIv1 and APIv2 are required", ErrConfig)
	}

	var client *resty.Client
	if config.TransportSettings != nil {
		client = resty.NewWithTransportSettings(config.TransportSettings)
	} else {
		client = resty.New()
	}

	for _, m := range config.RequestMiddlewares {
		client.AddRequestMiddleware(m)
	}
	for _, m := range config.ResponseMiddlewares {
		client.AddResponseMiddleware(m)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		client: client,
		logger: logger.With("component", "fdapi.Client"),
		v1:     strings.TrimSuffix(config.APIv1, "/"),
		v2:     strings.TrimSuffix(config.APIv2, "/"),
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SetJWT sets the session token sent with every request. An empty token logs out.
func (c *Client) SetJWT(jwt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jwt = jwt
}

func (c *Client) SetPersistent(p *Persistent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p == nil {
		c.persistent = ""
		return nil
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	c.persistent = string(raw)
	return nil
}

func (c *Client) r(ctx context.Context) *resty.Request {
	req := c.client.R().WithContext(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.jwt != "" {
		req.SetHeader("Authorization", "Iznik "+c.jwt)
	}
	if c.persistent != "" {
		req.SetHeader("Authorization2", c.persistent)
	}
	return req
}

// get performs a v2 read.
func (c *Client) get(ctx context.Context, path string, params url.Values, result any, policy LogPolicy) error {
	u := c.v2 + path

	req := c.r(ctx).SetQueryParamsFromValues(params)
	if result != nil {
		req.SetResult(result)
	}

	res, err := req.Get(u)
	return c.check(http.MethodGet, u, res, err, nil, policy)
}

// send performs a v1 write with a JSON body and checks the envelope.
func (c *Client) send(ctx context.Context, method, path string, body any, result enveloped, policy LogPolicy) error {
	u := c.v1 + path

	if result == nil {
		result = &Envelope{}
	}

	res, err := c.r(ctx).
		SetBody(body).
		SetResult(result).
		Execute(method, u)
	return c.check(method, u, res, err, result.envelope(), policy)
}

// del performs a v1 delete, parameters travel in the query string.
func (c *Client) del(ctx context.Context, path string, params url.Values, policy LogPolicy) error {
	u := c.v1 + path
	env := &Envelope{}

	res, err := c.r(ctx).
		SetQueryParamsFromValues(params).
		SetResult(env).
		Delete(u)
	return c.check(http.MethodDelete, u, res, err, env, policy)
}

func (c *Client) check(method, u string, res *resty.Response, err error, env *Envelope, policy LogPolicy) error {
	switch {
	case err != nil:
		err = fmt.Errorf("%s %s: %w", method, u, err)
	case res.IsError():
		err = &APIError{Method: method, URL: u, StatusCode: res.StatusCode(), Status: res.Status()}
	case env != nil && env.Ret != 0:
		err = &APIError{Method: method, URL: u, StatusCode: res.StatusCode(), Ret: env.Ret, Status: env.Status}
	default:
		return nil
	}

	if policy == nil || policy(err) {
		c.logger.Error("api call failed", "method", method, "url", u, "error", err)
	}
	return err
}

func idParam(id int64) string {
	return fmt.Sprintf("%d", id)
}
