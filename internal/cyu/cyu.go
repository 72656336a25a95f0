package cyu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pershin-daniil/icscal/pkg/metrics"
)

var (
	ErrUnauthorized = errors.New("unauthorized by calendar site")
	ErrRemote       = errors.New("calendar site request failed")
)

const requestTimeout = 30 * time.Second

// Client talks to the university calendar site. Redirects are never
// followed: a redirect after logon is how the site signals success.
type Client struct {
	log     *logrus.Entry
	http    *http.Client
	baseURL string
}

func New(log *logrus.Logger, baseURL string) *Client {
	return &Client{
		log: log.WithField("component", "cyu"),
		http: &http.Client{
			Timeout: requestTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *Client) get(ctx context.Context, method, path, cookie string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	return c.do(method, req)
}

func (c *Client) postForm(ctx context.Context, method, path, cookie string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	return c.do(method, req)
}

func (c *Client) do(method string, req *http.Request) (*http.Response, error) {
	started := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamDuration.WithLabelValues(method).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.UpstreamErrCount.WithLabelValues(method).Inc()
		c.log.Warnf("err during %s: %v", method, err)
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return resp, nil
}

func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warnf("err during closing body: %v", err)
		}
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return body, nil
}
