package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tandempv/xystage/pkg/types"
)

// Client talks to the xystage daemon over its unix socket.
type Client struct {
	socketPath string
	httpClient *http.Client
}

// NewClient returns a Client for the daemon listening on socketPath.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					conn, err := d.DialContext(ctx, "unix", socketPath)
					if err != nil {
						if errors.Is(err, fs.ErrNotExist) || isConnRefused(err) {
							return nil, ErrDaemonNotRunning
						}
						if errors.Is(err, fs.ErrPermission) {
							return nil, ErrPermissionDenied
						}
						logrus.Errorf("failed to connect to unix socket: %v", err)
						return nil, err
					}
					return conn, nil
				},
			},
		},
	}
}

// Send issues method on path with an optional JSON body and returns the
// response body. Non-2xx responses become errors carrying the daemon's
// error kind.
func (c *Client) Send(method string, path string, data string) (string, error) {
	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"data":   data,
		"unix":   c.socketPath,
	}).Debug("sending request")

	var body io.Reader
	if data != "" {
		body = strings.NewReader(data)
	}
	req, err := http.NewRequest(method, "http://unix"+path, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if data != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", responseError(resp.StatusCode, b)
	}
	return string(b), nil
}

func (c *Client) Get(path string) (string, error) {
	return c.Send(http.MethodGet, path, "")
}

func (c *Client) Post(path string, data string) (string, error) {
	return c.Send(http.MethodPost, path, data)
}

func (c *Client) Put(path string, data string) (string, error) {
	return c.Send(http.MethodPut, path, data)
}

func (c *Client) Delete(path string) (string, error) {
	return c.Send(http.MethodDelete, path, "")
}

// getJSON GETs path and decodes the body into a T.
func getJSON[T any](c *Client, path string) (T, error) {
	var v T
	ret, err := c.Get(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return v, nil
}

// sendJSON sends in as the body of method on path and decodes the reply
// into a T. A nil in sends no body.
func sendJSON[T any](c *Client, method, path string, in any) (T, error) {
	var v T
	var data string
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return v, err
		}
		data = string(b)
	}
	ret, err := c.Send(method, path, data)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return v, nil
}

// responseError turns an error reply into an error that matches the
// daemon-side sentinel with errors.Is.
func responseError(status int, body []byte) error {
	if status == http.StatusNotFound {
		return ErrNotFound
	}
	var e types.Error
	if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
		return fmt.Errorf("got %d: %s", status, strings.TrimSpace(string(body)))
	}
	if sentinel := types.SentinelOf(e.Kind); sentinel != nil {
		return &Error{Status: status, Kind: e.Kind, Message: e.Error, sentinel: sentinel}
	}
	return &Error{Status: status, Kind: e.Kind, Message: e.Error}
}
