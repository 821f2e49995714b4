package socketrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tinytelemetry/craftpanel/internal/model"
)

// Client implements model.Controller over a Unix domain socket using JSON-RPC 2.0.
type Client struct {
	conn    net.Conn
	mu      sync.Mutex
	nextID  int
	scanner *bufio.Scanner
	encoder *json.Encoder
}

// Dial connects to the socket RPC server at the given path.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("socketrpc: dial: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), maxResponseSize)
	return &Client{
		conn:    conn,
		scanner: scanner,
		encoder: json.NewEncoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// maxResponseSize bounds one response line; RecentLines can carry the
// whole console buffer.
const maxResponseSize = 16 * 1024 * 1024

// DefaultCallTimeout applies when the context carries no deadline.
const DefaultCallTimeout = 30 * time.Second

// call performs a JSON-RPC call and unmarshals the result into dest.
func (c *Client) call(ctx context.Context, method string, params interface{}, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	var paramsData json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("socketrpc: marshal params: %w", err)
		}
		paramsData = data
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  paramsData,
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultCallTimeout)
	}
	c.conn.SetDeadline(deadline)
	defer c.conn.SetDeadline(time.Time{})

	if err := c.encoder.Encode(req); err != nil {
		return fmt.Errorf("socketrpc: send: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("socketrpc: read: %w", err)
		}
		return fmt.Errorf("socketrpc: connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("socketrpc: unmarshal response: %w", err)
	}

	if resp.Error != nil {
		return resp.Error
	}

	if dest != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, dest); err != nil {
			return fmt.Errorf("socketrpc: unmarshal result: %w", err)
		}
	}
	return nil
}

// Status implements model.Controller.
func (c *Client) Status(ctx context.Context) (model.Status, error) {
	var result model.Status
	err := c.call(ctx, "Status", nil, &result)
	return result, err
}

// RecentLines implements model.Controller.
func (c *Client) RecentLines(ctx context.Context) ([]string, error) {
	var result []string
	err := c.call(ctx, "RecentLines", nil, &result)
	return result, err
}

// Start implements model.Controller.
func (c *Client) Start(ctx context.Context) (model.StartResult, error) {
	var result model.StartResult
	err := c.call(ctx, "Start", nil, &result)
	return result, err
}

// Stop implements model.Controller.
func (c *Client) Stop(ctx context.Context) error {
	return c.call(ctx, "Stop", nil, nil)
}

// SendCommand implements model.Controller.
func (c *Client) SendCommand(ctx context.Context, command string) error {
	return c.call(ctx, "SendCommand", map[string]interface{}{"Command": command}, nil)
}

var _ model.Controller = (*Client)(nil)
