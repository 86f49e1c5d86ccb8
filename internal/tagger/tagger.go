// Package tagger runs an external tagging engine as a subprocess and
// speaks its JSON protocol. One process is spawned per request: the
// sentence text goes in on stdin, the token and category analysis comes
// back on stdout.
package tagger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/scriptorium/lectio/core/align"
)

// DefaultTimeout bounds a single tagging request.
const DefaultTimeout = 60 * time.Second

// Request is the JSON request sent to the tagging engine.
type Request struct {
	Command string `json:"command"`
	Text    string `json:"text"`
}

// Response is the JSON response from the tagging engine.
type Response struct {
	Status     string               `json:"status"`
	Tokens     []align.Token        `json:"tokens,omitempty"`
	Categories []align.CategorySpan `json:"categories,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Client invokes a tagging engine binary. It implements align.Tagger.
type Client struct {
	// Path is the engine binary to execute.
	Path string
	// Args are extra arguments passed to the binary.
	Args []string
	// Timeout bounds each request; zero means DefaultTimeout.
	Timeout time.Duration
}

// New returns a client for the engine at path.
func New(path string, args ...string) *Client {
	return &Client{Path: path, Args: args}
}

// Tag sends one sentence to the engine and decodes its analysis.
func (c *Client) Tag(ctx context.Context, text string) (*align.Result, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqData, err := json.Marshal(&Request{Command: "tag", Text: text})
	if err != nil {
		return nil, fmt.Errorf("encoding tag request: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = bytes.NewReader(reqData)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("tagging engine timed out after %v", timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("tagging engine failed: %w (stderr: %s)", err, stderr.String())
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decoding tag response: %w (output: %s)", err, stdout.String())
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("tagging engine error: %s", resp.Error)
	}

	return &align.Result{Tokens: resp.Tokens, Categories: resp.Categories}, nil
}
