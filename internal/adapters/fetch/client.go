// Package fetch pulls the applications list from the admissions SOAP service.
package fetch

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/pkg/logger"
	"github.com/okian/admstats/pkg/metrics"
)

// Envelope is the SOAP 1.2 request asking for the applications list.
const Envelope = `<?xml version="1.0" encoding="utf-8"?>` +
	`<s12:Envelope xmlns:s12='http://www.w3.org/2003/05/soap-envelope'>` +
	`<s12:Body><ns1:GetStudentsList xmlns:ns1='http://www.DVFU_Univer.org' /></s12:Body>` +
	`</s12:Envelope>`

const (
	defaultTimeout  = 5 * time.Minute
	defaultMaxBytes = 1 << 30
)

// Client fetches snapshots from the upstream service.
type Client struct {
	url      string
	login    string
	password string
	timeout  time.Duration
	maxBytes int64
	http     *http.Client
	now      func() time.Time
	logger   logger.Logger
}

// New constructs a client for url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:      url,
		timeout:  defaultTimeout,
		maxBytes: defaultMaxBytes,
		http:     &http.Client{},
		now:      time.Now,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads the current applications list. Every record in the returned
// snapshot is first seen at the capture time.
func (c *Client) Fetch(ctx context.Context) (*model.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	capturedAt := c.now()
	start := time.Now()
	payload, err := c.call(ctx)
	metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, err
	}
	metrics.RecordFetchBytes(len(payload))

	snap, err := model.DecodeUpstream(strings.NewReader(payload), capturedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	c.logger.Info(ctx, "fetched applications",
		logger.Int("records", snap.Len()),
		logger.Int("applicants", snap.Applicants()),
		logger.Duration("took", time.Since(start)),
	)
	return snap, nil
}

// call performs the SOAP exchange and returns the embedded JSON payload.
func (c *Client) call(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(Envelope))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/xml")
	if c.login != "" || c.password != "" {
		req.SetBasicAuth(c.login, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}
	if int64(len(body)) > c.maxBytes {
		return "", fmt.Errorf("%w: response exceeds %d bytes", ErrUpstream, c.maxBytes)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return extractPayload(body)
}

// node is a generic XML element.
type node struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
	Nodes   []node `xml:",any"`
}

// extractPayload returns the text of Envelope/Body/<response>/<result>.
func extractPayload(body []byte) (string, error) {
	var root node
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&root); err != nil {
		return "", fmt.Errorf("%w: malformed envelope: %w", ErrUpstream, err)
	}
	cur := root
	for depth := 0; depth < 3; depth++ {
		if len(cur.Nodes) == 0 {
			return "", fmt.Errorf("%w: envelope has no payload at depth %d under <%s>", ErrUpstream, depth+1, cur.XMLName.Local)
		}
		cur = cur.Nodes[0]
	}
	payload := strings.TrimSpace(cur.Text)
	if payload == "" {
		return "", fmt.Errorf("%w: empty payload in <%s>", ErrUpstream, cur.XMLName.Local)
	}
	return payload, nil
}
