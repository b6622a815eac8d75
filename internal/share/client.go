// Package share publishes a set of image URLs to a share-link service.
package share

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultEndpoint is the local share service.
const DefaultEndpoint = "http://localhost:3000/api/create"

// DefaultTitle is used when the caller leaves Title empty.
const DefaultTitle = "My Image Collection"

// maxResponseBytes caps the service reply.
const maxResponseBytes = 1 << 20

var (
	// ErrNoURLs is returned for an empty request.
	ErrNoURLs = errors.New("share: no image urls")

	// ErrUnparseable is returned when the reply is neither usable JSON nor XML.
	ErrUnparseable = errors.New("share: unrecognised response")
)

// StatusError is returned for non-2xx replies.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("share: server returned %d", e.Code)
	}
	return fmt.Sprintf("share: server returned %d: %s", e.Code, e.Body)
}

// Request describes a collection to publish.
type Request struct {
	URLs        []string
	Title       string
	Description string
	Tags        []string
	Private     *bool // nil leaves the field out
}

// Client posts collections to a share endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a Client. Empty endpoint means DefaultEndpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string { return c.endpoint }

// Create publishes req and returns the share URL.
func (c *Client) Create(ctx context.Context, req Request) (string, error) {
	urls := dedupe(req.URLs)
	if len(urls) == 0 {
		return "", ErrNoURLs
	}

	body, contentType, err := encodeForm(req, urls)
	if err != nil {
		return "", fmt.Errorf("share: encode form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("share: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json, application/xml;q=0.9, */*;q=0.5")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("share: post: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("share: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(truncate(string(data), 200))}
	}

	return ParseResponse(data)
}

// encodeForm builds the multipart body the service expects.
func encodeForm(req Request, urls []string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	title := req.Title
	if title == "" {
		title = DefaultTitle
	}
	fields := [][2]string{{"title", title}}
	if req.Description != "" {
		fields = append(fields, [2]string{"description", req.Description})
	}
	i := 0
	for _, tag := range req.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		fields = append(fields, [2]string{fmt.Sprintf("tags[%d]", i), tag})
		i++
	}
	if req.Private != nil {
		fields = append(fields, [2]string{"isPrivate", strconv.FormatBool(*req.Private)})
	}
	for i, u := range urls {
		fields = append(fields, [2]string{fmt.Sprintf("images[%d]", i), u})
	}

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

type jsonReply struct {
	URL    string `json:"url"`
	Result string `json:"result"`
}

// ParseResponse extracts the share URL from a JSON body with a url or
// result field, or from an XML body whose Status is OK. The XML Result is
// percent-decoded.
func ParseResponse(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", ErrUnparseable
	}

	var jr jsonReply
	if err := json.Unmarshal(trimmed, &jr); err == nil {
		switch {
		case jr.URL != "":
			return jr.URL, nil
		case jr.Result != "":
			return jr.Result, nil
		}
		return "", ErrUnparseable
	}

	status, result, err := scanXML(trimmed)
	if err != nil || status != "OK" || result == "" {
		return "", ErrUnparseable
	}
	decoded, err := url.PathUnescape(result)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return decoded, nil
}

// scanXML returns the text of the first Status and Result elements at
// any depth.
func scanXML(data []byte) (status, result string, err error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		current      string
		text         strings.Builder
		gotStatus    bool
		gotResult    bool
		sawAnyTokens bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", "", err
		}
		sawAnyTokens = true

		switch t := tok.(type) {
		case xml.StartElement:
			if (t.Name.Local == "Status" && !gotStatus) || (t.Name.Local == "Result" && !gotResult) {
				current = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if current != "" {
				text.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == current {
				switch current {
				case "Status":
					status, gotStatus = strings.TrimSpace(text.String()), true
				case "Result":
					result, gotResult = strings.TrimSpace(text.String()), true
				}
				current = ""
			}
		}
		if gotStatus && gotResult {
			break
		}
	}
	if !sawAnyTokens {
		return "", "", ErrUnparseable
	}
	return status, result, nil
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
