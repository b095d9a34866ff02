package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Resource paths of the dependent collections.
const (
	Properties    = "properties"
	TimelineItems = "timeline-items"
)

// Client wraps HTTP access to the Strapi REST API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// AuthToken is used for Authorization: Bearer <token>.
	AuthToken string

	// Collection is the consultant collection, e.g. "consultants".
	Collection string
}

// NewClient constructs a new API client.
//
// BaseURL is the scheme + host of the CMS, for example:
//
//	http://localhost:1337
func NewClient(baseURL, authToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: httpClient,
		AuthToken:  authToken,
		Collection: "consultants",
	}
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("strapi: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// FindConsultant returns the first consultant matching lookup, or nil when
// there is none.
//
//	GET /api/consultants?filters[contactInfo][Email][$eq]=...
//	GET /api/consultants?filters[firstName][$eq]=...&filters[lastName][$eq]=...
func (c *Client) FindConsultant(ctx context.Context, lookup Lookup) (*Ref, error) {
	params := url.Values{}
	switch {
	case lookup.Email != "":
		params.Set("filters[contactInfo][Email][$eq]", lookup.Email)
	case lookup.FirstName != "" && lookup.LastName != "":
		params.Set("filters[firstName][$eq]", lookup.FirstName)
		params.Set("filters[lastName][$eq]", lookup.LastName)
	default:
		return nil, errors.New("lookup needs an email or both names")
	}

	var resp listResponse
	if err := c.doJSON(ctx, http.MethodGet, c.collectionPath()+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	ref := resp.Data[0]
	return &ref, nil
}

// CreateConsultant posts a new consultant.
func (c *Client) CreateConsultant(ctx context.Context, payload Consultant) (Ref, error) {
	return c.CreateEntry(ctx, c.Collection, payload)
}

// UpdateConsultant replaces the fields of an existing consultant. The
// returned Ref falls back to documentID when the response omits it.
func (c *Client) UpdateConsultant(ctx context.Context, ref Ref, payload Consultant) (Ref, error) {
	if ref.DocumentID == "" {
		return Ref{}, errors.New("update needs a document id")
	}

	var resp entryResponse
	p := c.collectionPath() + "/" + url.PathEscape(ref.DocumentID)
	if err := c.doJSON(ctx, http.MethodPut, p, envelope{Data: payload}, &resp); err != nil {
		return Ref{}, err
	}
	if resp.Data.DocumentID == "" {
		return ref, nil
	}
	return resp.Data, nil
}

// CreateEntry posts payload wrapped in {"data": ...} to /api/{resource}.
func (c *Client) CreateEntry(ctx context.Context, resource string, payload any) (Ref, error) {
	var resp entryResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/"+resource, envelope{Data: payload}, &resp); err != nil {
		return Ref{}, err
	}
	if resp.Data.ID == 0 {
		return Ref{}, fmt.Errorf("strapi: POST /api/%s: response has no id", resource)
	}
	return resp.Data, nil
}

// Upload sends one file to the media library and returns its numeric id.
func (c *Client) Upload(ctx context.Context, filename string, content []byte, contentType string) (int, error) {
	if contentType == "" {
		contentType = detectContentType(filename, content)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return 0, err
	}
	if _, err := part.Write(content); err != nil {
		return 0, err
	}
	if err := mw.Close(); err != nil {
		return 0, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/upload", &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return 0, err
	}
	return parseUploadResponse(raw)
}

// UploadFile uploads a local file.
func (c *Client) UploadFile(ctx context.Context, filePath string) (int, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", filePath, err)
	}
	return c.Upload(ctx, filepath.Base(filePath), content, "")
}

// UploadURL downloads rawURL and uploads it under the URL's base name.
func (c *Client) UploadURL(ctx context.Context, rawURL string) (int, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return 0, fmt.Errorf("parsing image url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return 0, fmt.Errorf("unsupported image url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("downloading %s: status %d", u.Redacted(), resp.StatusCode)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("downloading %s: %w", u.Redacted(), err)
	}

	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "image"
	}
	return c.Upload(ctx, name, content, resp.Header.Get("Content-Type"))
}

func (c *Client) collectionPath() string {
	return "/api/" + c.Collection
}

func (c *Client) doJSON(ctx context.Context, method, p string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, p, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, p, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{
			Method:     req.Method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// newRequest is a helper to build an HTTP request with auth headers.
func (c *Client) newRequest(ctx context.Context, method, p string, body io.Reader) (*http.Request, error) {
	if c.BaseURL == "" {
		return nil, errors.New("client BaseURL is empty")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+p, body)
	if err != nil {
		return nil, err
	}

	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// parseUploadResponse accepts both the v5 bare list and the older
// {"data": [...]} shape.
func parseUploadResponse(raw json.RawMessage) (int, error) {
	var files []uploadedFile
	if err := json.Unmarshal(raw, &files); err == nil {
		if len(files) > 0 && files[0].ID != 0 {
			return files[0].ID, nil
		}
		return 0, fmt.Errorf("unexpected upload response: %s", raw)
	}

	var wrapped struct {
		Data []uploadedFile `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Data) > 0 && wrapped.Data[0].ID != 0 {
		return wrapped.Data[0].ID, nil
	}
	return 0, fmt.Errorf("unexpected upload response: %s", raw)
}

func detectContentType(filename string, content []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return http.DetectContentType(content)
}
