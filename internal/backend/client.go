// Package backend is the HTTP transport to the evidence intake backend.
//
// The client never classifies responses: it returns the status, content type
// and body of every response it receives, and a *TransportError when it
// receives none. Classification belongs to the callers (intake, search,
// report), which each apply their own contract to the raw response.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/slipdesk/internal/model"
)

const (
	// CorrelationHeader links a primary call to its follow-up call.
	CorrelationHeader = "X-Correlation-Id"

	// SessionCookieName is the gateway session cookie forwarded on every call.
	SessionCookieName = "yarbis_session"

	// DefaultTimeout bounds every call when no other timeout is configured.
	DefaultTimeout = 30 * time.Second
)

// Endpoints are the backend paths, relative to the base URL.
type Endpoints struct {
	Intake         string `yaml:"intake"`
	Correlate      string `yaml:"correlate"`
	Manual         string `yaml:"manual"`
	ProductOptions string `yaml:"product_options"`
	Search         string `yaml:"search"`
	Evidence       string `yaml:"evidence"`
	Calendar       string `yaml:"calendar"`
	Report         string `yaml:"report"`
	Download       string `yaml:"download"`
}

// DefaultEndpoints returns the paths the gateway exposes the backend under.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Intake:         "/_read/lectura",
		Correlate:      "/_datos/datos",
		Manual:         "/_manualtotal/manualtotal",
		ProductOptions: "/_adj/product-options",
		Search:         "/_buscar/query",
		Evidence:       "/_buscar/_evid/",
		Calendar:       "/_calendario/calendario",
		Report:         "/_rango/rango",
		Download:       "/_download/",
	}
}

// Client is a typed client for the intake backend.
type Client struct {
	BaseURL    string
	Endpoints  Endpoints
	Session    string
	HTTPClient *http.Client

	logger *zap.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

// WithEndpoints overrides the endpoint paths.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) { c.Endpoints = e }
}

// WithSession forwards the gateway session cookie value.
func WithSession(value string) Option {
	return func(c *Client) { c.Session = value }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Endpoints: DefaultEndpoints(),
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Response is a raw backend response.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// IsJSON reports whether the content type declares a JSON body.
func (r *Response) IsJSON() bool {
	return strings.Contains(r.ContentType, "application/json")
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Object returns the body as a JSON object when the content type is JSON and
// the body is an object. It returns nil otherwise.
func (r *Response) Object() map[string]any {
	if !r.IsJSON() {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(r.Body, &obj); err != nil {
		return nil
	}
	return obj
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	accept      string
	token       string
}

func (c *Client) do(ctx context.Context, r request) (*Response, error) {
	op := r.method + " " + r.path
	target := c.BaseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}
	if r.token != "" {
		req.Header.Set(CorrelationHeader, r.token)
	}
	if c.Session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: c.Session})
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.Debug("backend call failed", zap.String("op", op), zap.Error(err))
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("backend call",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Intake posts a receipt and its metadata as multipart parts "file" and "meta".
func (c *Client) Intake(ctx context.Context, file model.File, meta model.Metadata, token string) (*Response, error) {
	metaJSON, err := meta.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	h.Set("Content-Type", file.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, fmt.Errorf("write file part: %w", err)
	}
	if err := mw.WriteField("meta", string(metaJSON)); err != nil {
		return nil, fmt.Errorf("write meta part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        c.Endpoints.Intake,
		body:        &buf,
		contentType: mw.FormDataContentType(),
		token:       token,
	})
}

// Correlate triggers correlated processing for token. source is "auto" or "manual".
func (c *Client) Correlate(ctx context.Context, token, source string) (*Response, error) {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   c.Endpoints.Correlate,
		query:  url.Values{"source": {source}},
		token:  token,
	})
}

// ManualIntake posts a manually transcribed receipt as a urlencoded form.
func (c *Client) ManualIntake(ctx context.Context, form url.Values, token string) (*Response, error) {
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        c.Endpoints.Manual,
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		token:       token,
	})
}

// ProductOptions fetches the product catalogue offered by the intake form.
func (c *Client) ProductOptions(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   c.Endpoints.ProductOptions,
		accept: "application/json",
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &HTTPError{Status: resp.Status, Message: ErrorMessage(resp)}
	}
	var out struct {
		Options []string `json:"options"`
	}
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("decode product options: %w", err)
	}
	return out.Options, nil
}

// Search runs a query against the evidence index.
//
// Non-2xx responses and non-JSON bodies return *HTTPError carrying the body
// text. A JSON body without a results array returns ErrUnexpectedBody.
func (c *Client) Search(ctx context.Context, p model.SearchParams) (*model.ResultSet, error) {
	q := url.Values{}
	if p.Q != "" {
		q.Set("q", p.Q)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}

	resp, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   c.Endpoints.Search,
		query:  q,
		accept: "application/json",
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsJSON() {
		return nil, &HTTPError{Status: resp.Status, Message: string(resp.Body)}
	}
	if !resp.OK() {
		return nil, &HTTPError{Status: resp.Status, Message: ErrorMessage(resp)}
	}

	var raw map[string]json.RawMessage
	if err := resp.DecodeJSON(&raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	results := bytes.TrimSpace(raw["results"])
	if len(results) == 0 || results[0] != '[' {
		return nil, ErrUnexpectedBody
	}

	var rs model.ResultSet
	if err := resp.DecodeJSON(&rs); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &rs, nil
}

// CalendarRun runs the daily calendar job for date (YYYY-MM-DD).
func (c *Client) CalendarRun(ctx context.Context, date string, makePDF, makeXLSX bool) (*Response, error) {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   c.Endpoints.Calendar,
		query: url.Values{
			"date":      {date},
			"make_pdf":  {strconv.FormatBool(makePDF)},
			"make_xlsx": {strconv.FormatBool(makeXLSX)},
		},
	})
}

// ReportRange generates an aggregate report. query carries preset, output
// flags and, for custom ranges, start and end.
func (c *Client) ReportRange(ctx context.Context, query url.Values) (*Response, error) {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   c.Endpoints.Report,
		query:  query,
	})
}

// Download streams the file at subpath under the download endpoint into w.
// subpath slashes are kept as path separators.
func (c *Client) Download(ctx context.Context, subpath string, w io.Writer) error {
	resp, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   c.Endpoints.Download + strings.TrimLeft(subpath, "/"),
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &HTTPError{Status: resp.Status, Message: ErrorMessage(resp)}
	}
	_, err = w.Write(resp.Body)
	return err
}
