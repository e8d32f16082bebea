package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// Route names used to program and inspect FakeBackend.
const (
	RouteIntake    = "intake"
	RouteCorrelate = "correlate"
	RouteManual    = "manual"
	RouteOptions   = "product_options"
	RouteSearch    = "search"
	RouteCalendar  = "calendar"
	RouteReport    = "report"
	RouteDownload  = "download"
)

// Reply is a programmed backend response.
type Reply struct {
	Status      int
	ContentType string
	Body        string

	// Delay holds the reply back. The wait ends early if the client goes away.
	Delay time.Duration

	// Release, when set, holds the reply until it is closed or the client
	// goes away.
	Release chan struct{}
}

// JSON returns a JSON reply.
func JSON(status int, body string) Reply {
	return Reply{Status: status, ContentType: "application/json", Body: body}
}

// Text returns a plain-text reply.
func Text(status int, body string) Reply {
	return Reply{Status: status, ContentType: "text/plain; charset=utf-8", Body: body}
}

// Call is one request received by FakeBackend.
type Call struct {
	Seq    int
	Route  string
	Method string
	Path   string
	Query  url.Values
	Token  string

	// Session is the forwarded gateway cookie value.
	Session string

	// Intake multipart parts.
	Meta     string
	FileName string
	FileType string
	FileSize int

	// Form is the urlencoded body of manual submissions.
	Form url.Values

	// Canceled is set when the client went away before the reply was sent.
	Canceled bool
}

// FakeBackend is an httptest server speaking the intake backend's routes.
//
// Each route replies from a queue: replies are consumed in order and the last
// one repeats. An unprogrammed route answers 200 with an empty JSON object.
//
// Thread-safety: FakeBackend is safe for concurrent use.
type FakeBackend struct {
	Server *httptest.Server

	mu      sync.Mutex
	seq     int
	calls   []Call
	replies map[string][]Reply
	search  func(q string) Reply
	files   map[string]string
}

// NewFakeBackend starts a fake backend that is closed when the test ends.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	f := &FakeBackend{
		replies: make(map[string][]Reply),
		files:   make(map[string]string),
	}

	r := chi.NewRouter()
	r.Post("/_read/lectura", f.handle(RouteIntake))
	r.Post("/_datos/datos", f.handle(RouteCorrelate))
	r.Post("/_manualtotal/manualtotal", f.handle(RouteManual))
	r.Get("/_adj/product-options", f.handle(RouteOptions))
	r.Get("/_buscar/query", f.handle(RouteSearch))
	r.Post("/_calendario/calendario", f.handle(RouteCalendar))
	r.Post("/_rango/rango", f.handle(RouteReport))
	r.Get("/_download/*", f.download)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the server.
func (f *FakeBackend) URL() string {
	return f.Server.URL
}

// On queues replies for route.
func (f *FakeBackend) On(route string, replies ...Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[route] = append(f.replies[route], replies...)
}

// OnSearch answers search requests by query text. It takes precedence over
// replies queued with On.
func (f *FakeBackend) OnSearch(fn func(q string) Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.search = fn
}

// SetFile serves content under /_download/<subpath>.
func (f *FakeBackend) SetFile(subpath, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[subpath] = content
}

// Calls returns the recorded calls for route, or all calls when route is "".
func (f *FakeBackend) Calls(route string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if route == "" || c.Route == route {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of calls received on route.
func (f *FakeBackend) Count(route string) int {
	return len(f.Calls(route))
}

func (f *FakeBackend) next(route string, q string) Reply {
	f.mu.Lock()
	defer f.mu.Unlock()

	if route == RouteSearch && f.search != nil {
		return f.search(q)
	}
	queue := f.replies[route]
	if len(queue) == 0 {
		return JSON(http.StatusOK, `{}`)
	}
	reply := queue[0]
	if len(queue) > 1 {
		f.replies[route] = queue[1:]
	}
	return reply
}

func (f *FakeBackend) record(c Call) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	c.Seq = f.seq
	f.calls = append(f.calls, c)
	return len(f.calls) - 1
}

func (f *FakeBackend) markCanceled(idx int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[idx].Canceled = true
}

func (f *FakeBackend) handle(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := Call{
			Route:  route,
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Token:  r.Header.Get("X-Correlation-Id"),
		}
		if ck, err := r.Cookie("yarbis_session"); err == nil {
			c.Session = ck.Value
		}

		switch route {
		case RouteIntake:
			if err := r.ParseMultipartForm(32 << 20); err == nil {
				c.Meta = r.FormValue("meta")
				if file, fh, err := r.FormFile("file"); err == nil {
					c.FileName = fh.Filename
					c.FileType = fh.Header.Get("Content-Type")
					c.FileSize = int(fh.Size)
					file.Close()
				}
			}
		case RouteManual:
			if err := r.ParseForm(); err == nil {
				c.Form = r.PostForm
			}
		}

		idx := f.record(c)
		reply := f.next(route, c.Query.Get("q"))
		if !wait(r, reply) {
			f.markCanceled(idx)
			return
		}
		write(w, reply)
	}
}

func (f *FakeBackend) download(w http.ResponseWriter, r *http.Request) {
	subpath := chi.URLParam(r, "*")
	f.record(Call{Route: RouteDownload, Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()})

	f.mu.Lock()
	content, ok := f.files[subpath]
	f.mu.Unlock()
	if !ok {
		write(w, JSON(http.StatusNotFound, `{"detail":"not found"}`))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write([]byte(content))
}

// wait applies the reply's Delay and Release. It returns false if the client
// went away first.
func wait(r *http.Request, reply Reply) bool {
	if reply.Delay > 0 {
		t := time.NewTimer(reply.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-r.Context().Done():
			return false
		}
	}
	if reply.Release != nil {
		select {
		case <-reply.Release:
		case <-r.Context().Done():
			return false
		}
	}
	return true
}

func write(w http.ResponseWriter, reply Reply) {
	if reply.ContentType != "" {
		w.Header().Set("Content-Type", reply.ContentType)
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(reply.Body))
}
