package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slipdesk/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestIntake_MultipartParts(t *testing.T) {
	var gotMeta, gotType, gotName, gotToken string
	var gotContent []byte

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_read/lectura", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotMeta = r.FormValue("meta")
		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		gotContent, _ = io.ReadAll(f)
		gotType = fh.Header.Get("Content-Type")
		gotName = fh.Filename
		gotToken = r.Header.Get(CorrelationHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	var meta model.Metadata
	meta.Set("nombre", "Ana")
	meta.Set("correo", nil)

	resp, err := c.Intake(context.Background(), model.File{
		Name:        "recibo.png",
		ContentType: "image/png",
		Size:        3,
		Content:     []byte{1, 2, 3},
	}, meta, "abc123def456")
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.True(t, resp.IsJSON())
	assert.Equal(t, `{"nombre":"Ana","correo":null}`, gotMeta)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, "recibo.png", gotName)
	assert.Equal(t, []byte{1, 2, 3}, gotContent)
	assert.Equal(t, "abc123def456", gotToken)
}

func TestCorrelate_SendsSourceAndHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/_datos/datos", r.URL.Path)
		assert.Equal(t, "manual", r.URL.Query().Get("source"))
		assert.Equal(t, "tok", r.Header.Get(CorrelationHeader))
		w.WriteHeader(http.StatusNotFound)
	})

	resp, err := c.Correlate(context.Background(), "tok", "manual")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.False(t, resp.OK())
}

func TestSessionCookieForwarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(SessionCookieName)
		require.NoError(t, err)
		assert.Equal(t, "s3cr3t", ck.Value)
	}))
	defer srv.Close()

	c := New(srv.URL, WithSession("s3cr3t"))
	_, err := c.Correlate(context.Background(), "t", "auto")
	require.NoError(t, err)
}

func TestSearch_DecodesResultSet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ana", r.URL.Query().Get("q"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true, "count": 120, "limit": 50, "offset": 0,
			"results": []map[string]any{{
				"filename": "a.png", "size_bytes": 10, "ext": ".png",
				"parts": map[string]any{"nombre": "Ana", "banco": "Nequi"},
			}},
		})
	})

	rs, err := c.Search(context.Background(), model.SearchParams{Q: "ana", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 120, rs.Count)
	require.Len(t, rs.Results, 1)
	assert.Equal(t, "Nequi", rs.Results[0].Parts.Banco)
}

func TestSearch_NonJSONIsHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<h1>bad gateway</h1>"))
	})

	_, err := c.Search(context.Background(), model.SearchParams{Q: "x"})
	require.Error(t, err)
	assert.True(t, IsHTTP(err))
	assert.Contains(t, err.Error(), "bad gateway")
}

func TestSearch_MissingResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"count":0}`))
	})

	_, err := c.Search(context.Background(), model.SearchParams{Q: "x"})
	assert.ErrorIs(t, err, ErrUnexpectedBody)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := New(addr)
	_, err := c.Correlate(context.Background(), "t", "auto")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.False(t, IsCanceled(err))
}

func TestCanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Search(ctx, model.SearchParams{Q: "x"})
	require.Error(t, err)
	assert.True(t, IsCanceled(err))
}

func TestManualIntake_URLEncoded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Ana", r.PostForm.Get("nombre"))
		assert.Equal(t, "05/03/2025", r.PostForm.Get("FECHA"))
	})

	_, err := c.ManualIntake(context.Background(), url.Values{
		"nombre": {"Ana"},
		"FECHA":  {"05/03/2025"},
	}, "")
	require.NoError(t, err)
}

func TestDownload_KeepsSlashes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_download/reports/2025/informe.pdf", r.URL.Path)
		_, _ = w.Write([]byte("%PDF"))
	})

	var buf bytes.Buffer
	require.NoError(t, c.Download(context.Background(), "reports/2025/informe.pdf", &buf))
	assert.Equal(t, "%PDF", buf.String())
}

func TestProductOptions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"options":["ESTA","Canadá"]}`))
	})

	opts, err := c.ProductOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ESTA", "Canadá"}, opts)
}
