package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestPostJSONSendsBearerAndBody(t *testing.T) {
	var gotAuth, gotBeta, gotType string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBeta = r.Header.Get("OpenAI-Beta")
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "sk-test"})))
	resp, err := c.PostJSON(context.Background(), srv.URL, map[string]string{"model": "gpt-5"},
		map[string]string{"OpenAI-Beta": "assistants=v2"})
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "assistants=v2", gotBeta)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "gpt-5", gotBody["model"])
}

func TestPostJSONReturnsErrorStatusesAsResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad things", http.StatusBadRequest)
	}))
	defer srv.Close()

	resp, err := New().PostJSON(context.Background(), srv.URL, struct{}{}, nil)
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "bad things")
}

func TestPostMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "assistants", r.FormValue("purpose"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)

		assert.Equal(t, "scan.pdf", hdr.Filename)
		assert.Equal(t, "application/pdf", hdr.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF", string(data))
		_, _ = w.Write([]byte(`{"id":"file-1"}`))
	}))
	defer srv.Close()

	resp, err := New().PostMultipart(context.Background(), srv.URL,
		map[string]string{"purpose": "assistants"},
		FilePart{Field: "file", Filename: "scan.pdf", MediaType: "application/pdf", Data: []byte("%PDF")},
		nil)
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.JSONEq(t, `{"id":"file-1"}`, string(resp.Body))
}

func TestDefaultHeadersDoNotOverrideRequestHeaders(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("OpenAI-Organization"))
	}))
	defer srv.Close()

	c := New(WithHeader("OpenAI-Organization", "org-default"), WithHeader("X-Empty", ""))
	_, err := c.PostJSON(context.Background(), srv.URL, nil, nil)
	require.NoError(t, err)
	_, err = c.PostJSON(context.Background(), srv.URL, nil, map[string]string{"OpenAI-Organization": "org-x"})
	require.NoError(t, err)

	assert.Equal(t, []string{"org-default", "org-x"}, got)
	assert.NotContains(t, c.headers, "X-Empty")
}

func TestRateLimitHonoursContext(t *testing.T) {
	c := New(WithRateLimit(0.001))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := c.PostJSON(context.Background(), srv.URL, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.PostJSON(ctx, srv.URL, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
}
