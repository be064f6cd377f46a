package site_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"freegle/internal/config"
	"freegle/internal/site"
	"freegle/pkg/fdapi"
)

const expectedCSP = "object-src 'none'; worker-src blob:;"

type fakeMessages struct {
	calls atomic.Int32
}

func (f *fakeMessages) FetchMessage(_ context.Context, id int64, _ bool) (*fdapi.Message, error) {
	f.calls.Add(1)

	if id == 7 {
		return nil, errors.New("backend down")
	}

	return &fdapi.Message{
		ID:          id,
		Type:        "Offer",
		Subject:     "OFFER: Armchair (Exeter EX1)",
		TextBody:    "Comfy, needs collecting.",
		Attachments: []*fdapi.MessageAttachment{{ID: 1, Path: "https://images.ilovefreegle.org/img_1.jpg"}},
	}, nil
}

type siteFixture struct {
	server    *site.Server
	http      *httptest.Server
	messages  *fakeMessages
	publisher *recordingPublisher
}

func newSite(t *testing.T, public *config.Public) *siteFixture {
	t.Helper()
	return newSiteWithCache(t, public, 64)
}

func newSiteWithCache(t *testing.T, public *config.Public, cacheSize int) *siteFixture {
	t.Helper()

	assets := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(assets, "entry.js"), []byte("console.log('hi')"), 0o600))

	cache, err := site.NewMemoryCache(cacheSize)
	require.NoError(t, err)

	f := &siteFixture{messages: &fakeMessages{}, publisher: &recordingPublisher{}}

	f.server = &site.Server{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: &config.Config{
			AssetsDir:      assets,
			ReportsPerMin:  600,
			PrerenderExtra: []string{"/message/1", "/offline"},
		},
		Public:    public,
		Cache:     cache,
		Publisher: f.publisher,
		Messages:  f.messages,
	}
	require.NoError(t, f.server.Init(context.Background()))

	f.http = httptest.NewServer(f.server.Handler())
	t.Cleanup(f.http.Close)

	return f
}

func (f *siteFixture) do(t *testing.T, method, path string, body io.Reader) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(method, f.http.URL+path, body)
	require.NoError(t, err)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res, string(raw)
}

func TestServer(t *testing.T) {
	t.Parallel()

	public := &config.Public{UserSite: "https://www.ilovefreegle.org", FacebookAppID: "134980666550322"}

	t.Run("prerendered pages survive cache eviction", func(t *testing.T) {
		t.Parallel()

		f := newSiteWithCache(t, public, 1)
		require.NoError(t, f.server.Prerender(context.Background()))

		for _, path := range []string{"/about", "/privacy", "/offline"} {
			res, _ := f.do(t, http.MethodGet, path, nil)
			require.Equal(t, "prerender", res.Header.Get("X-Render-Mode"), path)
			require.Equal(t, "HIT", res.Header.Get("X-Cache"), path)
		}
	})

	t.Run("prerendered pages", func(t *testing.T) {
		t.Parallel()

		f := newSite(t, public)
		require.NoError(t, f.server.Prerender(context.Background()))

		res, body := f.do(t, http.MethodGet, "/about", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, "prerender", res.Header.Get("X-Render-Mode"))
		require.Equal(t, "HIT", res.Header.Get("X-Cache"))
		require.True(t, strings.HasPrefix(res.Header.Get("Content-Security-Policy"), expectedCSP))
		require.Contains(t, body, "<title>Freegle - Don&#39;t throw it away, give it away!</title>")
		require.Contains(t, body, `content="https://www.ilovefreegle.org/icon.png"`)
		require.Contains(t, body, `content="134980666550322"`)

		res, _ = f.do(t, http.MethodGet, "/offline", nil)
		require.Equal(t, "prerender", res.Header.Get("X-Render-Mode"))
		require.Equal(t, "HIT", res.Header.Get("X-Cache"))

		res, _ = f.do(t, http.MethodGet, "/message/1", nil)
		require.Equal(t, "isr", res.Header.Get("X-Render-Mode"), "ignored prefixes are not prerendered")
	})

	t.Run("client only pages", func(t *testing.T) {
		t.Parallel()

		f := newSite(t, public)

		res, body := f.do(t, http.MethodGet, "/chats/123", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, "client", res.Header.Get("X-Render-Mode"))
		require.Empty(t, res.Header.Get("X-Cache"))
		require.Contains(t, body, `data-mode="client"`)
		require.NotEmpty(t, res.Header.Get("Content-Security-Policy"))
	})

	t.Run("message previews", func(t *testing.T) {
		t.Parallel()

		f := newSite(t, public)

		res, body := f.do(t, http.MethodGet, "/message/42", nil)
		require.Equal(t, "isr", res.Header.Get("X-Render-Mode"))
		require.Equal(t, "MISS", res.Header.Get("X-Cache"))
		require.Equal(t, "public, max-age=0, s-maxage=600", res.Header.Get("Cache-Control"))
		require.Contains(t, body, "<title>OFFER: Armchair (Exeter EX1)</title>")
		require.Contains(t, body, `content="https://images.ilovefreegle.org/img_1.jpg"`)
		require.Contains(t, body, `content="https://www.ilovefreegle.org/message/42"`)

		res, _ = f.do(t, http.MethodGet, "/message/42", nil)
		require.Equal(t, "HIT", res.Header.Get("X-Cache"))
		require.Equal(t, int32(1), f.messages.calls.Load())
	})

	t.Run("message preview failures fall back to the default head", func(t *testing.T) {
		t.Parallel()

		f := newSite(t, public)

		res, body := f.do(t, http.MethodGet, "/message/7", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Contains(t, body, "<title>Freegle - Don&#39;t throw it away, give it away!</title>")
	})

	t.Run("assets", func(t *testing.T) {
		t.Parallel()

		f := newSite(t, public)

		res, body := f.do(t, http.MethodGet, "/_nuxt/entry.js", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, "console.log('hi')", body)
		require.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
		require.NotEmpty(t, res.Header.Get("Content-Security-Policy"))

		res, _ = f.do(t, http.MethodGet, "/_nuxt/missing.js", nil)
		require.Equal(t, http.StatusNotFound, res.StatusCode)
		require.NotEmpty(t, res.Header.Get("Content-Security-Policy"))
	})

	t.Run("assets below the deploy permalink", func(t *testing.T) {
		t.Parallel()

		f := newSite(t, &config.Public{DeployURL: "https://abc--freegle.netlify.app"})

		res, body := f.do(t, http.MethodGet, "/netlify/abc--freegle.netlify.app/_nuxt/entry.js", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, "console.log('hi')", body)
		require.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))

		_, body = f.do(t, http.MethodGet, "/about", nil)
		require.Contains(t, body, `src="/netlify/abc--freegle.netlify.app/_nuxt/entry.js"`)
	})

	t.Run("csp reports", func(t *testing.T) {
		t.Parallel()

		f := newSite(t, public)

		res, _ := f.do(t, http.MethodPost, "/csp-report", strings.NewReader(legacyReport))
		require.Equal(t, http.StatusNoContent, res.StatusCode)
		require.NotEmpty(t, res.Header.Get("Content-Security-Policy"))
		require.Len(t, f.publisher.published(), 1)
	})

	t.Run("unsupported methods", func(t *testing.T) {
		t.Parallel()

		f := newSite(t, public)

		res, _ := f.do(t, http.MethodPut, "/about", nil)
		require.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
		require.NotEmpty(t, res.Header.Get("Content-Security-Policy"))
	})
}
