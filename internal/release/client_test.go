package release

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// newReleaseServer serves a latest-release document for acme/tool and one asset.
func newReleaseServer(t *testing.T, assetBody []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/repos/acme/tool/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		if r.Header.Get("User-Agent") != "tool-installer" {
			http.Error(w, "user agent required", http.StatusForbidden)
			return
		}

		_ = json.NewEncoder(w).Encode(Release{
			TagName: "v1.2.3",
			Assets: []Asset{
				{Name: "tool-linux-amd64", URL: srv.URL + "/download/tool-linux-amd64", Size: int64(len(assetBody))},
			},
		})
	})

	mux.HandleFunc("/download/tool-linux-amd64", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)

		w.Header().Set("Content-Length", strconv.Itoa(len(assetBody)))
		_, _ = w.Write(assetBody)
	})

	return srv, &hits
}

// TestLatest_DecodesMetadata fetches and decodes the latest release.
func TestLatest_DecodesMetadata(t *testing.T) {
	t.Parallel()

	srv, _ := newReleaseServer(t, []byte("binary"))
	c := NewClient(srv.URL+"/", WithUserAgent("tool-installer"))

	rel, err := c.Latest(context.Background(), "acme/tool")
	require.NoError(t, err)
	require.Equal(t, "v1.2.3", rel.TagName)

	asset, err := rel.Asset("tool-linux-amd64")
	require.NoError(t, err)
	require.Equal(t, int64(6), asset.Size)

	_, err = rel.Asset("tool-linux-arm64")
	require.ErrorIs(t, err, ErrAssetNotFound)
	require.Contains(t, err.Error(), "tool-linux-arm64")
}

// TestLatest_Failures covers HTTP and decoding errors.
func TestLatest_Failures(t *testing.T) {
	t.Parallel()

	srv, _ := newReleaseServer(t, nil)

	// Missing User-Agent is rejected by the server.
	_, err := NewClient(srv.URL).Latest(context.Background(), "acme/tool")
	require.ErrorIs(t, err, ErrBadHTTPStatus)

	// Unknown repository.
	_, err = NewClient(srv.URL, WithUserAgent("tool-installer")).Latest(context.Background(), "acme/missing")
	require.ErrorIs(t, err, ErrBadHTTPStatus)

	// Malformed document.
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "{not json")
	}))
	t.Cleanup(bad.Close)

	_, err = NewClient(bad.URL).Latest(context.Background(), "acme/tool")
	require.ErrorIs(t, err, ErrMalformedRelease)

	// Unreachable host.
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()

	_, err = NewClient(closed.URL).Latest(context.Background(), "acme/tool")
	require.Error(t, err)
}

// TestDownload_FollowsRedirects streams through a redirect chain within the cap.
func TestDownload_FollowsRedirects(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("x"), 4096)
	srv, _ := newReleaseServer(t, payload)

	redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a":
			http.Redirect(w, r, "/b", http.StatusFound)
		case "/b":
			http.Redirect(w, r, srv.URL+"/download/tool-linux-amd64", http.StatusMovedPermanently)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(redirector.Close)

	var (
		buf     bytes.Buffer
		wrapped bool
	)

	progress := func(r io.Reader, size int64) (io.Reader, func()) {
		wrapped = true

		require.Equal(t, int64(len(payload)), size)

		return r, func() {}
	}

	n, err := NewClient("http://unused", WithMaxRedirects(2)).Download(context.Background(), redirector.URL+"/a", &buf, progress)
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), n)
	require.Equal(t, payload, buf.Bytes())
	require.True(t, wrapped)
}

// TestDownload_ShortBody fails when the server sends less than it advertised.
func TestDownload_ShortBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "4096")
		_, _ = io.WriteString(w, "partial")
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer

	n, err := NewClient(srv.URL).Download(context.Background(), srv.URL+"/asset", &buf, nil)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.Less(t, n, int64(4096))
}

// TestDownload_RedirectCap stops once the chain exceeds the configured cap.
func TestDownload_RedirectCap(t *testing.T) {
	t.Parallel()

	var loops atomic.Int32

	loop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := loops.Add(1)
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", n), http.StatusFound)
	}))
	t.Cleanup(loop.Close)

	_, err := NewClient(loop.URL, WithMaxRedirects(3)).Download(context.Background(), loop.URL, io.Discard, nil)
	require.ErrorIs(t, err, ErrTooManyRedirects)
	require.Equal(t, int32(4), loops.Load())
}

// TestDownload_RefusesDowngrade rejects an https to http redirect.
func TestDownload_RefusesDowngrade(t *testing.T) {
	t.Parallel()

	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "should not be reached")
	}))
	t.Cleanup(plain.Close)

	secure := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, plain.URL+"/asset", http.StatusFound)
	}))
	t.Cleanup(secure.Close)

	c := NewClient(secure.URL, WithHTTPClient(secure.Client()))

	_, err := c.Download(context.Background(), secure.URL+"/asset", io.Discard, nil)
	require.ErrorIs(t, err, ErrInsecureRedirect)
}

// TestDownload_BadStatus surfaces non-200 responses.
func TestDownload_BadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL).Download(context.Background(), srv.URL+"/asset", io.Discard, nil)
	require.ErrorIs(t, err, ErrBadHTTPStatus)
	require.Contains(t, err.Error(), "404")
}

// TestFetch_ReadsBody downloads a small resource into memory.
func TestFetch_ReadsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "abc  tool-linux-amd64\n")
	}))
	t.Cleanup(srv.Close)

	data, err := NewClient(srv.URL).Fetch(context.Background(), srv.URL+"/checksums.txt")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "abc"))
}
