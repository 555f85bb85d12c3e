package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	body string
	got  string
}

func (s *stubFetcher) Download(_ context.Context, url string) (io.ReadCloser, error) {
	s.got = url
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func TestOpener_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pop.csv")
	require.NoError(t, os.WriteFile(path, []byte("동별,인구수\n"), 0o644))

	o := &Opener{}
	data, err := o.ReadAll(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "동별,인구수\n", string(data))

	data, err = o.ReadAll(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "동별,인구수\n", string(data))
}

func TestOpener_MissingFile(t *testing.T) {
	_, err := (&Opener{}).ReadAll(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestOpener_DispatchesByScheme(t *testing.T) {
	h := &stubFetcher{body: "http"}
	f := &stubFetcher{body: "ftp"}
	o := &Opener{HTTP: h, FTP: f}

	data, err := o.ReadAll(context.Background(), "https://example.com/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "http", string(data))
	assert.Equal(t, "https://example.com/a.csv", h.got)

	data, err = o.ReadAll(context.Background(), "ftp://example.com/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "ftp", string(data))

	_, err = o.ReadAll(context.Background(), "s3://bucket/a.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestOpener_NoFetcherConfigured(t *testing.T) {
	_, err := (&Opener{}).Open(context.Background(), "http://example.com/a.csv")
	require.Error(t, err)
}

func TestNewOpener_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote"))
	}))
	defer srv.Close()

	o := NewOpener(HTTPOptions{Timeout: time.Second, BaseBackoff: time.Millisecond}, FTPOptions{})
	data, err := o.ReadAll(context.Background(), srv.URL+"/x.csv")
	require.NoError(t, err)
	assert.Equal(t, "remote", string(data))
}

func TestScheme(t *testing.T) {
	assert.Equal(t, "", Scheme("data/pop.csv"))
	assert.Equal(t, "", Scheme(`C:\data\pop.csv`))
	assert.Equal(t, "https", Scheme("HTTPS://example.com/x"))
	assert.Equal(t, "ftp", Scheme("ftp://example.com/x"))
	assert.Equal(t, "file", Scheme("file:///tmp/x"))
}

func TestExt(t *testing.T) {
	assert.Equal(t, ".csv", Ext("data/pop.csv"))
	assert.Equal(t, ".xlsx", Ext("https://example.com/pets.XLSX?download=1"))
	assert.Equal(t, ".zip", Ext("ftp://example.com/gu.zip"))
	assert.Equal(t, "", Ext("data.d/noext"))
	assert.Equal(t, ".geojson", Ext("/tmp/seoul.geojson"))
}
