package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/callerid/internal/server"
	"github.com/sw33tLie/callerid/pkg/directory"
	"github.com/sw33tLie/callerid/pkg/provider"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	d, err := directory.Open(context.Background(), nil)
	require.NoError(t, err)
	p, err := provider.New(d, provider.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	srv := server.New(d, p, server.Options{Username: "admin", Password: "secret", Logger: log})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClientRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	c, err := New(ts.URL, "admin", "secret")
	require.NoError(t, err)

	require.NoError(t, c.PutRecord(ctx, "Ana", "Lee", "(555) 123-4567", "Cell"))

	cur, err := c.Lookup(ctx, "+1 555 123 4567")
	require.NoError(t, err)
	require.Equal(t, 1, cur.Len())
	require.Equal(t, "Ana Lee", cur.Value(0, provider.ColumnDisplayName))
	require.Equal(t, "Simple Caller ID App | Cell", cur.Value(0, provider.ColumnLabel))

	cur, err = c.Lookup(ctx, "5551234567", provider.ColumnLabel)
	require.NoError(t, err)
	require.Equal(t, []string{provider.ColumnLabel}, cur.Columns)

	cur, err = c.Lookup(ctx, "5550000000")
	require.NoError(t, err)
	require.Equal(t, 0, cur.Len())

	info, err := c.Directories(ctx)
	require.NoError(t, err)
	require.Equal(t, directory.AppName, info.Value(0, provider.ColumnAccountName))

	photo, contentType, err := c.Photo(ctx)
	require.NoError(t, err)
	require.Equal(t, "image/png", contentType)
	require.True(t, bytes.HasPrefix(photo, []byte("\x89PNG")))

	records, err := c.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, c.DeleteRecord(ctx, "Ana", "Lee"))
	records, err = c.Records(ctx)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestClientUnauthorized(t *testing.T) {
	ts := newTestServer(t)
	c, err := New(ts.URL, "admin", "wrong")
	require.NoError(t, err)

	_, err = c.Records(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusUnauthorized, se.StatusCode)
}

func TestClientMapsProtocolErrors(t *testing.T) {
	ts := newTestServer(t)
	c, err := New(ts.URL, "", "")
	require.NoError(t, err)

	resp, err := c.do(context.Background(), http.MethodPost, "/directories", []byte(`{}`), false)
	require.Nil(t, resp)
	require.ErrorIs(t, err, provider.ErrUnsupportedOperation)
	require.Contains(t, err.Error(), "unsupported operation")

	err = c.getJSON(context.Background(), "/contacts", false, &struct{}{})
	require.ErrorIs(t, err, provider.ErrNotFound)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("not a url", "", "")
	require.Error(t, err)
}
