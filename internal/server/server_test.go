package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sw33tLie/callerid/pkg/directory"
	"github.com/sw33tLie/callerid/pkg/phone"
	"github.com/sw33tLie/callerid/pkg/provider"
	"github.com/sw33tLie/callerid/pkg/storage"
)

type cursorResponse struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type countingLock struct {
	locks, unlocks int
}

func (l *countingLock) Lock() error   { l.locks++; return nil }
func (l *countingLock) Unlock() error { l.unlocks++; return nil }

type ServerSuite struct {
	suite.Suite
	dir     *directory.Directory
	lock    *countingLock
	srv     *Server
	handler http.Handler
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (s *ServerSuite) SetupTest() {
	d, err := directory.Open(context.Background(), nil)
	s.Require().NoError(err)
	n, err := phone.New("(555) 123-4567", phone.KindCell, phone.DefaultRegion)
	s.Require().NoError(err)
	rec, err := directory.NewRecord("Ana", "Lee", n)
	s.Require().NoError(err)
	s.Require().NoError(d.Upsert(context.Background(), rec))

	p, err := provider.New(d, provider.Config{Authority: "content://test.callerid", Workers: 2})
	s.Require().NoError(err)

	s.dir = d
	s.lock = &countingLock{}
	s.srv = New(d, p, Options{Lock: s.lock, Logger: quietLogger()})
	s.handler = s.srv.Handler()
}

func (s *ServerSuite) TearDownTest() {
	s.srv.Provider.Close()
}

func (s *ServerSuite) do(method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *ServerSuite) decodeCursor(rec *httptest.ResponseRecorder) cursorResponse {
	var c cursorResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&c))
	return c
}

func (s *ServerSuite) TestDirectories() {
	rec := s.do(http.MethodGet, "/directories", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("application/json", rec.Header().Get("Content-Type"))

	c := s.decodeCursor(rec)
	s.Require().Len(c.Rows, 1)
	s.Equal(len(c.Columns), len(c.Rows[0]))
	s.Contains(c.Rows[0], directory.AppName)
	s.Contains(c.Rows[0], "SAME_ACCOUNT_ONLY")
}

func (s *ServerSuite) TestPhoneLookupHit() {
	rec := s.do(http.MethodGet, "/phone_lookup/+15551234567", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	c := s.decodeCursor(rec)
	s.Require().Len(c.Rows, 1)
	row := map[string]any{}
	for i, col := range c.Columns {
		row[col] = c.Rows[0][i]
	}
	s.Equal(float64(provider.SyntheticRowID), row[provider.ColumnRowID])
	s.Equal("Ana Lee", row[provider.ColumnDisplayName])
	s.Equal("Simple Caller ID App | Cell", row[provider.ColumnLabel])
	s.Equal("content://test.callerid/photo/primary_photo", row[provider.ColumnPhotoURI])
}

func (s *ServerSuite) TestPhoneLookupEscaped() {
	rec := s.do(http.MethodGet, "/phone_lookup/%2B1%20555%20123%204567", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Len(s.decodeCursor(rec).Rows, 1)
}

func (s *ServerSuite) TestPhoneLookupMiss() {
	rec := s.do(http.MethodGet, "/phone_lookup/5550000000", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	c := s.decodeCursor(rec)
	s.NotEmpty(c.Columns)
	s.Empty(c.Rows)
}

func (s *ServerSuite) TestPhoneLookupProjection() {
	rec := s.do(http.MethodGet, "/phone_lookup/5551234567?projection=display_name,bogus", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	c := s.decodeCursor(rec)
	s.Equal([]string{"display_name", "bogus"}, c.Columns)
	s.Equal([][]any{{"Ana Lee", nil}}, c.Rows)
}

func (s *ServerSuite) TestPhoto() {
	rec := s.do(http.MethodGet, "/photo/primary_photo", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("image/png", rec.Header().Get("Content-Type"))
	s.True(bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func (s *ServerSuite) TestUnknownPath() {
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/contacts", nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/phone_lookup/1/2", nil).Code)
}

func (s *ServerSuite) TestWritesRejected() {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		for _, path := range []string{"/directories", "/phone_lookup/5551234567", "/photo/primary_photo"} {
			rec := s.do(method, path, strings.NewReader(`{"display_name":"Mallory"}`))
			s.Equal(http.StatusMethodNotAllowed, rec.Code, "%s %s", method, path)
			s.JSONEq(`{"error":"unsupported operation"}`, rec.Body.String())
		}
	}
	s.Equal(1, s.dir.Len())
}

func (s *ServerSuite) TestWritesRejectedWithUnreadableBody() {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	s.srv.log = log

	rec := s.do(http.MethodPut, "/phone_lookup/5551234567", nil)
	s.Equal(http.StatusMethodNotAllowed, rec.Code)
	s.JSONEq(`{"error":"unsupported operation"}`, rec.Body.String())

	rec = s.do(http.MethodPut, "/phone_lookup/5551234567", strings.NewReader(`{"display_name":`))
	s.Equal(http.StatusMethodNotAllowed, rec.Code)
	s.JSONEq(`{"error":"unsupported operation"}`, rec.Body.String())

	var unreadable int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.DebugLevel && strings.HasPrefix(e.Message, "Ignoring unreadable body") {
			unreadable++
		}
	}
	s.Equal(1, unreadable, "only the malformed body is reported")
	s.Equal(1, s.dir.Len())
}

func (s *ServerSuite) TestRecordsAPI() {
	rec := s.do(http.MethodPut, "/api/records",
		strings.NewReader(`{"first_name":"Bo","last_name":"Kim","phone":"555-000-1111","type":"work"}`))
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(2, s.dir.Len())
	s.Equal(1, s.lock.locks)
	s.Equal(1, s.lock.unlocks)

	lookup := s.decodeCursor(s.do(http.MethodGet, "/phone_lookup/5550001111", nil))
	s.Require().Len(lookup.Rows, 1)

	rec = s.do(http.MethodGet, "/api/records", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var records []directory.Record
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&records))
	s.Require().Len(records, 2)
	s.Equal("Ana", records[0].FirstName)
	s.Equal(phone.KindWork, records[1].Phone.Kind)

	rec = s.do(http.MethodDelete, "/api/records?first_name=Bo&last_name=Kim", nil)
	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal(1, s.dir.Len())
}

func (s *ServerSuite) TestRecordsAPIValidation() {
	rec := s.do(http.MethodPut, "/api/records", strings.NewReader(`{"first_name":"Bo","phone":"555"}`))
	s.Equal(http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodPut, "/api/records", strings.NewReader(`{"first_name":"Bo","last_name":"Kim"}`))
	s.Equal(http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodPut, "/api/records", strings.NewReader(`not json`))
	s.Equal(http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodDelete, "/api/records?first_name=Bo", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerSuite) TestStatsUnavailable() {
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/stats", nil).Code)
}

func (s *ServerSuite) TestBasicAuth() {
	s.srv.Username = "admin"
	s.srv.Password = "secret"

	rec := s.do(http.MethodGet, "/api/records", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.NotEmpty(rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	req.SetBasicAuth("admin", "secret")
	ok := httptest.NewRecorder()
	s.handler.ServeHTTP(ok, req)
	s.Equal(http.StatusOK, ok.Code)

	// Provider paths stay open.
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/directories", nil).Code)
}

func (s *ServerSuite) TestMetrics() {
	s.do(http.MethodGet, "/phone_lookup/5551234567", nil)
	s.do(http.MethodGet, "/phone_lookup/5550000000", nil)
	s.do(http.MethodPost, "/directories", nil)

	rec := s.do(http.MethodGet, "/metrics", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	s.Contains(body, `callerid_lookups_total{outcome="hit"} 1`)
	s.Contains(body, `callerid_lookups_total{outcome="miss"} 1`)
	s.Contains(body, `callerid_rejected_writes_total 1`)
	s.Contains(body, `callerid_directory_records 1`)
}

func TestRefreshPicksUpExternalWrites(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "callerid.sqlite"), storage.DefaultDBTimeout, phone.DefaultRegion)
	require.NoError(t, err)
	defer db.Close()

	d, err := directory.Open(context.Background(), db)
	require.NoError(t, err)
	p, err := provider.New(d, provider.Config{})
	require.NoError(t, err)
	defer p.Close()
	srv := New(d, p, Options{Stats: db, Logger: quietLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	hup := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() { done <- srv.Refresh(ctx, 0, hup) }()

	// Another process writes straight to the database.
	n, err := phone.New("555-000-1111", phone.KindWork, phone.DefaultRegion)
	require.NoError(t, err)
	rec, err := directory.NewRecord("Bo", "Kim", n)
	require.NoError(t, err)
	require.NoError(t, db.Upsert(context.Background(), rec))
	require.Equal(t, 0, d.Len())

	hup <- syscall.SIGHUP
	require.Eventually(t, func() bool { return d.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats []storage.KindStats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	require.Len(t, stats, 1)
	require.Equal(t, 1, stats[0].Count)
}

func TestServeListener(t *testing.T) {
	d, err := directory.Open(context.Background(), nil)
	require.NoError(t, err)
	p, err := provider.New(d, provider.Config{})
	require.NoError(t, err)
	defer p.Close()
	srv := New(d, p, Options{MaxConns: 4, Logger: quietLogger()})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/directories")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}
