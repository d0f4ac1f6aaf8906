package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/sw33tLie/callerid/internal/metrics"
	"github.com/sw33tLie/callerid/internal/utils"
	"github.com/sw33tLie/callerid/pkg/directory"
	"github.com/sw33tLie/callerid/pkg/phone"
	"github.com/sw33tLie/callerid/pkg/provider"
	"github.com/sw33tLie/callerid/pkg/storage"
)

const shutdownTimeout = 5 * time.Second

// StatsSource reports per-kind record counts. *storage.DB satisfies it.
type StatsSource interface {
	GetStats(ctx context.Context) ([]storage.KindStats, error)
}

// Locker serializes directory writes with other processes sharing the
// database. *utils.DBLock satisfies it.
type Locker interface {
	Lock() error
	Unlock() error
}

type Options struct {
	Username string
	Password string
	// Region is used to read numbers submitted through the admin API.
	Region string
	// MaxConns caps simultaneously accepted connections. Zero means no cap.
	MaxConns int
	Stats    StatsSource
	Lock     Locker
	Registry *prometheus.Registry
	Logger   *logrus.Logger
}

type Server struct {
	Dir      *directory.Directory
	Provider *provider.Provider
	Username string
	Password string

	region   string
	maxConns int
	stats    StatsSource
	lock     Locker
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	log      *logrus.Logger
}

func New(dir *directory.Directory, p *provider.Provider, opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = utils.Log
	}
	if opts.Region == "" {
		opts.Region = phone.DefaultRegion
	}
	s := &Server{
		Dir:      dir,
		Provider: p,
		Username: opts.Username,
		Password: opts.Password,
		region:   opts.Region,
		maxConns: opts.MaxConns,
		stats:    opts.Stats,
		lock:     opts.Lock,
		registry: opts.Registry,
		metrics:  metrics.New(opts.Registry),
		log:      opts.Logger,
	}
	s.metrics.SetRecords(dir.Len())
	return s
}

// Handler builds the router. Provider paths sit at the root so that a
// content URI path maps onto a URL path unchanged.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/"+provider.DirectoriesPath, s.handleQuery)
	r.Get("/"+provider.PhoneLookupPath+"/{number}", s.handleQuery)
	r.Get("/"+provider.PrimaryPhotoPath, s.handlePhoto)
	for _, path := range []string{
		"/" + provider.DirectoriesPath,
		"/" + provider.PhoneLookupPath + "/{number}",
		"/" + provider.PrimaryPhotoPath,
	} {
		r.Post(path, s.handleWrite)
		r.Put(path, s.handleWrite)
		r.Patch(path, s.handleWrite)
		r.Delete(path, s.handleWrite)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.basicAuth)
		r.Get("/records", s.handleListRecords)
		r.Put("/records", s.handlePutRecord)
		r.Delete("/records", s.handleDeleteRecord)
		r.Get("/stats", s.handleStats)
	})

	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// Serve listens on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Infof("Starting server on %s", ln.Addr())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// Refresh reloads the directory from its backend every interval and whenever
// hup fires, so writes made by other processes become visible. It returns
// when ctx is canceled. A zero interval disables the ticker.
func (s *Server) Refresh(ctx context.Context, interval time.Duration, hup <-chan os.Signal) error {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
		case <-hup:
			s.log.Info("Reloading directory on signal")
		}
		if err := s.Dir.Reload(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warnf("Directory reload failed: %v", err)
			continue
		}
		s.metrics.SetRecords(s.Dir.Len())
		s.log.Debugf("Directory reloaded, %d records", s.Dir.Len())
	}
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
		}).Debug("request")
	})
}
