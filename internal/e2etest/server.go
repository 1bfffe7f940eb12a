// Package e2etest runs the web application in-process and drives it over HTTP like a browser with a virtual
// passkey authenticator would.
package e2etest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/myrjola/velocoach/internal/logging"
)

// LogAddrKey is the log attribute carrying the address the server listens on.
const LogAddrKey = "addr"

// LogDsnKey is the log attribute carrying the read-write SQLite DSN.
const LogDsnKey = "sqlDsn"

// RunFunc has the signature of the run function of cmd/web.
type RunFunc func(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error

type Server struct {
	url    string
	client *Client
	db     *sql.DB
	stop   context.CancelCauseFunc
	done   chan struct{}
}

// startupWatcher picks the listen address and the DSN from the first log records that carry them.
type startupWatcher struct {
	addr     chan string
	dsn      chan string
	addrOnce sync.Once
	dsnOnce  sync.Once
}

func newStartupWatcher() *startupWatcher {
	return &startupWatcher{
		addr:     make(chan string, 1),
		dsn:      make(chan string, 1),
		addrOnce: sync.Once{},
		dsnOnce:  sync.Once{},
	}
}

func (w *startupWatcher) replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case LogAddrKey:
		w.addrOnce.Do(func() { w.addr <- a.Value.String() })
	case LogDsnKey:
		w.dsnOnce.Do(func() { w.dsn <- a.Value.String() })
	}
	return a
}

func (w *startupWatcher) wait(ctx context.Context) (string, string, error) {
	var addr, dsn string
	for addr == "" || dsn == "" {
		select {
		case <-ctx.Done():
			return "", "", fmt.Errorf("server did not start: %w", context.Cause(ctx))
		case addr = <-w.addr:
		case dsn = <-w.dsn:
		}
	}
	return addr, dsn, nil
}

// StartServer runs the application until t finishes and returns once it answers health checks.
//
// The server logs go to logSink, usually testhelpers.NewWriter. lookupEnv replaces [os.LookupEnv] for the
// configuration.
func StartServer(t *testing.T, logSink io.Writer, lookupEnv func(string) (string, bool), run RunFunc) (*Server, error) {
	var server *Server
	t.Cleanup(func() {
		if server != nil {
			server.Shutdown()
		}
	})

	ctx, stop := context.WithCancelCause(t.Context())
	done := make(chan struct{})
	watcher := newStartupWatcher()
	go func() {
		defer close(done)
		if err := run(ctx, logging.New(logSink, watcher.replaceAttr), lookupEnv); err != nil {
			stop(err)
		}
	}()

	addr, dsn, err := watcher.wait(ctx)
	if err != nil {
		return nil, err
	}

	serverURL := "http://" + addr
	var client *Client
	if client, err = NewClient(serverURL, "localhost", "http://localhost:0"); err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return nil, fmt.Errorf("wait for ready: %w", err)
	}
	var db *sql.DB
	if db, err = sql.Open("sqlite3", dsn); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	server = &Server{url: serverURL, client: client, db: db, stop: stop, done: done}
	return server, nil
}

// Client returns the client created with the server. Use NewClient for further visitors.
func (s *Server) Client() *Client {
	return s.client
}

// NewClient returns a client with its own cookies and passkey, acting as another visitor.
func (s *Server) NewClient() (*Client, error) {
	return NewClient(s.url, "localhost", "http://localhost:0")
}

func (s *Server) URL() string {
	return s.url
}

// DB is a connection to the server's database for inspecting what the server stored.
func (s *Server) DB() *sql.DB {
	return s.db
}

func (s *Server) Shutdown() {
	s.stop(nil)
	<-s.done
	if s.db != nil {
		_ = s.db.Close()
	}
}
