// Package httpserver serves the panel's JSON API and live console streams.
package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tinytelemetry/craftpanel/internal/console"
	"github.com/tinytelemetry/craftpanel/internal/distribution"
	"github.com/tinytelemetry/craftpanel/internal/model"
	"github.com/tinytelemetry/craftpanel/internal/panel"
	"github.com/tinytelemetry/craftpanel/internal/serverdir"
)

// Panel is the application surface the HTTP API drives.
type Panel interface {
	model.Controller
	Subscribe(ctx context.Context, size int) (console.Stream, error)
	DeleteServerData(ctx context.Context) error

	SetupStatus() (model.SetupStatus, error)
	Versions(ctx context.Context, serverType string) (distribution.VersionList, error)
	Builds(ctx context.Context, serverType, version string) ([]int, error)
	Install(ctx context.Context, req panel.InstallRequest) error

	Config() (panel.ConfigView, error)
	UpdateConfig(u panel.ConfigUpdate) error
	Lists() (map[serverdir.ListKind][]json.RawMessage, error)
	SetLists(lists map[serverdir.ListKind]json.RawMessage) error

	UUID(ctx context.Context, name string) (string, error)
	Info(ctx context.Context) (model.HostInfo, error)
	DiskLogs() ([]string, error)
	History(limit int) ([]model.RunRecord, error)
	RunCommands(runID string, limit int) ([]model.CommandRecord, error)
}

// Config holds optional server settings.
type Config struct {
	// StaticDir is served for every path outside /api. Empty disables it.
	StaticDir string
	// StreamBuffer is the per-subscriber buffer of the live streams.
	StreamBuffer int
	// KeepAlive is the SSE comment and WebSocket ping interval.
	KeepAlive time.Duration
}

// Server provides the panel HTTP API.
type Server struct {
	addr     string
	panel    Panel
	conf     Config
	engine   *gin.Engine
	upgrader websocket.Upgrader

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, p Panel, conf ...Config) *Server {
	if addr == "" {
		addr = "127.0.0.1:3030"
	}
	var c Config
	if len(conf) > 0 {
		c = conf[0]
	}
	if c.StreamBuffer <= 0 {
		c.StreamBuffer = 256
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = 15 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:     addr,
		panel:    p,
		conf:     c,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		ctx:      ctx,
		cancel:   cancel,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/info", s.handleInfo)
	api.GET("/setup/status", s.handleSetupStatus)
	api.GET("/server/versions", s.handleVersions)
	api.GET("/server/builds", s.handleBuilds)
	api.POST("/server/install", s.handleInstall)
	api.POST("/server/delete", s.handleDelete)
	api.GET("/config", s.handleGetConfig)
	api.POST("/config", s.handleUpdateConfig)
	api.GET("/lists", s.handleGetLists)
	api.POST("/lists", s.handleSetLists)
	api.GET("/uuid", s.handleUUID)
	api.POST("/start", s.handleStart)
	api.POST("/stop", s.handleStop)
	api.POST("/command", s.handleCommand)
	api.GET("/logs", s.handleDiskLogs)
	api.GET("/console", s.handleConsole)
	api.GET("/logs/stream", s.handleSSE)
	api.GET("/logs/ws", s.handleWebSocket)
	api.GET("/history", s.handleHistory)
	api.GET("/history/:id/commands", s.handleRunCommands)

	if s.conf.StaticDir != "" {
		r.NoRoute(gin.WrapH(http.FileServer(http.Dir(s.conf.StaticDir))))
	}
	return r
}

// Handler returns the router, for embedding and tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.engine,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: the live streams hold their response open.
	}

	s.mu.Lock()
	s.server = srv
	s.listener = listener
	s.mu.Unlock()

	go srv.Serve(listener)
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the HTTP server. Open streams end when the base
// context is cancelled.
func (s *Server) Stop() error {
	s.cancel()
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
