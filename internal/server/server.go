package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/AnotherRiz/BitX-Sessions/internal/app"
	"github.com/AnotherRiz/BitX-Sessions/internal/config"
	"github.com/AnotherRiz/BitX-Sessions/internal/domain"
	apperrors "github.com/AnotherRiz/BitX-Sessions/internal/errors"
)

// sessionService is the slice of the application layer the handlers need.
type sessionService interface {
	ListForTab(tab domain.TabRef) (*app.DomainSessions, error)
	SaveCurrent(ctx context.Context, tab domain.TabRef, name string) (domain.Session, error)
	Switch(ctx context.Context, tab domain.TabRef, id string) error
	NewBlank(ctx context.Context, tab domain.TabRef) error
	Rename(ctx context.Context, id, newName string, overwrite bool) error
	OverwriteWithCurrent(ctx context.Context, tab domain.TabRef, id, newName string) (domain.Session, error)
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, tab domain.TabRef, ids []string) error
	Export() ([]byte, error)
	Import(ctx context.Context, data []byte) (int, error)
}

// transferClient is nil when no relay is configured.
type transferClient interface {
	Send(ctx context.Context, payload []byte) (string, error)
	Receive(ctx context.Context, code string) ([]byte, error)
}

// agentHub owns the background-agent websocket.
type agentHub interface {
	HandleConn(conn *websocket.Conn)
	Connected() bool
}

type redisPinger interface {
	Ping(ctx context.Context) *goredis.StatusCmd
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	app       sessionService
	hub       agentHub
	transfer  transferClient
	redis     redisPinger
	upgrader  websocket.Upgrader
	startTime time.Time
}

func NewServer(cfg *config.Config, svc sessionService, hub agentHub, transfer transferClient, redis redisPinger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:     e,
		config:   cfg,
		app:      svc,
		hub:      hub,
		transfer: transfer,
		redis:    redis,
		upgrader: websocket.Upgrader{
			// The agent connects from an extension origin, not our own.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		startTime: time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
