package web

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/avstrong/roomdesk/internal/desk"
	"github.com/avstrong/roomdesk/internal/logger"
)

var ErrPanic = errors.New("panic")

type Server struct {
	srv     *http.Server
	router  *mux.Router
	l       *logger.Logger
	conf    Conf
	desk    *desk.Manager
	limiter *limiterStore
}

type Conf struct {
	L                 *logger.Logger
	ServerLogger      *log.Logger
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	LivenessEndpoint  string
	// Zero RateLimitPerMin disables rate limiting.
	RateLimitPerMin int
	RateLimitBurst  int
}

func New(ctx context.Context, conf Conf, deskManager *desk.Manager) (*Server, error) {
	router := mux.NewRouter()

	//nolint:exhaustruct
	srv := &http.Server{
		Addr:              net.JoinHostPort(conf.Host, conf.Port),
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
		ErrorLog:          conf.ServerLogger,
		Handler:           router,
		BaseContext: func(listener net.Listener) context.Context {
			return ctx
		},
	}

	server := &Server{
		srv:     srv,
		router:  router,
		l:       conf.L,
		conf:    conf,
		desk:    deskManager,
		limiter: newLimiterStore(conf.RateLimitPerMin, conf.RateLimitBurst),
	}

	server.addRoutes(router)

	return server, nil
}

func (s *Server) Srv() *http.Server {
	return s.srv
}
