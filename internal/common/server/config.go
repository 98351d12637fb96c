package server

import (
	"net"
	"net/http"
	"time"

	"github.com/AlibekovAA/defis-users/internal/common/constants"
)

// writeSlack is the time left for encoding and flushing a response after
// the handler has used its whole request budget.
const writeSlack = 5 * time.Second

type ServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// DefaultServerConfig listens on port with the standard timeouts. The write
// timeout never drops below requestTimeout plus writeSlack.
func DefaultServerConfig(port string, requestTimeout time.Duration) ServerConfig {
	write := constants.ServerWriteTimeout
	if floor := requestTimeout + writeSlack; floor > write {
		write = floor
	}

	return ServerConfig{
		Addr:              net.JoinHostPort("", port),
		ReadHeaderTimeout: constants.ServerReadHeaderTimeout,
		ReadTimeout:       constants.ServerReadTimeout,
		WriteTimeout:      write,
		IdleTimeout:       constants.ServerIdleTimeout,
	}
}

func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
