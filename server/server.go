// Package server publishes a map catalog and its tiles over HTTP.
package server

import (
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
)

// Config holds the server configuration.
type Config struct {
	Host string
	Port int
	// PublicURL is the base of the URLs written into the catalog. When empty
	// they are built from the request's Host header.
	PublicURL string
}

// Server is the map HTTP server.
type Server struct {
	config  Config
	mux     *http.ServeMux
	humaAPI huma.API
	handler *Handler
}

func New(cfg Config, repo *Repository) *Server {
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("nanomaps API", "1.0.0")
	humaConfig.Info.Description = "Map catalog and tile server."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// no $schema links in responses
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humago.New(mux, humaConfig),
		handler: NewHandler(repo, cfg.PublicURL),
	}
	s.handler.Register(s.humaAPI)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
