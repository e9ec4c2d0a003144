package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/olablt/gio-nanomaps/server"
)

// Options defines all CLI flags and env vars for the map server.
// Flags: --host, --port, --maps, --public-url
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_MAPS, SERVICE_PUBLIC_URL
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	Maps      string `doc:"Map repository file" default:"maps.yaml"`
	PublicURL string `doc:"Base URL written into the catalog (default: request host)" default:""`
}

func newServer(opts *Options) (*server.Server, error) {
	repo, err := server.LoadRepository(opts.Maps)
	if err != nil {
		return nil, err
	}
	return server.New(server.Config{
		Host:      opts.Host,
		Port:      opts.Port,
		PublicURL: opts.PublicURL,
	}, repo), nil
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		hooks.OnStart(func() {
			srv, err := newServer(opts)
			if err != nil {
				log.Fatalf("Could not load maps: %v", err)
			}
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("nanomaps server starting...\n")
			fmt.Printf("  Catalog: %s/map/\n", baseURL)
			fmt.Printf("  Maps:    %s\n", opts.Maps)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(srv.Addr(), srv); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		})
	})

	cli.Root().Use = "mapserver"
	cli.Root().Short = "Map catalog and tile server"
	cli.Root().Version = "0.1.0"

	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading maps: %v\n", err)
				os.Exit(1)
			}
			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(srv.OpenAPI())
			} else {
				output, err = json.MarshalIndent(srv.OpenAPI(), "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	cli.Run()
}
