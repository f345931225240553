package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/geoview/internal/api"
	"github.com/joeblew999/geoview/internal/draw"
	"github.com/joeblew999/geoview/internal/logging"
	"github.com/joeblew999/geoview/internal/server"
	"github.com/joeblew999/geoview/internal/service"
	"github.com/joeblew999/geoview/internal/store"
)

// Options defines all CLI flags and env vars for the geoview server.
// Flags: --host, --port, --data-dir, --store, --styles-file, --templates-dir,
// --log-level, --log-format
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ...
type Options struct {
	Host         string `doc:"Host to bind to" default:"0.0.0.0"`
	Port         int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir      string `doc:"Directory for persisted uploads" default:".data"`
	Store        string `doc:"Upload list backend: file, duckdb or memory" default:"file"`
	StylesFile   string `doc:"YAML basemap style catalog (optional)"`
	TemplatesDir string `doc:"Directory with fragments/*.html overriding the built-in fragments (development)"`
	LogLevel     string `doc:"Log level: debug, info, warn, error" default:"info"`
	LogFormat    string `doc:"Log format: text or json" default:"text"`
}

func newServer(ctx context.Context, opts *Options) (*server.Server, error) {
	logging.Setup(opts.LogLevel, opts.LogFormat)
	return server.New(ctx, server.Config{
		Host:         opts.Host,
		Port:         fmt.Sprintf("%d", opts.Port),
		DataDir:      opts.DataDir,
		Store:        store.Kind(opts.Store),
		StylesFile:   opts.StylesFile,
		TemplatesDir: opts.TemplatesDir,
	})
}

func mustServer(ctx context.Context, opts *Options) *server.Server {
	srv, err := newServer(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return srv
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var httpServer *http.Server
		var srv *server.Server

		hooks.OnStart(func() {
			srv = mustServer(context.Background(), opts)

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("geoview server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s (%s)\n", opts.DataDir, opts.Store)
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv, ReadHeaderTimeout: 10 * time.Second}
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("server error", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			if httpServer == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				slog.Warn("shutdown", "error", err)
			}
			if err := srv.Close(); err != nil {
				slog.Warn("closing server resources", "error", err)
			}
		})
	})

	cli.Root().Use = "geoview"
	cli.Root().Short = "Map viewer for GeoJSON uploads, basemaps and drawings"
	cli.Root().Version = api.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			// keep stdout clean for the document
			opts.Store = string(store.KindMemory)
			opts.LogLevel = "error"
			srv := mustServer(context.Background(), opts)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
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

	// ingest subcommand: add files to the persisted upload list
	ingestCmd := &cobra.Command{
		Use:   "ingest <file.geojson>...",
		Short: "Validate GeoJSON files and add them to the upload list",
		Args:  cobra.MinimumNArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			ctx := context.Background()
			srv := mustServer(ctx, opts)
			defer srv.Close()

			failed := ingestFiles(ctx, srv.Services().Registry, args, os.Stdout, os.Stderr)
			if failed > 0 {
				srv.Close()
				os.Exit(1)
			}
		}),
	}
	cli.Root().AddCommand(ingestCmd)

	// export subcommand: filter a drawing snapshot
	exportCmd := &cobra.Command{
		Use:   "export <snapshot.json>",
		Short: "Drop editing handles from a drawing snapshot",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			data, err := os.ReadFile(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			out, n, err := draw.Export(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			dest, _ := cmd.Flags().GetString("output")
			if dest == "" {
				os.Stdout.Write(out)
				fmt.Println()
				return
			}
			if err := os.WriteFile(dest, out, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "%d features written to %s\n", n, dest)
		}),
	}
	exportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout (e.g. "+draw.ExportFileName+")")
	cli.Root().AddCommand(exportCmd)

	cli.Run()
}

// ingestFiles adds each file to the upload list under its base name and
// returns how many failed.
func ingestFiles(ctx context.Context, reg *service.Registry, paths []string, out, errOut io.Writer) int {
	failed := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", path, err)
			failed++
			continue
		}
		res, err := reg.Ingest(ctx, filepath.Base(path), data)
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%d features\n", res.ID, res.Name, res.Collection.FeatureCount())
	}
	return failed
}
