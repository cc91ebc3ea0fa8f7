package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "github.com/mattn/go-sqlite3"

	"castypos.com/posserver/internal/config"
	"castypos.com/posserver/internal/logging"
	"castypos.com/posserver/internal/server"
	"castypos.com/posserver/internal/sqlite"
	"castypos.com/posserver/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs after flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	log        *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "posserver",
		Short:         "POS license verification and device seat server",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "path to config file")

	root.AddCommand(
		a.serveCmd(),
		a.routesCmd(),
		schemaCmd(),
		a.backupCmd(),
		a.tenantCmd(),
		a.customerCmd(),
		a.licenseCmd(),
	)
	return root
}

func (a *app) load() error {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg
	a.log = logging.New(logging.Options{
		ServiceName: "posserver",
		Level:       logging.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
		Output:      os.Stderr,
	})
	return nil
}

// open gives admin commands the database and services without the HTTP stack.
func (a *app) open(ctx context.Context) (*server.Services, error) {
	return server.OpenServices(ctx, a.cfg, a.log)
}

func (a *app) serveCmd() *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.Banner())
			a.cfg.DemoMode = demo

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.Build(ctx, a.cfg, a.log)
			if err != nil {
				return fmt.Errorf("failed to build server: %w", err)
			}
			defer srv.Close()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.log.Info(a.log.WithField(gctx, "addr", a.cfg.Addr), "listening")
				if err := srv.Echo.StartServer(srv.HTTP); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				a.log.Info(shutdownCtx, "shutting down")
				return srv.Echo.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "load sample data on new database (for demos)")
	return cmd
}

func (a *app) routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the HTTP routes and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			routes := server.Routes(a.cfg, a.log)
			sort.Slice(routes, func(i, j int) bool {
				if routes[i].Path == routes[j].Path {
					return routes[i].Method < routes[j].Method
				}
				return routes[i].Path < routes[j].Path
			})
			for _, r := range routes {
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", r.Method, r.Path)
			}
			return nil
		},
	}
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the database schema",
		// the schema does not depend on configuration
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), sqlite.Schema())
		},
	}
}
