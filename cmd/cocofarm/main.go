package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/imagvfx/cocowait/lib/logging"
	"github.com/imagvfx/cocowait/manager"
	"github.com/imagvfx/cocowait/remote"
	"github.com/imagvfx/cocowait/service"
	"github.com/imagvfx/cocowait/service/sqlite"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const (
	defaultConfigPath = "config/farm.toml"
	shutdownTimeout   = 10 * time.Second
)

type options struct {
	addr     string
	http     string
	config   string
	db       string
	logLevel string
}

func main() {
	err := rootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cocofarm:", err)
		os.Exit(1)
	}
}

// rootCmd creates the cocofarm command. Every flag can also be set
// with a COCO_ prefixed environment variable, like COCO_ADDR.
func rootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("COCO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "cocofarm",
		Short:         "Run jobs submitted by cocowait clients",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := v.BindPFlags(cmd.Flags())
			if err != nil {
				return err
			}
			o := options{
				addr:     v.GetString("addr"),
				http:     v.GetString("http"),
				config:   v.GetString("config"),
				db:       v.GetString("db"),
				logLevel: v.GetString("log-level"),
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, o)
		},
	}
	cmd.Flags().String("addr", "localhost:8283", "address to serve clients over grpc")
	cmd.Flags().String("http", "localhost:8282", "address to serve the http api and metrics")
	cmd.Flags().String("config", defaultConfigPath, "farm config file")
	cmd.Flags().String("db", "", "sqlite database file to keep jobs, jobs are kept in memory when empty")
	cmd.Flags().String("log-level", "info", "log level: debug, info, warn or error")
	return cmd
}

// serve runs the farm until ctx is done.
func serve(ctx context.Context, o options) error {
	log := logging.New(o.logLevel)
	defer log.Sync()

	cfg, err := loadConfig(o.config)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || o.config != defaultConfigPath {
			return err
		}
		log.Warn("config file not found, serving every queue with a slot per cpu", "config", o.config)
		cfg = defaultFarmConfig()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var svc service.JobService
	var db *sql.DB
	if o.db != "" {
		db, err = sqlite.OpenOrCreate(o.db)
		if err != nil {
			return err
		}
		svc = sqlite.NewJobService(db)
	}
	m, err := manager.New(manager.Config{Groups: cfg.Groups, Registerer: reg}, svc, log)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return err
	}

	lis, err := net.Listen("tcp", o.addr)
	if err != nil {
		return multierror.Append(errors.Wrap(err, "listen"), shutdown(m, nil, nil, db)).ErrorOrNil()
	}
	g := remote.NewServer(m, log).NewGRPCServer(cfg.Access)
	h := &http.Server{
		Addr:              o.http,
		Handler:           newAPIMux(m, reg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info("serving clients", "addr", lis.Addr().String())
		err := g.Serve(lis)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		log.Info("serving http api", "addr", o.http)
		err := h.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		return shutdown(m, g, h, db)
	})
	return eg.Wait()
}

// shutdown stops the farm. The manager is closed first,
// so blocking WaitAny calls return and the grpc server can stop gracefully.
func shutdown(m *manager.Manager, g *grpc.Server, h *http.Server, db *sql.DB) error {
	var errs *multierror.Error
	errs = multierror.Append(errs, m.Close())
	if g != nil {
		g.GracefulStop()
	}
	if h != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		errs = multierror.Append(errs, h.Shutdown(ctx))
	}
	if db != nil {
		errs = multierror.Append(errs, db.Close())
	}
	return errs.ErrorOrNil()
}
