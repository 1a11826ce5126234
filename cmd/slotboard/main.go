package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-slot-api/cmd/slotboard/commands"
	"github.com/noah-isme/dept-slot-api/pkg/apiclient"
	"github.com/noah-isme/dept-slot-api/pkg/cache"
	"github.com/noah-isme/dept-slot-api/pkg/config"
	"github.com/noah-isme/dept-slot-api/pkg/logger"
)

var (
	app     = &commands.AppContext{}
	closers []func() error
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:          "slotboard",
		Short:        "Allocate teachers to teaching slots",
		Long:         `slotboard edits the weekly slot board of a department against a running slot service.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdown()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&app.DeptID, "dept", "d", "", "Department id to work on")

	rootCmd.AddCommand(commands.SlotsCmd(app))
	rootCmd.AddCommand(commands.ShowCmd(app))
	rootCmd.AddCommand(commands.AssignCmd(app))
	rootCmd.AddCommand(commands.UnassignCmd(app))
	rootCmd.AddCommand(commands.ApplyCmd(app))
	rootCmd.AddCommand(commands.AssignmentsCmd(app))
	rootCmd.AddCommand(commands.SummaryCmd(app))
	rootCmd.AddCommand(commands.TeachersCmd(app))
	rootCmd.AddCommand(commands.DepartmentsCmd(app))

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		shutdown()
		os.Exit(1)
	}
}

// initApp loads configuration and builds the logger, the API client and its
// query cache.
func initApp(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = log
	closers = append(closers, func() error { return log.Sync() })

	app.Policy, err = cfg.Slots.Policy()
	if err != nil {
		return err
	}

	opts := []apiclient.Option{
		apiclient.WithTimeout(cfg.Client.Timeout),
		apiclient.WithLogger(log),
		apiclient.OnUnauthorized(func(resp *http.Response) {
			log.Warn("slot service rejected the credentials", zap.String("path", resp.Request.URL.Path))
		}),
	}
	if cfg.Client.Token != "" {
		opts = append(opts, apiclient.WithBearerToken(cfg.Client.Token))
	}
	client, err := apiclient.New(cfg.Client.BaseURL, opts...)
	if err != nil {
		return fmt.Errorf("failed to create api client: %w", err)
	}

	var store apiclient.Store = apiclient.NewMemoryStore()
	if cfg.Client.UseRedis {
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, caching queries in memory", zap.Error(err))
		} else {
			store = apiclient.NewRedisStore(rdb, cfg.Client.Namespace)
			closers = append(closers, rdb.Close)
		}
	}

	app.API = apiclient.NewAPI(client, apiclient.NewQueries(store, cfg.Client.CacheTTL, log))
	app.Gateway = apiclient.NewBoardGateway(app.API)

	log.Debug("slotboard ready", zap.String("api", cfg.Client.BaseURL), zap.String("dept_id", app.DeptID))
	return nil
}

func shutdown() {
	for i := len(closers) - 1; i >= 0; i-- {
		_ = closers[i]()
	}
	closers = nil
}
