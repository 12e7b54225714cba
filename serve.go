package main

import (
	"os"
	"os/signal"
	"syscall"

	"pickpath/animation"
	"pickpath/feed"
	"pickpath/grid_world"
	"pickpath/metrics"
	"pickpath/models"
	"pickpath/orders"
	"pickpath/server"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveAddr string
	gridPath  string
	watchGrid bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser view and consume the order feed",
	RunE:  runServe,
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&gridPath, "grid", "", "Warehouse layout file (text or JSON)")
	cmd.Flags().BoolVar(&watchGrid, "watch", false, "Reload the layout file when it changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = serveAddr
	}
	if flags.Changed("grid") {
		cfg.Grid.Path = gridPath
	}
	if flags.Changed("watch") {
		cfg.Grid.Watch = watchGrid
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	grid, err := grid_world.FromFile(cfg.Grid.Path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New("pickpath")
	player := animation.NewPlayer(cfg.Animation(), logger, m)
	defer player.Stop()
	book := orders.NewBook(cfg.Orders.Capacity)

	srv, err := server.NewServer(ctx, cfg.Server.Addr, grid, player, book, m, logger)
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Serve(groupCtx)
	})

	if cfg.Feed.URL != "" {
		// Validated when the config was loaded.
		reconnect, _ := cfg.ReconnectDelay()
		client := feed.NewClient(
			feed.Options{URL: cfg.Feed.URL, AuthToken: cfg.Feed.AuthToken, Reconnect: reconnect},
			func(order models.Order) {
				stored := book.Add(order)
				logger.Info("order queued",
					"order", stored.ID,
					"worker", stored.WorkerID,
					"products", len(stored.SelectedProducts))
			},
			m,
			logger)
		group.Go(func() error {
			return client.Run(groupCtx)
		})
	} else {
		logger.Info("no order feed configured")
	}

	if cfg.Grid.Watch && cfg.Grid.Path != "" {
		group.Go(func() error {
			return grid_world.Watch(groupCtx, cfg.Grid.Path, logger, srv.SetGrid)
		})
	}

	return group.Wait()
}
