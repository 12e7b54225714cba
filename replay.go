package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"pickpath/animation"
	"pickpath/feed"
	"pickpath/grid_world"
	"pickpath/models"
	"pickpath/server/cell_views"
	"pickpath/waypoints"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	replayGrid     string
	replayOrder    string
	replayInterval time.Duration
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Animate one order's route in the terminal",
	Long: `Expands the first route of an order and plays it over the grid in the terminal.
The order file holds either a feed request message or the order itself:

  pickpath replay --grid layout.txt --order order.json`,
	Args: cobra.NoArgs,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayGrid, "grid", "", "Warehouse layout file (text or JSON)")
	replayCmd.Flags().StringVar(&replayOrder, "order", "", "Order file (JSON)")
	replayCmd.Flags().DurationVar(&replayInterval, "interval", 0, "Time between steps (default from config)")
	_ = replayCmd.MarkFlagRequired("grid")
	_ = replayCmd.MarkFlagRequired("order")
}

var errNoGrid = errors.New("layout is empty")

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	grid, err := grid_world.FromFile(replayGrid)
	if err != nil {
		return err
	}
	order, err := readOrder(replayOrder)
	if err != nil {
		return err
	}

	playback := cfg.Animation()
	if replayInterval > 0 {
		playback.TickInterval = replayInterval
	}
	redraw := isatty.IsTerminal(os.Stdout.Fd())
	return replay(cmd.Context(), os.Stdout, grid, order, playback, redraw, logger)
}

// readOrder reads a feed request message, or failing that a bare order.
func readOrder(path string) (models.Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Order{}, fmt.Errorf("read order: %w", err)
	}

	order, decodeErr := feed.Decode(data)
	if decodeErr == nil {
		return order, nil
	}
	if err = json.Unmarshal(data, &order); err != nil || order.MovingCells == nil {
		return models.Order{}, fmt.Errorf("%s: %w", path, decodeErr)
	}
	return order, nil
}

// replay plays the order's route and draws every frame to w until the path is done. With
// redraw set, each frame replaces the previous one on screen.
func replay(
	ctx context.Context,
	w io.Writer,
	grid models.Grid,
	order models.Order,
	cfg animation.Config,
	redraw bool,
	logger *slog.Logger,
) error {
	if grid.Empty() {
		return errNoGrid
	}
	if err := grid.CheckPath(order.VisualPath()); err != nil {
		return err
	}

	cfg.HaltOnDone = true
	player := animation.NewPlayer(cfg, logger)
	defer player.Stop()
	player.Load(waypoints.Expand(order.VisualPath()))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-player.Frames():
			if redraw {
				fmt.Fprint(w, "\x1b[H\x1b[2J")
			}
			fmt.Fprintln(w, cell_views.RenderText(cell_views.NewBoard(cell_views.Scene{Grid: grid, Frame: frame})))
			if frame.State != animation.Playing {
				return nil
			}
		}
	}
}
