package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"pickpath/feed"

	"github.com/spf13/cobra"
)

var (
	productsPath string
	sendTimeout  time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send [" + feed.CmdCreateProductType + "|" + feed.CmdListProductTypes + "|" + feed.CmdRun + "]",
	Short: "Send a control command to the order service and print its answer",
	Long: `Sends one command over the order feed and waits for the answer.
create_product_type reads the product types from --products, a JSON array of
{"sku": 1, "name": "...", "product_type": "..."} objects.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{feed.CmdCreateProductType, feed.CmdListProductTypes, feed.CmdRun},
	RunE:      runSend,
}

func init() {
	sendCmd.Flags().StringVar(&productsPath, "products", "", "Product types file for create_product_type")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 10*time.Second, "Time to wait for the answer")
}

var errNoFeed = errors.New("no order feed configured: set feed.url or --feed")

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Feed.URL == "" {
		return errNoFeed
	}

	command, err := buildCommand(args[0], cfg.Feed.AuthToken, productsPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
	defer cancel()
	answer, err := feed.SendOnce(ctx, feed.Options{URL: cfg.Feed.URL, AuthToken: cfg.Feed.AuthToken}, command)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

func buildCommand(kind, auth, products string) (feed.Command, error) {
	switch kind {
	case feed.CmdListProductTypes:
		return feed.ListProductTypes(auth), nil
	case feed.CmdRun:
		return feed.Run(auth), nil
	case feed.CmdCreateProductType:
		if products == "" {
			return feed.Command{}, fmt.Errorf("%s requires --products", kind)
		}
		data, err := os.ReadFile(products)
		if err != nil {
			return feed.Command{}, fmt.Errorf("read products: %w", err)
		}
		var types []feed.ProductType
		if err = json.Unmarshal(data, &types); err != nil {
			return feed.Command{}, fmt.Errorf("%s: %w", products, err)
		}
		return feed.CreateProductTypes(auth, types), nil
	}
	return feed.Command{}, fmt.Errorf("unknown command %q", kind)
}
