// Package main provides a CLI that lists the most valuable Zora coins, ready
// to paste into batch-trader's -tokens flag.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/archon-research/stl-trade/internal/adapters/outbound/zora"
	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/pkg/blockchain"
	"github.com/archon-research/stl-trade/internal/pkg/env"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
)

func main() {
	count := flag.Int("count", 10, "Number of coins to list")
	flag.Parse()

	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: env.ParseLogLevel(slog.LevelWarn),
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, *count, os.Stdout); err != nil {
		logger.Error("failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, count int, out io.Writer) error {
	apiKey, err := env.Require("ZORA_API_KEY")
	if err != nil {
		return err
	}
	chainID, err := env.GetInt64("CHAIN_ID", blockchain.BaseChainID)
	if err != nil {
		return err
	}

	client, err := zora.NewClient(zora.ClientConfig{
		APIKey:  apiKey,
		BaseURL: env.Get("ZORA_API_URL", ""),
		ChainID: chainID,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating zora client: %w", err)
	}

	return listCoins(ctx, client, count, out)
}

func listCoins(ctx context.Context, lister outbound.CoinLister, count int, out io.Writer) error {
	coins, err := lister.ListMostValuable(ctx, count)
	if err != nil {
		return fmt.Errorf("listing coins: %w", err)
	}
	return printCoins(out, coins)
}

func printCoins(out io.Writer, coins []entity.Coin) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "#\tNAME\tSYMBOL\tMARKET CAP\tHOLDERS\tADDRESS\n")
	for i, c := range coins {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", i+1, c.Name, c.Symbol, formatUSD(c.MarketCap), c.UniqueHolders, c.Address.Hex())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	addrs := make([]string, len(coins))
	for i, c := range coins {
		addrs[i] = c.Address.Hex()
	}
	_, err := fmt.Fprintf(out, "\n-tokens %s\n", strings.Join(addrs, ","))
	return err
}

// formatUSD renders a decimal dollar string in millions, e.g. "2500000" -> "$2.50M".
// Unparseable values are returned as given.
func formatUSD(raw string) string {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	return fmt.Sprintf("$%.2fM", v/1e6)
}
