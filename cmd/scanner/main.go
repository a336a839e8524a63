package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ihsan215/aeon-market-scanner/internal/config"
	"github.com/ihsan215/aeon-market-scanner/internal/dex/chains"
	"github.com/ihsan215/aeon-market-scanner/internal/dex/kyberswap"
	"github.com/ihsan215/aeon-market-scanner/internal/driver"
	"github.com/ihsan215/aeon-market-scanner/internal/fees"
	"github.com/ihsan215/aeon-market-scanner/internal/httpx"
	"github.com/ihsan215/aeon-market-scanner/internal/scanner"
	"github.com/ihsan215/aeon-market-scanner/internal/venue"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/binance"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/bitfinex"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/bitget"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/btcturk"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/bybit"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/coinbase"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/cryptocom"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/gateio"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/htx"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/kraken"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/kucoin"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/mexc"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/okx"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/upbit"
)

const appName = "aeon-market-scanner"

// allDrivers builds one instance of every CEX venue driver this
// scanner knows about, keyed by name for --venues filtering.
func allDrivers(log zerolog.Logger) map[string]driver.Driver {
	drivers := map[string]driver.Driver{
		venue.Binance:   binance.New(log),
		venue.Bybit:     bybit.New(log),
		venue.OKX:       okx.New(log),
		venue.MEXC:      mexc.New(log),
		venue.Gateio:    gateio.New(log),
		venue.Kucoin:    kucoin.New(log),
		venue.Bitget:    bitget.New(log),
		venue.Btcturk:   btcturk.New(log),
		venue.Htx:       htx.New(log),
		venue.Coinbase:  coinbase.New(log),
		venue.Kraken:    kraken.New(log),
		venue.Bitfinex:  bitfinex.New(log),
		venue.Upbit:     upbit.New(log),
		venue.Cryptocom: cryptocom.New(log),
	}

	if dex, err := kyberswap.New(log, chains.EthereumRegistry, "WETH", "USDT"); err != nil {
		log.Warn().Err(err).Msg("kyberswap driver unavailable")
	} else {
		drivers[venue.KyberSwap] = dex
	}

	return drivers
}

func selectDrivers(all map[string]driver.Driver, names []string) []driver.Driver {
	if len(names) == 0 {
		out := make([]driver.Driver, 0, len(all))
		for _, d := range all {
			out = append(out, d)
		}
		return out
	}
	out := make([]driver.Driver, 0, len(names))
	for _, n := range names {
		if d, ok := all[strings.TrimSpace(n)]; ok {
			out = append(out, d)
		}
	}
	return out
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:   "scanner",
		Short: "Multi-venue cryptocurrency market-data arbitrage scanner",
	}
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file (symbols, venues, venue_limits)")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a one-shot scan across venues and print ranked opportunities",
		RunE:  runScanOnce,
	}
	scanCmd.Flags().String("symbols", "", "comma-separated canonical symbols to scan (overrides config file)")
	scanCmd.Flags().String("venues", "", "comma-separated venue names to restrict the scan to (overrides config file)")

	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "Run a continuous streaming scan across venues",
		RunE:  runScanStreaming,
	}
	streamCmd.Flags().String("symbols", "", "comma-separated canonical symbols to stream (overrides config file)")
	streamCmd.Flags().String("venues", "", "comma-separated venue names to restrict the stream to (overrides config file)")
	streamCmd.Flags().Bool("reconnect", true, "reconnect on stream disconnect")
	streamCmd.Flags().Int("max-attempts", 0, "max reconnect attempts (0 = unlimited)")

	rootCmd.AddCommand(scanCmd, streamCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("scanner exited with error")
	}
}

const defaultSymbols = "BTCUSDT,ETHUSDT"

// loadConfig reads the --config YAML file (if any), applies its
// venue_limits to httpx's rate limiter/budget tracker, and returns it
// so callers can fall back to its symbols/venues when no flag was
// given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return &config.Config{}, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	for name, limit := range cfg.VenueLimits {
		if limit.RPS > 0 {
			httpx.SetVenueLimit(name, limit.RPS, limit.Burst)
		}
		if limit.DailyBudget > 0 {
			httpx.SetVenueDailyBudget(name, limit.DailyBudget)
		}
	}
	return cfg, nil
}

// scanLogger tags every log line from one scan invocation with a
// correlation ID, so concurrent scan/stream runs can be told apart in
// aggregated logs.
func scanLogger() zerolog.Logger {
	return log.Logger.With().Str("scan_id", uuid.NewString()).Logger()
}

func runScanOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	symbolsFlag, _ := cmd.Flags().GetString("symbols")
	venuesFlag, _ := cmd.Flags().GetString("venues")
	symbols := resolveList(symbolsFlag, cfg.Symbols, defaultSymbols)
	venueNames := resolveList(venuesFlag, cfg.Venues, "")

	scanLog := scanLogger()
	drivers := selectDrivers(allDrivers(scanLog), venueNames)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opportunities, err := scanner.ScanOnce(ctx, scanner.ScanRequest{
		Drivers:   drivers,
		Symbols:   symbols,
		Overrides: fees.NewOverrides(),
		Log:       scanLog,
	})
	if err != nil {
		return err
	}

	return printJSON(opportunities)
}

func runScanStreaming(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	symbolsFlag, _ := cmd.Flags().GetString("symbols")
	venuesFlag, _ := cmd.Flags().GetString("venues")
	reconnect, _ := cmd.Flags().GetBool("reconnect")
	maxAttempts, _ := cmd.Flags().GetInt("max-attempts")
	symbols := resolveList(symbolsFlag, cfg.Symbols, defaultSymbols)
	venueNames := resolveList(venuesFlag, cfg.Venues, "")

	scanLog := scanLogger()
	drivers := selectDrivers(allDrivers(scanLog), venueNames)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := scanner.ScanStreaming(ctx, scanner.StreamRequest{
		Drivers:     drivers,
		Symbols:     symbols,
		Overrides:   fees.NewOverrides(),
		Reconnect:   reconnect,
		MaxAttempts: maxAttempts,
		Log:         scanLog,
	})
	if err != nil {
		return err
	}

	for opportunities := range out {
		if err := printJSON(opportunities); err != nil {
			return err
		}
	}
	return nil
}

// resolveList picks flagVal (CSV) if set, else configVal, else
// fallback (CSV), always returning a parsed slice.
func resolveList(flagVal string, configVal []string, fallback string) []string {
	if flagVal != "" {
		return splitCSV(flagVal)
	}
	if len(configVal) > 0 {
		return configVal
	}
	return splitCSV(fallback)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
