// Package main provides the batch-trader CLI: it buys or sells a set of tokens
// in one batch through a quote provider, simulating before anything is sent.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"math/rand/v2"
	"os"
	"os/signal"
	"runtime/debug"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/archon-research/stl-trade/internal/adapters/outbound/console"
	"github.com/archon-research/stl-trade/internal/adapters/outbound/ethereum"
	"github.com/archon-research/stl-trade/internal/adapters/outbound/sns"
	"github.com/archon-research/stl-trade/internal/adapters/outbound/telemetry"
	"github.com/archon-research/stl-trade/internal/adapters/outbound/zerox"
	"github.com/archon-research/stl-trade/internal/adapters/outbound/zora"
	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/pkg/blockchain"
	"github.com/archon-research/stl-trade/internal/pkg/env"
	"github.com/archon-research/stl-trade/internal/ports/inbound"
	"github.com/archon-research/stl-trade/internal/ports/outbound"
	"github.com/archon-research/stl-trade/internal/services/batch_trader"
)

// Build-time variables - can be set via ldflags, otherwise populated from Go's build info.
var (
	GitCommit string
	GitBranch string
	BuildTime string
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if GitCommit == "" {
					GitCommit = setting.Value
				}
			case "vcs.time":
				if BuildTime == "" {
					BuildTime = setting.Value
				}
			}
		}
	}
}

const serviceName = "batch-trader"

// options are the parsed command-line flags.
type options struct {
	direction   entity.Direction
	mode        entity.ExecutionMode
	providers   []string
	tokens      []common.Address
	random      int
	seed        uint64
	seedSet     bool
	amount      *big.Int
	slippageBps uint32
	dryRun      bool
	autoApprove bool
	traceStdout bool
	showVersion bool
}

func parseFlags(args []string, output io.Writer) (options, error) {
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.SetOutput(output)

	direction := fs.String("direction", "buy", "Trade direction: 'buy' (ETH -> tokens) or 'sell' (full token balances -> ETH)")
	mode := fs.String("mode", "", "Execution mode: 'atomic' (one Multicall3 transaction, buys only) or 'sequential' (one transaction per swap). Default: atomic for buys, sequential for sells")
	provider := fs.String("provider", "0x", "Quote provider, or a comma-separated fallback chain: '0x', 'zora', '0x,zora'")
	tokens := fs.String("tokens", "", "Comma-separated token addresses to trade")
	random := fs.Int("random", 0, "Number of additional tokens drawn from the Zora most-valuable listing")
	seed := fs.Uint64("seed", 0, "Seed for random token selection (default: time-based)")
	amount := fs.String("amount", "0.00001", "ETH spent per token on buys")
	slippage := fs.Uint("slippage-bps", 100, "Slippage tolerance in basis points")
	dryRun := fs.Bool("dry-run", false, "Stop after a successful simulation")
	autoApprove := fs.Bool("auto-approve", true, "Submit approvals for sells when the allowance is below the balance")
	traceStdout := fs.Bool("trace-stdout", false, "Write spans to stderr when no OTLP endpoint is configured")
	showVersion := fs.Bool("version", false, "Show version information and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{
		random:      *random,
		seed:        *seed,
		dryRun:      *dryRun,
		autoApprove: *autoApprove,
		traceStdout: *traceStdout,
		showVersion: *showVersion,
	}
	if opts.showVersion {
		return opts, nil
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			opts.seedSet = true
		}
	})

	var err error
	if opts.direction, err = entity.ParseDirection(*direction); err != nil {
		return options{}, err
	}
	if opts.mode, err = parseMode(*mode, opts.direction); err != nil {
		return options{}, err
	}
	if opts.providers, err = parseProviders(*provider); err != nil {
		return options{}, err
	}
	if opts.direction == entity.DirectionSell && slices.Contains(opts.providers, "zora") {
		// Sell approvals go to the 0x AllowanceHolder; Zora trade calls pull through another spender.
		return options{}, errors.New("sells are only supported with -provider 0x")
	}
	if opts.tokens, err = parseTokens(*tokens); err != nil {
		return options{}, err
	}
	if opts.random < 0 {
		return options{}, fmt.Errorf("-random must not be negative")
	}
	if len(opts.tokens) == 0 && opts.random == 0 {
		return options{}, fmt.Errorf("either -tokens or -random is required")
	}
	if *slippage > 10_000 {
		return options{}, fmt.Errorf("-slippage-bps must be at most 10000, got %d", *slippage)
	}
	opts.slippageBps = uint32(*slippage)

	if opts.direction == entity.DirectionBuy {
		if opts.amount, err = blockchain.ParseUnits(*amount, blockchain.NativeDecimals); err != nil {
			return options{}, fmt.Errorf("invalid -amount: %w", err)
		}
		if opts.amount.Sign() <= 0 {
			return options{}, fmt.Errorf("-amount must be positive")
		}
	}
	return opts, nil
}

// parseMode resolves -mode. Sells must run sequentially: inside Multicall3
// the swap's msg.sender would be Multicall3, not the approving wallet.
func parseMode(s string, direction entity.Direction) (entity.ExecutionMode, error) {
	if strings.TrimSpace(s) == "" {
		if direction == entity.DirectionSell {
			return entity.ModeSequential, nil
		}
		return entity.ModeAtomic, nil
	}
	mode, err := entity.ParseExecutionMode(s)
	if err != nil {
		return "", err
	}
	if direction == entity.DirectionSell && mode == entity.ModeAtomic {
		return "", errors.New("-mode atomic is not supported for sells, use -mode sequential")
	}
	return mode, nil
}

func parseProviders(s string) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if name != "0x" && name != "zora" {
			return nil, fmt.Errorf("unknown provider: %s (supported: 0x, zora)", name)
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, errors.New("-provider is required")
	}
	return names, nil
}

func parseTokens(s string) ([]common.Address, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []common.Address
	for _, raw := range strings.Split(s, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid token address: %q", raw)
		}
		out = append(out, common.HexToAddress(raw))
	}
	return out, nil
}

// settings is the environment-derived configuration.
type settings struct {
	rpcURL        string
	privateKey    string
	chainID       int64
	zeroXAPIKey   string
	zeroXURL      string
	zoraAPIKey    string
	zoraURL       string
	multicall3    common.Address
	spender       common.Address
	snsTopicARN   string
	awsRegion     string
	snsEndpoint   string
	otlpEndpoint  string
	explorerTxURL string
}

func loadSettings() (settings, error) {
	var s settings
	var err error

	if s.rpcURL, err = env.Require("RPC_URL"); err != nil {
		return s, err
	}
	if s.privateKey, err = env.Require("PRIVATE_KEY"); err != nil {
		return s, err
	}
	if s.chainID, err = env.GetInt64("CHAIN_ID", blockchain.BaseChainID); err != nil {
		return s, err
	}
	if s.multicall3, err = addressEnv("MULTICALL3_ADDRESS", blockchain.Multicall3Address); err != nil {
		return s, err
	}
	if s.spender, err = addressEnv("ZEROX_ALLOWANCE_HOLDER", blockchain.ZeroXAllowanceHolderAddress); err != nil {
		return s, err
	}

	s.zeroXAPIKey = env.Get("ZEROX_API_KEY", "")
	s.zeroXURL = env.Get("ZEROX_API_URL", "")
	s.zoraAPIKey = env.Get("ZORA_API_KEY", "")
	s.zoraURL = env.Get("ZORA_API_URL", "")
	s.snsTopicARN = env.Get("REPORT_SNS_TOPIC_ARN", "")
	s.awsRegion = env.Get("AWS_REGION", "us-east-1")
	s.snsEndpoint = env.Get("AWS_SNS_ENDPOINT", "")
	s.otlpEndpoint = env.Get("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	s.explorerTxURL = env.Get("EXPLORER_TX_URL", console.ConfigDefaults().ExplorerURL)
	return s, nil
}

func addressEnv(key, defaultValue string) (common.Address, error) {
	raw := env.Get(key, defaultValue)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%s is not a valid address: %q", key, raw)
	}
	return common.HexToAddress(raw), nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Printf("%s\n", serviceName)
		fmt.Printf("  Commit:     %s\n", GitCommit)
		fmt.Printf("  Branch:     %s\n", GitBranch)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: env.ParseLogLevel(slog.LevelInfo),
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	logger.Info("starting "+serviceName,
		"commit", GitCommit,
		"direction", opts.direction,
		"mode", opts.mode,
		"providers", strings.Join(opts.providers, ","),
		"dryRun", opts.dryRun,
	)

	report, err := run(ctx, logger, opts)
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
	if report.Failed() > 0 || report.CountStatus(entity.StatusUnknown) > 0 {
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, opts options) (*entity.RunReport, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}

	shutdown, err := initTelemetry(ctx, s.otlpEndpoint, opts.traceStdout)
	if err != nil {
		return nil, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	metrics, err := telemetry.NewMetrics(serviceName)
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	chain, err := ethereum.Dial(ctx, ethereum.Config{
		RPCURL:     s.rpcURL,
		PrivateKey: s.privateKey,
		ChainID:    big.NewInt(s.chainID),
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to chain: %w", err)
	}
	defer chain.Close()

	provider, lister, err := createProviders(opts.providers, opts.random > 0, s, logger)
	if err != nil {
		return nil, err
	}

	sinks := []outbound.ReportSink{
		console.NewReportSink(console.Config{ExplorerURL: s.explorerTxURL, Logger: logger}),
	}
	if s.snsTopicARN != "" {
		sink, err := createSNSSink(ctx, s, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}

	cfg := batch_trader.ConfigDefaults()
	cfg.Multicall3 = s.multicall3
	cfg.Spender = s.spender
	cfg.AutoApprove = opts.autoApprove
	cfg.Rand = newRand(opts)
	cfg.Metrics = metrics
	cfg.Logger = logger

	service, err := batch_trader.NewService(cfg, chain, chain, provider, lister, sinks...)
	if err != nil {
		return nil, fmt.Errorf("creating service: %w", err)
	}

	logger.Info("wallet", "address", chain.Sender().Hex(), "chainID", s.chainID)

	return service.Run(ctx, inbound.RunRequest{
		Direction:      opts.direction,
		Mode:           opts.mode,
		Tokens:         opts.tokens,
		RandomCount:    opts.random,
		AmountPerTrade: opts.amount,
		SlippageBps:    opts.slippageBps,
		DryRun:         opts.dryRun,
	})
}

// createProviders builds the quote provider chain. The Zora client also serves
// the coin listing, so it is created whenever random targets are requested.
func createProviders(names []string, needLister bool, s settings, logger *slog.Logger) (outbound.QuoteProvider, outbound.CoinLister, error) {
	var zoraClient *zora.Client
	getZora := func() (*zora.Client, error) {
		if zoraClient != nil {
			return zoraClient, nil
		}
		if s.zoraAPIKey == "" {
			return nil, errors.New("ZORA_API_KEY environment variable is required")
		}
		c, err := zora.NewClient(zora.ClientConfig{
			APIKey:  s.zoraAPIKey,
			BaseURL: s.zoraURL,
			ChainID: s.chainID,
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating zora client: %w", err)
		}
		zoraClient = c
		return c, nil
	}

	providers := make([]outbound.QuoteProvider, 0, len(names))
	for _, name := range names {
		switch name {
		case "0x":
			if s.zeroXAPIKey == "" {
				return nil, nil, errors.New("ZEROX_API_KEY environment variable is required")
			}
			c, err := zerox.NewClient(zerox.ClientConfig{
				APIKey:  s.zeroXAPIKey,
				BaseURL: s.zeroXURL,
				ChainID: s.chainID,
				Logger:  logger,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("creating 0x client: %w", err)
			}
			providers = append(providers, c)
		case "zora":
			c, err := getZora()
			if err != nil {
				return nil, nil, err
			}
			providers = append(providers, c)
		default:
			return nil, nil, fmt.Errorf("unknown provider: %s", name)
		}
	}

	var lister outbound.CoinLister
	if needLister {
		c, err := getZora()
		if err != nil {
			return nil, nil, fmt.Errorf("random targets: %w", err)
		}
		lister = c
	}

	if len(providers) == 1 {
		return providers[0], lister, nil
	}
	fallback, err := batch_trader.NewFallbackProvider(logger, providers...)
	if err != nil {
		return nil, nil, err
	}
	return fallback, lister, nil
}

func createSNSSink(ctx context.Context, s settings, logger *slog.Logger) (*sns.ReportSink, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.awsRegion)}
	if s.snsEndpoint != "" {
		// Local emulators accept any static credentials.
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := awssns.NewFromConfig(awsCfg, func(o *awssns.Options) {
		if s.snsEndpoint != "" {
			o.BaseEndpoint = aws.String(s.snsEndpoint)
		}
	})
	return sns.NewReportSink(client, sns.Config{
		TopicARN: s.snsTopicARN,
		Logger:   logger,
	})
}

// initTelemetry exports spans and metrics when a collector is configured.
// Without one, spans go to stderr if traceStdout is set; otherwise the
// global no-op providers stay in place.
func initTelemetry(ctx context.Context, endpoint string, traceStdout bool) (func(context.Context) error, error) {
	if endpoint == "" {
		if !traceStdout {
			return func(context.Context) error { return nil }, nil
		}
		shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
			ServiceName:    serviceName,
			ServiceVersion: GitCommit,
			StdoutWriter:   os.Stderr,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing tracer: %w", err)
		}
		return shutdownTracer, nil
	}

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: GitCommit,
		OTLPEndpoint:   endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing tracer: %w", err)
	}
	shutdownMetrics, err := telemetry.InitMetrics(ctx, telemetry.MetricConfig{
		ServiceName:    serviceName,
		ServiceVersion: GitCommit,
		OTLPEndpoint:   endpoint,
	})
	if err != nil {
		_ = shutdownTracer(ctx)
		return nil, fmt.Errorf("initializing metrics: %w", err)
	}

	return func(ctx context.Context) error {
		return errors.Join(shutdownMetrics(ctx), shutdownTracer(ctx))
	}, nil
}

func newRand(opts options) *rand.Rand {
	seed := opts.seed
	if !opts.seedSet {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed))
}
