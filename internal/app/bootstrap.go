package app

import (
	"log/slog"
	"time"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/broker"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/broker/alpaca"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/broker/paper"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/execution"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/infra"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence. All wiring is
// explicit: every component receives its dependencies here, nothing is
// resolved through package-level state.
type Bootstrap struct {
	Config   *infra.Config
	Logger   *slog.Logger
	Store    *storage.Store
	Metrics  *infra.Metrics
	Factory  *broker.Factory
	Registry *execution.Registry
	Rates    *infra.ExchangeRateClient

	// Paper is the shared simulated gateway, kept for prices to be
	// seeded in dry runs and tests.
	Paper *paper.Gateway
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB,
// broker gateways).
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping rebalance core...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	b.Logger = logger

	// 3. Initialize Storage (DB)
	store, err := storage.NewStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("✅ Ledger database initialized")

	// 4. Metrics
	b.Metrics = infra.NewMetrics()

	// 5. Broker gateway factory, keyed by broker type
	b.Paper = paper.NewGateway()
	b.Factory = broker.NewFactory()
	b.Factory.Register(domain.BrokerPaper, func() (domain.BrokerGateway, error) {
		return b.Paper, nil
	})
	if cfg.Brokers.Alpaca.Enabled {
		alpacaCfg := cfg.Brokers.Alpaca
		b.Factory.Register(domain.BrokerAlpaca, func() (domain.BrokerGateway, error) {
			return alpaca.NewClient(alpacaCfg), nil
		})
	}
	if cfg.Brokers.Zerodha.Enabled {
		// No live zerodha gateway is shipped yet; route its flow through
		// the shared paper gateway so zerodha-typed intents stay executable.
		b.Factory.Register(domain.BrokerZerodha, func() (domain.BrokerGateway, error) {
			return b.Paper, nil
		})
	}

	// 6. Pooled connection registry
	b.Registry = execution.NewRegistry(logger)
	if err := b.registerConnection(domain.BrokerPaper, "master"); err != nil {
		return err
	}
	if cfg.Brokers.Alpaca.Enabled {
		if err := b.registerConnection(domain.BrokerAlpaca, connectionAlias(cfg.Brokers.Alpaca)); err != nil {
			return err
		}
	}
	if cfg.Brokers.Zerodha.Enabled {
		if err := b.registerConnection(domain.BrokerZerodha, connectionAlias(cfg.Brokers.Zerodha)); err != nil {
			return err
		}
	}
	slog.Info("✅ Broker gateways ready", slog.Int("types", len(b.Factory.Types())))

	// 7. Exchange rate provider (optional)
	if cfg.ExchangeRate.URL != "" {
		interval := time.Duration(cfg.ExchangeRate.PollIntervalSec) * time.Second
		b.Rates = infra.NewExchangeRateClient(cfg.ExchangeRate.URL, interval, logger)
	}

	return nil
}

// registerConnection builds one gateway through the factory and registers
// it as a connection for its broker type.
func (b *Bootstrap) registerConnection(brokerType domain.BrokerType, alias string) error {
	gw, err := b.Factory.New(brokerType)
	if err != nil {
		return err
	}
	b.Registry.Register(&execution.Connection{
		Gateway:    gw,
		BrokerType: brokerType,
		Alias:      alias,
		Active:     true,
	})
	b.Metrics.IncrementConnections()
	return nil
}

func connectionAlias(cfg infra.BrokerConfig) string {
	if cfg.Alias != "" {
		return cfg.Alias
	}
	return "master"
}
