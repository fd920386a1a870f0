package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/app"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/broker/alpaca"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/refdata"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	batchPath := flag.String("batch", "configs/batch.yaml", "path to batch file with intents and reference data")
	flag.Parse()

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Exchange rates (optional, for cross-currency baskets)
	if bootstrap.Rates != nil {
		if err := bootstrap.Rates.Start(ctx); err != nil {
			slog.Warn("Exchange rate client failed to start", slog.Any("error", err))
		} else {
			defer bootstrap.Rates.Stop()
		}
	}

	// 4. Trade-updates stream for the pooled alpaca account
	if bootstrap.Config.Brokers.Alpaca.Enabled {
		stream := alpaca.NewStreamWorker(bootstrap.Config.Brokers.Alpaca, func(u alpaca.OrderUpdate) {
			slog.Info("trade update",
				slog.String("order_id", u.OrderID),
				slog.String("status", string(u.Status)))
		})
		if err := stream.Connect(ctx); err != nil {
			slog.Warn("Trade-updates stream unavailable", slog.Any("error", err))
		} else {
			defer stream.Disconnect()
		}
	}

	// 5. Load the batch
	refData := refdata.NewService()
	intents, err := loadBatch(*batchPath, refData)
	if err != nil {
		slog.Error("❌ Failed to load batch file", slog.Any("error", err))
		os.Exit(1)
	}
	intents = refData.FillPrices(intents)
	stocks, investments := refData.Snapshot()
	slog.Info("✅ Batch loaded", slog.Int("intents", len(intents)))

	// Paper fills execute at the reference price.
	for _, intent := range intents {
		bootstrap.Paper.SetPrice(intent.Symbol, intent.ReferencePrice)
	}

	// 6. Run the pipeline
	pipeline := app.NewPipeline(bootstrap)
	report, err := pipeline.Run(ctx, intents, stocks, investments)
	if err != nil {
		slog.Error("❌ Batch run failed", slog.Any("error", err))
		os.Exit(1)
	}

	// 7. Per-symbol summary
	fmt.Printf("batch %s\n", report.BatchID)
	fmt.Print(report.Result.Summary())
	for _, w := range report.Result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	fmt.Printf("allocations: %d, skipped intents: %d\n", len(report.Records), len(report.Skipped))

	snap := bootstrap.Metrics.Snapshot()
	slog.InfoContext(ctx, "✨ Rebalance batch complete",
		slog.Uint64("orders_filled", snap.OrdersFilled),
		slog.Uint64("orders_rejected", snap.OrdersRejected),
		slog.Uint64("intents_skipped", snap.IntentsSkipped))
}

// batchFile is the on-disk shape of one rebalance batch. Decimal fields
// are strings so their precision survives YAML parsing untouched.
type batchFile struct {
	Intents []struct {
		UserID         string `yaml:"user_id"`
		InvestmentID   string `yaml:"investment_id"`
		Symbol         string `yaml:"symbol"`
		WeightChange   string `yaml:"weight_change"`
		ReferencePrice string `yaml:"reference_price"`
		BrokerType     string `yaml:"broker_type"`
	} `yaml:"intents"`

	Stocks []struct {
		Symbol   string `yaml:"symbol"`
		Exchange string `yaml:"exchange"`
		Name     string `yaml:"name"`
		Currency string `yaml:"currency"`
	} `yaml:"stocks"`

	Investments []struct {
		ID           string `yaml:"id"`
		UserID       string `yaml:"user_id"`
		CurrentValue string `yaml:"current_value"`
		Currency     string `yaml:"currency"`
	} `yaml:"investments"`
}

// loadBatch parses the batch file, registers its reference data with the
// service, and returns the intents.
func loadBatch(path string, refData *refdata.Service) ([]domain.OrderIntent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file batchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	intents := make([]domain.OrderIntent, 0, len(file.Intents))
	for _, in := range file.Intents {
		weight, err := decimal.NewFromString(in.WeightChange)
		if err != nil {
			return nil, fmt.Errorf("intent for %s: bad weight_change: %w", in.Symbol, err)
		}
		// Reference price may be omitted; FillPrices resolves it from
		// another intent's price for the same symbol.
		price := decimal.Zero
		if in.ReferencePrice != "" {
			price, err = decimal.NewFromString(in.ReferencePrice)
			if err != nil {
				return nil, fmt.Errorf("intent for %s: bad reference_price: %w", in.Symbol, err)
			}
		}
		if price.IsPositive() {
			refData.UpdatePrice(in.Symbol, price)
		}
		intents = append(intents, domain.OrderIntent{
			UserID:         in.UserID,
			InvestmentID:   in.InvestmentID,
			Symbol:         in.Symbol,
			WeightChange:   weight,
			ReferencePrice: price,
			BrokerType:     domain.BrokerType(in.BrokerType),
		})
	}

	for _, s := range file.Stocks {
		refData.UpsertStock(&domain.StockInfo{
			Symbol:   s.Symbol,
			Exchange: s.Exchange,
			Name:     s.Name,
			Currency: s.Currency,
			IsActive: true,
		})
	}

	for _, inv := range file.Investments {
		value, err := decimal.NewFromString(inv.CurrentValue)
		if err != nil {
			return nil, fmt.Errorf("investment %s: bad current_value: %w", inv.ID, err)
		}
		refData.UpsertInvestment(&domain.Investment{
			ID:           inv.ID,
			UserID:       inv.UserID,
			CurrentValue: value,
			Currency:     inv.Currency,
		})
	}

	return intents, nil
}
