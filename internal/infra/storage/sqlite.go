package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
)

// Store is the SQLite-backed ledger store. It implements
// domain.LedgerStore.
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the ledger database. An empty path uses
// the per-OS user data directory; ":memory:" gives an ephemeral store.
func NewStore(path string) (*Store, error) {
	dbPath := path
	if dbPath == "" {
		resolved, err := getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		dbPath = resolved
	}

	if dbPath != ":memory:" {
		dbDir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&AggregatedOrderRow{}, &ExecutionOrderRow{}, &TransactionRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "SarasTrading", "data", "ledger.db"), nil
}

// ======================================================================================
// Aggregated Orders
// ======================================================================================

// SaveAggregatedOrder persists the terminal snapshot of a pooled order.
func (s *Store) SaveAggregatedOrder(ctx context.Context, agg *domain.AggregatedOrder) error {
	row := AggregatedOrderRow{
		Symbol:           agg.Symbol,
		Side:             string(agg.Side),
		BrokerType:       string(agg.BrokerType),
		TotalQuantity:    agg.TotalQuantity.String(),
		WeightedAvgPrice: agg.WeightedAvgPrice.String(),
		BrokerOrderID:    agg.BrokerOrderID,
		Status:           string(agg.Status),
		FailureReason:    agg.FailureReason,
		IntentCount:      len(agg.Intents),
		CreatedAt:        agg.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// ======================================================================================
// Execution Orders
// ======================================================================================

// CreateExecutionOrder inserts a new per-user order record.
func (s *Store) CreateExecutionOrder(ctx context.Context, order *domain.ExecutionOrder) error {
	row, err := executionOrderRow(order)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(row).Error
}

// UpdateExecutionOrder persists the allocator's status update.
func (s *Store) UpdateExecutionOrder(ctx context.Context, order *domain.ExecutionOrder) error {
	row, err := executionOrderRow(order)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(row).Error
}

// GetExecutionOrder retrieves one per-user order record by ID.
func (s *Store) GetExecutionOrder(ctx context.Context, id string) (*domain.ExecutionOrder, error) {
	var row ExecutionOrderRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}

	order := &domain.ExecutionOrder{
		ID:           row.ID,
		BatchID:      row.BatchID,
		IntentID:     row.IntentID,
		UserID:       row.UserID,
		InvestmentID: row.InvestmentID,
		Symbol:       row.Symbol,
		Side:         domain.Side(row.Side),
		Status:       domain.ExecutionStatus(row.Status),
		StatusReason: row.StatusReason,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.Detail != "" {
		var detail domain.ExecutionDetail
		if err := json.Unmarshal([]byte(row.Detail), &detail); err == nil {
			order.Detail = &detail
		}
	}
	return order, nil
}

func executionOrderRow(order *domain.ExecutionOrder) (*ExecutionOrderRow, error) {
	row := &ExecutionOrderRow{
		ID:           order.ID,
		BatchID:      order.BatchID,
		IntentID:     order.IntentID,
		UserID:       order.UserID,
		InvestmentID: order.InvestmentID,
		Symbol:       order.Symbol,
		Side:         string(order.Side),
		Status:       string(order.Status),
		StatusReason: order.StatusReason,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
	if order.Detail != nil {
		data, err := json.Marshal(order.Detail)
		if err != nil {
			return nil, err
		}
		row.Detail = string(data)
	}
	return row, nil
}

// ======================================================================================
// Transactions
// ======================================================================================

// CreateTransaction inserts one user's ledger entry.
func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	row := TransactionRow{
		ID:              tx.ID,
		UserID:          tx.UserID,
		InvestmentID:    tx.InvestmentID,
		Symbol:          tx.Symbol,
		Type:            string(tx.Type),
		Quantity:        tx.Quantity.String(),
		Price:           tx.Price.String(),
		TotalAmount:     tx.TotalAmount.String(),
		Fees:            tx.Fees.String(),
		ExternalOrderID: tx.ExternalOrderID,
		CreatedAt:       tx.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// ListTransactionsByUser returns a user's ledger entries, newest first.
func (s *Store) ListTransactionsByUser(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	var rows []TransactionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		result = append(result, toTransaction(&rows[i]))
	}
	return result, nil
}

// ListTransactionsByExternalOrder returns the ledger entries behind one
// bulk broker order, for reconciliation.
func (s *Store) ListTransactionsByExternalOrder(ctx context.Context, externalOrderID string) ([]*domain.Transaction, error) {
	var rows []TransactionRow
	err := s.db.WithContext(ctx).
		Where("external_order_id = ?", externalOrderID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		result = append(result, toTransaction(&rows[i]))
	}
	return result, nil
}
