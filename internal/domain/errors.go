package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// BrokerError represents a broker API failure. Timeouts and transient
// network faults are retriable by a later batch; auth failures and
// rejections are not. Within one batch nothing retries; the aggregate
// is marked rejected and the batch continues.
type BrokerError struct {
	Op        string // Operation that failed (e.g., "place_order", "authenticate")
	Broker    BrokerType
	Err       error
	Retriable bool
}

func (e *BrokerError) Error() string {
	return string(e.Broker) + " " + e.Op + ": " + e.Err.Error()
}

func (e *BrokerError) IsRetriable() bool {
	return e.Retriable
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// NewBrokerError creates a retriable broker error (timeouts, 5xx).
func NewBrokerError(broker BrokerType, op string, err error) *BrokerError {
	return &BrokerError{Op: op, Broker: broker, Err: err, Retriable: true}
}

// NewFatalBrokerError creates a non-retriable broker error (auth, rejection).
func NewFatalBrokerError(broker BrokerType, op string, err error) *BrokerError {
	return &BrokerError{Op: op, Broker: broker, Err: err, Retriable: false}
}

// ResolutionError marks an intent that could not resolve its stock or
// owning investment. The intent is excluded from aggregation and its
// execution order fails; the batch continues.
type ResolutionError struct {
	IntentID string
	Reason   string
}

func (e *ResolutionError) Error() string {
	return "intent " + e.IntentID + ": " + e.Reason
}

func (e *ResolutionError) IsRetriable() bool {
	return false
}

// AllocationError reports a conservation violation while redistributing a
// fill. It is fatal for the aggregate and must never be silently
// truncated; the aggregate is flagged for manual reconciliation.
type AllocationError struct {
	Key      string
	Expected decimal.Decimal
	Actual   decimal.Decimal
	Reason   string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation invariant violated for %s: %s (expected %s, got %s)",
		e.Key, e.Reason, e.Expected, e.Actual)
}

func (e *AllocationError) IsRetriable() bool {
	return false
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrNoPooledConnection is returned when no broker connection of the
	// requested type can be resolved for the batch.
	ErrNoPooledConnection = errors.New("no pooled broker connection")

	// ErrNotTerminal is returned when allocation is requested for an
	// aggregate that has not reached a terminal broker status.
	ErrNotTerminal = errors.New("aggregate is not in a terminal status")

	// ErrMissingStockInfo is the resolution failure for unknown symbols.
	ErrMissingStockInfo = errors.New("missing stock information")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
