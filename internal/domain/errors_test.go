package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBrokerError(t *testing.T) {
	baseErr := errors.New("connection refused")

	t.Run("retriable error", func(t *testing.T) {
		err := NewBrokerError(BrokerAlpaca, "place_order", baseErr)

		if !err.IsRetriable() {
			t.Error("Expected error to be retriable")
		}

		if err.Error() != "alpaca place_order: connection refused" {
			t.Errorf("Error message = %q, want %q", err.Error(), "alpaca place_order: connection refused")
		}

		if !errors.Is(err, baseErr) {
			t.Error("Expected error to wrap baseErr")
		}
	})

	t.Run("fatal error", func(t *testing.T) {
		err := NewFatalBrokerError(BrokerZerodha, "authenticate", baseErr)

		if err.IsRetriable() {
			t.Error("Expected error to not be retriable")
		}
	})

	t.Run("IsRetriable helper", func(t *testing.T) {
		retriable := NewBrokerError(BrokerAlpaca, "place_order", baseErr)
		fatal := NewFatalBrokerError(BrokerAlpaca, "authenticate", baseErr)
		plain := errors.New("plain error")

		if !IsRetriable(retriable) {
			t.Error("IsRetriable should return true for retriable error")
		}

		if IsRetriable(fatal) {
			t.Error("IsRetriable should return false for fatal error")
		}

		if IsRetriable(plain) {
			t.Error("IsRetriable should return false for plain error")
		}
	})
}

func TestResolutionError(t *testing.T) {
	err := &ResolutionError{IntentID: "i-1", Reason: "missing stock information"}

	if err.IsRetriable() {
		t.Error("ResolutionError should never be retriable")
	}

	expected := "intent i-1: missing stock information"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}

func TestAllocationError(t *testing.T) {
	err := &AllocationError{
		Key:      "AAPL:buy:alpaca",
		Expected: decimal.NewFromInt(10),
		Actual:   decimal.NewFromInt(9),
		Reason:   "quantity mismatch",
	}

	if err.IsRetriable() {
		t.Error("AllocationError should never be retriable")
	}

	if err.Error() == "" {
		t.Error("AllocationError should render a message")
	}
}

func TestConfigError(t *testing.T) {
	baseErr := errors.New("missing value")
	err := &ConfigError{Field: "api_key", Err: baseErr}

	if err.IsRetriable() {
		t.Error("ConfigError should never be retriable")
	}

	expected := "config error [api_key]: missing value"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}
