package broker

import (
	"fmt"
	"sync"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
)

// Builder constructs a gateway for one broker type. Builders are
// registered at bootstrap; nothing is wired through package-level state.
type Builder func() (domain.BrokerGateway, error)

// Factory creates broker gateways keyed by the BrokerType enum. It
// replaces string-matched dispatch: an unknown type is an explicit
// error, not a silently skipped branch.
type Factory struct {
	mu       sync.RWMutex
	builders map[domain.BrokerType]Builder
}

// NewFactory creates an empty gateway factory.
func NewFactory() *Factory {
	return &Factory{builders: make(map[domain.BrokerType]Builder)}
}

// Register binds a builder to a broker type, replacing any previous one.
func (f *Factory) Register(brokerType domain.BrokerType, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[brokerType] = builder
}

// New builds a gateway for the given broker type.
func (f *Factory) New(brokerType domain.BrokerType) (domain.BrokerGateway, error) {
	f.mu.RLock()
	builder, ok := f.builders[brokerType]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no gateway registered for broker type %q", brokerType)
	}
	return builder()
}

// Types returns the registered broker types.
func (f *Factory) Types() []domain.BrokerType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]domain.BrokerType, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	return types
}
