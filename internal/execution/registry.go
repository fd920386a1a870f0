package execution

import (
	"log/slog"
	"sync"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
)

// pooledAliases are the account labels that mark a connection as the
// pooled ("master") account for bulk orders.
var pooledAliases = map[string]struct{}{
	"master":     {},
	"admin":      {},
	"aggregator": {},
}

// Connection is one authenticated broker session. The pooled session is
// a single shared credential, so bulk submissions serialize on mu: one
// broker-type group at a time, even across concurrent batches.
type Connection struct {
	Gateway    domain.BrokerGateway
	BrokerType domain.BrokerType
	Alias      string
	Active     bool

	mu sync.Mutex
}

// IsPooled reports whether this connection is tagged as the pooled
// master account.
func (c *Connection) IsPooled() bool {
	_, ok := pooledAliases[c.Alias]
	return ok
}

// Registry holds the known broker connections per broker type. It is the
// only resolver the coordinator uses; connections are registered at
// bootstrap, never looked up by free-text matching.
type Registry struct {
	mu     sync.RWMutex
	conns  map[domain.BrokerType][]*Connection
	logger *slog.Logger
}

// NewRegistry creates an empty connection registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conns:  make(map[domain.BrokerType][]*Connection),
		logger: logger.With("module", "broker_registry"),
	}
}

// Register adds a connection for its broker type.
func (r *Registry) Register(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.BrokerType] = append(r.conns[conn.BrokerType], conn)
}

// ResolvePooled returns the pooled connection for a broker type. If no
// connection carries a pooled alias it falls back to any active
// connection and reports fallback=true; executing bulk orders on a
// non-master account is an operational risk the caller must surface.
func (r *Registry) ResolvePooled(brokerType domain.BrokerType) (conn *Connection, fallback bool, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.conns[brokerType] {
		if c.Active && c.IsPooled() {
			return c, false, nil
		}
	}
	for _, c := range r.conns[brokerType] {
		if c.Active {
			r.logger.Warn("no master connection tagged, falling back to active connection",
				slog.String("broker_type", string(brokerType)),
				slog.String("alias", c.Alias))
			return c, true, nil
		}
	}
	return nil, false, domain.ErrNoPooledConnection
}
