package events

import (
	"log/slog"
	"sync"

	"github.com/coinage-io/coinage/internal/domain"
)

// Subscriber receives every published transaction result. Delivery is
// synchronous on the publishing goroutine, so subscribers must be quick
// and must not call back into the ledger.
type Subscriber func(domain.TransactionResult)

type Bus struct {
	mu   sync.RWMutex
	subs []Subscriber
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

func (b *Bus) Publish(result domain.TransactionResult) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(result)
	}
}

// TransactionLogger is the built-in audit subscriber. Successful
// operations log at info, everything else at warn.
func TransactionLogger(log *slog.Logger) Subscriber {
	return func(r domain.TransactionResult) {
		attrs := []any{
			"operation", r.Operation,
			"outcome", r.Outcome,
			"account", r.AccountID,
			"currency", r.Currency,
			"amount", r.Amount.String(),
		}
		if r.Counterparty != "" {
			attrs = append(attrs, "counterparty", r.Counterparty)
		}
		if r.Succeeded() {
			log.Info("transaction", attrs...)
			return
		}
		log.Warn("transaction", attrs...)
	}
}
