package archive

import (
	"context"
	"log"

	"github.com/certen/ledgercore/pkg/config"
	"github.com/certen/ledgercore/pkg/observer"
)

// Sink fans every BlockCementedEvent out to the confirmed_blocks table,
// best-effort: a write failure is logged and dropped, never propagated
// back into the cementer's hot path.
type Sink struct {
	client *Client
	logger *log.Logger
}

// NewSink builds a Sink. When cfg.ArchiveDatabaseURL is empty it
// returns a Sink whose Start is a no-op, so callers can wire it
// unconditionally without a nil check at every call site.
func NewSink(cfg *config.Config) (*Sink, error) {
	if cfg.ArchiveDatabaseURL == "" {
		return &Sink{}, nil
	}
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.MigrateUp(context.Background()); err != nil {
		client.Close()
		return nil, err
	}
	return &Sink{client: client, logger: log.New(log.Writer(), "[Archive] ", log.LstdFlags)}, nil
}

// Start subscribes to bus and writes cemented blocks until ctx is
// canceled. It returns immediately (runs its own goroutine); callers
// don't need to wait on it.
func (s *Sink) Start(ctx context.Context, bus *observer.Bus) {
	if s.client == nil {
		return
	}
	ch := make(chan observer.BlockCementedEvent, 256)
	sub := bus.SubscribeBlockCemented(ch)

	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				s.logger.Printf("subscription error: %v", err)
				return
			case ev := <-ch:
				if err := s.record(ctx, ev); err != nil {
					s.logger.Printf("record cemented block %s: %v", ev.Hash, err)
				}
			}
		}
	}()
}

func (s *Sink) record(ctx context.Context, ev observer.BlockCementedEvent) error {
	_, err := s.client.DB().ExecContext(ctx, `
		INSERT INTO confirmed_blocks (hash, account, height, block_type, balance)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hash) DO NOTHING
	`, ev.Hash.Hex(), ev.Account.Hex(), ev.Height, int(ev.Block.Type()), ev.Balance.Big().String())
	return err
}

// Close releases the underlying connection, if any.
func (s *Sink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
