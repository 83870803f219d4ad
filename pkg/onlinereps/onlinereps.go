// Package onlinereps is the online representatives register: which
// representatives have been heard from recently (via a verified vote),
// the live online weight they carry, and the trended median over a
// rolling sample table that the election quorum check floors against
// so a brief dip in live peers never lowers the bar an election has to
// clear.
package onlinereps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/certen/ledgercore/pkg/blocks"
	"github.com/certen/ledgercore/pkg/config"
	"github.com/certen/ledgercore/pkg/store"
	"github.com/ethereum/go-ethereum/common"
)

// WeightOf looks up a representative's currently delegated weight, the
// same interface pkg/elections.WeightOf names.
type WeightOf interface {
	Weight(representative common.Hash) blocks.Balance
}

// Register tracks last-seen timestamps per representative and samples
// the resulting online weight on a fixed cadence. The zero value is
// not usable; build one with New.
type Register struct {
	mu         sync.Mutex
	lastSeen   map[common.Hash]int64
	liveWindow time.Duration

	weights WeightOf
	db      store.Store
	minimum blocks.Balance

	sampleEvery time.Duration
	sampleCount int

	logger *log.Logger
	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Register sampling into db, scoring each peered
// representative's weight via weights, and tuned by cfg.
func New(db store.Store, weights WeightOf, cfg *config.Config) *Register {
	return &Register{
		lastSeen:    make(map[common.Hash]int64),
		liveWindow:  cfg.OnlineRepsLiveWindow,
		weights:     weights,
		db:          db,
		minimum:     blocks.NewBalanceFromUint64(cfg.OnlineWeightMinimum),
		sampleEvery: cfg.OnlineWeightSampleEvery,
		sampleCount: cfg.OnlineWeightSampleCount,
		logger:      log.New(log.Writer(), "[OnlineReps] ", log.LstdFlags),
	}
}

// Observe records that representative cast a verified vote at unix-
// seconds now, wired in from pkg/voteprocessor's per-vote callback.
func (r *Register) Observe(representative common.Hash, now int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSeen[representative] = now
}

// PeeredReps returns every representative heard from within the live
// window of now.
func (r *Register) PeeredReps(now int64) []common.Hash {
	r.mu.Lock()
	defer r.mu.Unlock()
	windowSecs := int64(r.liveWindow / time.Second)
	out := make([]common.Hash, 0, len(r.lastSeen))
	for rep, seen := range r.lastSeen {
		if now-seen <= windowSecs {
			out = append(out, rep)
		}
	}
	return out
}

// OnlineWeight sums the currently delegated weight of every peered
// representative — the instantaneous, un-trended measurement a new
// sample is drawn from.
func (r *Register) OnlineWeight(now int64) blocks.Balance {
	total := blocks.ZeroBalance
	for _, rep := range r.PeeredReps(now) {
		total = total.Add(r.weights.Weight(rep))
	}
	return total
}

// Trended returns the median of the persisted online-weight samples,
// floored at config.OnlineWeightMinimum.
func (r *Register) Trended() blocks.Balance {
	samples, err := r.loadSamples()
	if err != nil {
		r.logger.Printf("trended: %v", err)
	}
	if len(samples) == 0 {
		return r.minimum
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Cmp(samples[j]) < 0 })
	median := samples[len(samples)/2]
	if median.Cmp(r.minimum) < 0 {
		return r.minimum
	}
	return median
}

// TrendedFloat reports Trended as a float64, the form pkg/metrics'
// gauge sampler needs since Prometheus gauges are float-valued.
func (r *Register) TrendedFloat() float64 {
	f := new(big.Float).SetInt(r.Trended().Big())
	out, _ := f.Float64()
	return out
}

func (r *Register) loadSamples() ([]blocks.Balance, error) {
	var samples []blocks.Balance
	err := r.db.View(func(txn store.ReadTxn) error {
		it, err := txn.Iterator(store.TableOnlineWeight, nil, nil)
		if err != nil {
			return fmt.Errorf("onlinereps: iterate samples: %w", err)
		}
		defer it.Close()
		for ; it.Valid(); it.Next() {
			var b blocks.Balance
			if err := json.Unmarshal(it.Value(), &b); err != nil {
				return fmt.Errorf("onlinereps: decode sample: %w", err)
			}
			samples = append(samples, b)
		}
		return it.Error()
	})
	return samples, err
}

// sample takes one online-weight measurement and persists it, trimming
// the table back down to sampleCount entries afterward.
func (r *Register) sample(now int64) error {
	weight := r.OnlineWeight(now)
	return r.db.Update(func(txn store.WriteTxn) error {
		raw, err := json.Marshal(weight)
		if err != nil {
			return fmt.Errorf("onlinereps: encode sample: %w", err)
		}
		if err := txn.Set(store.TableOnlineWeight, store.OnlineWeightSampleKey(now), raw); err != nil {
			return fmt.Errorf("onlinereps: put sample: %w", err)
		}
		return trimSamples(txn, r.sampleCount)
	})
}

// trimSamples keeps only the newest keep entries in the table (keys
// are big-endian unix seconds, so ascending key order is ascending
// time order).
func trimSamples(txn store.WriteTxn, keep int) error {
	it, err := txn.Iterator(store.TableOnlineWeight, nil, nil)
	if err != nil {
		return fmt.Errorf("onlinereps: iterate for trim: %w", err)
	}
	var keys [][]byte
	for ; it.Valid(); it.Next() {
		keys = append(keys, append([]byte{}, it.Key()...))
	}
	trimErr := it.Error()
	it.Close()
	if trimErr != nil {
		return trimErr
	}
	if len(keys) <= keep {
		return nil
	}
	for _, k := range keys[:len(keys)-keep] {
		if err := txn.Delete(store.TableOnlineWeight, k); err != nil {
			return fmt.Errorf("onlinereps: trim sample: %w", err)
		}
	}
	return nil
}

// Start launches the periodic sampling loop.
func (r *Register) Start(ctx context.Context) {
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.run(ctx)
}

// Stop halts the sampling loop.
func (r *Register) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *Register) run(ctx context.Context) {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.sampleEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			if err := r.sample(time.Now().Unix()); err != nil {
				r.logger.Printf("sample: %v", err)
			}
		}
	}
}
