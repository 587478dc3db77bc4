package transactor

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/tos-network/starkcounter"
	"github.com/tos-network/starkcounter/params"
	"github.com/tos-network/starkcounter/starkclient"
)

// ReceiptStatus is the state of a transaction as seen by an observer.
type ReceiptStatus int

const (
	ReceiptPending ReceiptStatus = iota
	ReceiptSucceeded
	ReceiptReverted
	ReceiptRejected
	ReceiptError
)

func (s ReceiptStatus) String() string {
	switch s {
	case ReceiptPending:
		return "pending"
	case ReceiptSucceeded:
		return "succeeded"
	case ReceiptReverted:
		return "reverted"
	case ReceiptRejected:
		return "rejected"
	case ReceiptError:
		return "error"
	}
	return "invalid"
}

// ReceiptUpdate is one observation of a transaction.
type ReceiptUpdate struct {
	Hash    *starkcounter.Felt
	Status  ReceiptStatus
	Receipt *starkclient.Receipt // nil until the node returns one
	Reason  string               // revert or rejection reason
	Err     error                // set when Status is ReceiptError
}

// Terminal reports whether no further updates follow.
func (u ReceiptUpdate) Terminal() bool {
	return u.Status != ReceiptPending
}

// Observer produces the status updates of a transaction. The returned channel
// is closed after a terminal update or when ctx is cancelled. Calling Observe
// again for the same hash starts a fresh observation.
type Observer interface {
	Observe(ctx context.Context, hash *starkcounter.Felt) <-chan ReceiptUpdate
}

// ReceiptFetcher retrieves transaction receipts. It is implemented by
// *starkclient.Client.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, hash *starkcounter.Felt) (*starkclient.Receipt, error)
}

// PollingObserver observes transactions by polling for their receipt.
type PollingObserver struct {
	fetcher   ReceiptFetcher
	interval  time.Duration
	maxErrors int
	log       log.Logger
}

// NewPollingObserver creates an observer polling at the given interval. A
// non-positive interval selects params.DefaultPollingInterval.
func NewPollingObserver(fetcher ReceiptFetcher, interval time.Duration) *PollingObserver {
	if interval <= 0 {
		interval = params.DefaultPollingInterval
	}
	return &PollingObserver{fetcher: fetcher, interval: interval, log: log.Root()}
}

// SetMaxErrors makes the observer give up after n consecutive fetch errors.
// Zero, the default, retries until cancelled.
func (o *PollingObserver) SetMaxErrors(n int) { o.maxErrors = n }

func (o *PollingObserver) Observe(ctx context.Context, hash *starkcounter.Felt) <-chan ReceiptUpdate {
	ch := make(chan ReceiptUpdate, 1)
	go func() {
		defer close(ch)

		timer := time.NewTimer(0)
		defer timer.Stop()

		var failures int
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			update, ok := o.poll(ctx, hash, &failures)
			if ok {
				select {
				case ch <- update:
				case <-ctx.Done():
					return
				}
				if update.Terminal() {
					return
				}
			}
			timer.Reset(o.interval)
		}
	}()
	return ch
}

func (o *PollingObserver) poll(ctx context.Context, hash *starkcounter.Felt, failures *int) (ReceiptUpdate, bool) {
	receipt, err := o.fetcher.TransactionReceipt(ctx, hash)
	switch {
	case errors.Is(err, starkcounter.NotFound):
		*failures = 0
		return ReceiptUpdate{Hash: hash, Status: ReceiptPending}, true
	case err != nil:
		if ctx.Err() != nil {
			return ReceiptUpdate{}, false
		}
		*failures++
		o.log.Warn("Failed to fetch transaction receipt", "hash", hash, "attempt", *failures, "err", err)
		if o.maxErrors > 0 && *failures >= o.maxErrors {
			return ReceiptUpdate{Hash: hash, Status: ReceiptError, Err: err}, true
		}
		return ReceiptUpdate{}, false
	}
	*failures = 0
	return receiptUpdate(hash, receipt), true
}

func receiptUpdate(hash *starkcounter.Felt, r *starkclient.Receipt) ReceiptUpdate {
	u := ReceiptUpdate{Hash: hash, Receipt: r, Status: ReceiptPending}
	switch {
	case r.ExecutionStatus == starkclient.ExecutionReverted:
		u.Status, u.Reason = ReceiptReverted, r.RevertReason
	case r.FinalityStatus == starkclient.FinalityRejected:
		u.Status, u.Reason = ReceiptRejected, r.RevertReason
	case r.Succeeded() && (r.FinalityStatus == starkclient.FinalityAcceptedOnL2 || r.FinalityStatus == starkclient.FinalityAcceptedOnL1):
		u.Status = ReceiptSucceeded
	}
	return u
}
