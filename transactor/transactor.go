// Package transactor submits call batches through a signer and tracks the
// resulting transaction until it is confirmed or fails, reporting progress
// through a notification channel.
//
// A Transactor owns at most one submission at a time. Submit returns
// ErrSubmissionInFlight while an earlier submission is still awaiting its
// signature or its receipt; callers that want several transactions in flight
// use several transactors.
package transactor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/tos-network/starkcounter"
	"github.com/tos-network/starkcounter/accounts"
	"github.com/tos-network/starkcounter/notify"
	"github.com/tos-network/starkcounter/params"
)

// Status is the lifecycle state of the current submission.
type Status int

const (
	Idle Status = iota
	AwaitingSignature
	Submitted
	Confirming
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingSignature:
		return "awaiting-signature"
	case Submitted:
		return "submitted"
	case Confirming:
		return "confirming"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "invalid"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(input []byte) error {
	for st := Idle; st <= Failed; st++ {
		if st.String() == string(input) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("invalid status %q", input)
}

// InFlight reports whether a submission in this state still owns the transactor.
func (s Status) InFlight() bool {
	return s == AwaitingSignature || s == Submitted || s == Confirming
}

// Notification texts.
const (
	msgAwaitingSignature = "Awaiting for user confirmation"
	msgWaitingReceipt    = "Waiting for transaction to complete."
	msgSucceeded         = "Transaction completed successfully!"
	successIcon          = "🎉"
)

var (
	submitMeter    = metrics.NewRegisteredMeter("transactor/submit", nil)
	rejectMeter    = metrics.NewRegisteredMeter("transactor/submit/busy", nil)
	fallbackMeter  = metrics.NewRegisteredMeter("transactor/submit/fallback", nil)
	succeededMeter = metrics.NewRegisteredMeter("transactor/succeeded", nil)
	failedMeter    = metrics.NewRegisteredMeter("transactor/failed", nil)
	confirmTimer   = metrics.NewRegisteredTimer("transactor/confirm", nil)
)

// Config tunes a Transactor.
type Config struct {
	// Network is used to build block explorer links.
	Network *params.Network

	// ExecuteOptions are used by the first Execute fallback.
	ExecuteOptions *starkcounter.ExecuteOptions

	// Logger receives the lifecycle log. Defaults to the root logger.
	Logger log.Logger
}

// DefaultExecuteOptions returns the fee and version used when the signer's
// batch path fails.
func DefaultExecuteOptions() *starkcounter.ExecuteOptions {
	return &starkcounter.ExecuteOptions{
		Version: params.DefaultTxVersion,
		MaxFee:  starkcounter.MustParseFelt(params.DefaultMaxFee),
	}
}

// SubmitOptions modify a single submission.
type SubmitOptions struct {
	// DirectExecute skips the signer's batch path and starts with Execute.
	DirectExecute bool
}

// State is a snapshot of the transactor, also delivered to status subscribers.
type State struct {
	Status   Status             `json:"status"`
	Hash     *starkcounter.Felt `json:"hash,omitempty"`
	Link     string             `json:"link,omitempty"`
	Category *Category          `json:"category,omitempty"`
	Message  string             `json:"message,omitempty"`
}

// Transactor submits transactions and tracks their receipts.
type Transactor struct {
	notifier notify.Notifier
	observer Observer
	network  *params.Network
	execOpts *starkcounter.ExecuteOptions
	log      log.Logger

	ctx    context.Context // cancelled by Close
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	status  Status
	hash    *starkcounter.Felt
	link    string
	ticket  notify.TicketID
	failure *Error
	done    chan struct{} // closed when the current submission is terminal
	result  error
	closed  bool

	feed event.Feed
}

// New creates a transactor reporting to notifier and observing receipts with
// observer.
func New(notifier notify.Notifier, observer Observer, cfg Config) *Transactor {
	if notifier == nil {
		notifier = notify.Discard
	}
	if cfg.Network == nil {
		cfg.Network = params.DefaultNetwork
	}
	if cfg.ExecuteOptions == nil {
		cfg.ExecuteOptions = DefaultExecuteOptions()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Root()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Transactor{
		notifier: notifier,
		observer: observer,
		network:  cfg.Network,
		execOpts: cfg.ExecuteOptions,
		log:      cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SubscribeStatus delivers a State every time the status changes. Sends block
// until every subscriber has received, so subscribers must keep reading.
func (t *Transactor) SubscribeStatus(ch chan<- State) event.Subscription {
	return t.feed.Subscribe(ch)
}

// State returns a snapshot of the current submission.
func (t *Transactor) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

// Status returns the current lifecycle state.
func (t *Transactor) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Hash returns the hash of the transaction being observed, or nil.
func (t *Transactor) Hash() *starkcounter.Felt {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hash
}

func (t *Transactor) stateLocked() State {
	s := State{Status: t.status, Hash: t.hash, Link: t.link}
	if t.status == Failed && t.failure != nil {
		cat := t.failure.Category
		s.Category = &cat
		s.Message = t.failure.Message()
	}
	return s
}

// Submit signs and sends calls through signer. It returns once the network
// has accepted the transaction; receipt observation continues in the
// background and its outcome is reported by Wait. If the transactor is closed
// while the signer is busy, the hash of a transaction that was still sent is
// returned together with ErrClosed.
func (t *Transactor) Submit(ctx context.Context, calls []starkcounter.Call, signer accounts.Signer, opts *SubmitOptions) (*starkcounter.Felt, error) {
	if len(calls) == 0 {
		return nil, ErrEmptyBatch
	}
	if signer == nil {
		err := &Error{Category: NoSigner}
		t.log.Error("Transaction submission failed", "category", err.Category)
		failedMeter.Mark(1)
		t.notifier.Error(err.Message())
		return nil, err
	}
	if opts == nil {
		opts = new(SubmitOptions)
	}

	t.mu.Lock()
	switch {
	case t.closed:
		t.mu.Unlock()
		return nil, ErrClosed
	case t.status.InFlight():
		status, hash := t.status, t.hash
		t.mu.Unlock()
		rejectMeter.Mark(1)
		t.log.Debug("Rejected concurrent submission", "status", status, "hash", hash)
		return nil, ErrSubmissionInFlight
	}
	if t.ticket != "" {
		t.notifier.Remove(t.ticket)
		t.ticket = ""
	}
	t.hash, t.link, t.failure, t.result = nil, "", nil, nil
	done := make(chan struct{})
	t.done = done
	// Owned by this call until a terminal status.
	t.status = AwaitingSignature
	t.mu.Unlock()
	submitMeter.Mark(1)

	chainID, err := signer.ChainID(ctx)
	if err != nil {
		t.log.Warn("Failed to query signer chain id", "signer", signer.URL(), "err", err)
	}

	t.mu.Lock()
	if t.closed {
		t.releaseLocked(done)
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.ticket = t.notifier.Loading(notify.Content{Message: msgAwaitingSignature})
	state := t.stateLocked()
	t.mu.Unlock()
	t.publish(state)
	t.log.Debug("Awaiting signature", "signer", signer.URL(), "calls", len(calls))

	hash, err := t.send(ctx, calls, signer, opts)
	if err != nil {
		e := classify(err, SubmissionFailed)
		t.fail(e)
		return nil, e
	}

	t.mu.Lock()
	if t.closed {
		// The transaction is out but nothing observes it any more.
		t.releaseLocked(done)
		state = t.stateLocked()
		t.mu.Unlock()
		t.publish(state)
		t.log.Warn("Transactor closed during submission", "hash", hash)
		return hash, ErrClosed
	}
	if t.ticket != "" {
		t.notifier.Remove(t.ticket)
	}
	t.hash = hash
	if chainID != nil {
		t.link = params.BlockExplorerTxLink(t.network, hash)
	}
	t.status = Submitted
	t.ticket = t.notifier.Loading(notify.Content{Message: msgWaitingReceipt, Link: t.link})
	state = t.stateLocked()
	obsCtx, cancel := context.WithCancel(t.ctx)
	t.wg.Add(1)
	t.mu.Unlock()
	t.publish(state)
	t.log.Info("Transaction submitted", "hash", hash, "link", state.Link)

	go t.observe(obsCtx, cancel, hash, done, time.Now())
	return hash, nil
}

// send runs the fallback chain: the signer's batch path, Execute with the
// configured fee options, then Execute with the account's own defaults. A
// rejection by the user ends the chain.
func (t *Transactor) send(ctx context.Context, calls []starkcounter.Call, signer accounts.Signer, opts *SubmitOptions) (*starkcounter.Felt, error) {
	type attempt struct {
		name string
		run  func() (*starkcounter.InvokeResult, error)
	}
	var attempts []attempt
	if !opts.DirectExecute {
		attempts = append(attempts, attempt{"send-batch", func() (*starkcounter.InvokeResult, error) {
			return signer.SendBatch(ctx, calls)
		}})
	}
	attempts = append(attempts,
		attempt{"execute", func() (*starkcounter.InvokeResult, error) {
			return signer.Execute(ctx, calls, t.execOpts)
		}},
		attempt{"execute-default", func() (*starkcounter.InvokeResult, error) {
			return signer.Execute(ctx, calls, nil)
		}},
	)

	var err error
	for i, a := range attempts {
		if i > 0 {
			fallbackMeter.Mark(1)
			t.log.Warn("Submission path failed, falling back", "failed", attempts[i-1].name, "next", a.name, "err", err)
		}
		var res *starkcounter.InvokeResult
		res, err = a.run()
		if err == nil {
			if res == nil || res.TransactionHash == nil {
				err = errors.New("signer returned no transaction hash")
				continue
			}
			return res.TransactionHash, nil
		}
		if CategoryOf(classify(err, SubmissionFailed)) == SignerRejected {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, err
}

func (t *Transactor) observe(ctx context.Context, cancel context.CancelFunc, hash *starkcounter.Felt, done chan struct{}, start time.Time) {
	defer t.wg.Done()
	defer cancel()

	updates := t.observer.Observe(ctx, hash)
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				t.abandon(done)
				return
			}
			if !u.Terminal() {
				t.confirming()
				continue
			}
			confirmTimer.UpdateSince(start)
			switch u.Status {
			case ReceiptSucceeded:
				t.succeed(done)
			case ReceiptError:
				t.fail(classify(u.Err, Unknown))
			default:
				t.fail(classifyText(u.Reason, ExecutionFailed, &revertError{hash: hash, reason: u.Reason}))
			}
			return
		case <-ctx.Done():
			t.abandon(done)
			return
		}
	}
}

type revertError struct {
	hash   *starkcounter.Felt
	reason string
}

func (e *revertError) Error() string {
	if e.reason == "" {
		return "transaction " + e.hash.Hex() + " failed"
	}
	return "transaction " + e.hash.Hex() + " failed: " + e.reason
}

func (t *Transactor) confirming() {
	t.mu.Lock()
	if t.status != Submitted {
		t.mu.Unlock()
		return
	}
	t.status = Confirming
	state := t.stateLocked()
	t.mu.Unlock()
	t.publish(state)
	t.log.Debug("Transaction confirming", "hash", state.Hash)
}

func (t *Transactor) succeed(done chan struct{}) {
	t.mu.Lock()
	if t.ticket != "" {
		t.notifier.Remove(t.ticket)
		t.ticket = ""
	}
	link, hash := t.link, t.hash
	t.notifier.Success(notify.Content{Message: msgSucceeded, Link: link}, notify.Options{Icon: successIcon})
	t.status = Succeeded
	t.hash, t.link = nil, ""
	t.result = nil
	state := t.stateLocked()
	state.Hash, state.Link = hash, link
	close(done)
	if t.done == done {
		t.done = nil
	}
	t.mu.Unlock()

	succeededMeter.Mark(1)
	t.publish(state)
	t.log.Info("Transaction succeeded", "hash", hash)
}

func (t *Transactor) fail(e *Error) {
	t.mu.Lock()
	if t.ticket != "" {
		t.notifier.Remove(t.ticket)
		t.ticket = ""
	}
	t.notifier.Error(e.Message())
	hash := t.hash
	t.status = Failed
	t.failure = e
	t.result = e
	state := t.stateLocked()
	t.hash, t.link = nil, ""
	if t.done != nil {
		close(t.done)
		t.done = nil
	}
	t.mu.Unlock()

	failedMeter.Mark(1)
	t.publish(state)
	t.log.Error("Transaction failed", "hash", hash, "category", e.Category, "message", e.Message(), "err", e.Err)
}

// abandon releases the submission after observation stopped without a
// terminal status.
func (t *Transactor) abandon(done chan struct{}) {
	t.mu.Lock()
	hash := t.hash
	t.releaseLocked(done)
	state := t.stateLocked()
	t.mu.Unlock()

	t.publish(state)
	t.log.Debug("Stopped observing transaction", "hash", hash)
}

// releaseLocked returns the transactor to Idle without a toast and makes Wait
// report ErrClosed for the submission owning done.
func (t *Transactor) releaseLocked(done chan struct{}) {
	if t.ticket != "" {
		t.notifier.Remove(t.ticket)
		t.ticket = ""
	}
	t.status = Idle
	t.hash, t.link = nil, ""
	t.result = ErrClosed
	if t.done == done {
		close(done)
		t.done = nil
	}
}

func (t *Transactor) publish(s State) {
	t.feed.Send(s)
}

// Wait blocks until the current submission reaches a terminal status and
// returns its receipt-stage error, if any. Only submissions that got past the
// signer check are tracked: a NoSigner or empty batch failure leaves the
// previous submission's result in place.
func (t *Transactor) Wait(ctx context.Context) error {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Close stops receipt observation and releases any open notification. The
// transactor cannot be used afterwards.
func (t *Transactor) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()

	t.mu.Lock()
	if t.ticket != "" {
		t.notifier.Remove(t.ticket)
		t.ticket = ""
	}
	t.mu.Unlock()
}
