package transactor

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/tos-network/starkcounter/accounts"
)

var (
	// ErrSubmissionInFlight is returned by Submit while another submission of
	// the same transactor has not reached a terminal status.
	ErrSubmissionInFlight = errors.New("transactor: submission already in flight")

	// ErrEmptyBatch is returned when Submit is called without calls.
	ErrEmptyBatch = errors.New("transactor: empty call batch")

	// ErrClosed is returned once the transactor has been closed.
	ErrClosed = errors.New("transactor: closed")
)

// Category classifies why a submission failed.
type Category int

const (
	Unknown Category = iota
	NoSigner
	SignerRejected
	SubmissionFailed
	ContractRejected
	ExecutionFailed
	InsufficientBalance
	InsufficientAllowance
)

var categoryNames = [...]string{
	Unknown:               "unknown",
	NoSigner:              "no-signer",
	SignerRejected:        "signer-rejected",
	SubmissionFailed:      "submission-failed",
	ContractRejected:      "contract-rejected",
	ExecutionFailed:       "execution-failed",
	InsufficientBalance:   "insufficient-balance",
	InsufficientAllowance: "insufficient-allowance",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(input []byte) error {
	for i, name := range categoryNames {
		if name == string(input) {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("invalid category %q", input)
}

// User-facing messages.
const (
	msgNoSigner              = "Cannot access account"
	msgSignerRejected        = "Transaction rejected in wallet"
	msgExecutionFailed       = "Transaction execution failed"
	msgInsufficientBalance   = "Insufficient balance for transaction"
	msgInsufficientAllowance = "Insufficient allowance for transfer"
	msgFallback              = "Transaction failed"
)

// Error is a categorized submission failure.
type Error struct {
	Category Category
	Reason   string // revert reason or raw provider text, if any
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transactor: %v: %s", e.Category, e.Message())
	}
	return fmt.Sprintf("transactor: %v: %v", e.Category, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the text shown to the user, preferring the most specific
// message for the category and falling back to the raw reason.
func (e *Error) Message() string {
	switch e.Category {
	case NoSigner:
		return msgNoSigner
	case SignerRejected:
		return msgSignerRejected
	case ExecutionFailed:
		if e.Reason != "" {
			return msgExecutionFailed + ": " + e.Reason
		}
		return msgExecutionFailed
	case InsufficientBalance:
		return msgInsufficientBalance
	case InsufficientAllowance:
		return msgInsufficientAllowance
	}
	if e.Reason != "" {
		return e.Reason
	}
	return msgFallback
}

// CategoryOf returns the category of a transactor error, or Unknown.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return Unknown
}

var (
	contractErrorRe = regexp.MustCompile(`ContractError\((.*?)\)`)
	failureReasonRe = regexp.MustCompile(`Failure reason: (?:0x[0-9a-fA-F]+ )?\('([^']*)'\)`)
	rejectionHints  = []string{"user rejected", "user refused", "user abort", "user_refused_op"}
)

// classify turns an arbitrary failure into a categorized Error. Text that
// matches no known pattern gets the fallback category and keeps its raw text
// as the reason.
func classify(err error, fallback Category) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, accounts.ErrUserRejected) {
		return &Error{Category: SignerRejected, Err: err}
	}
	msg := flatten(err)
	return classifyText(msg, fallback, err)
}

func classifyText(msg string, fallback Category, err error) *Error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "ContractError"):
		if m := contractErrorRe.FindStringSubmatch(msg); m != nil {
			return &Error{Category: ContractRejected, Reason: m[1], Err: err}
		}
		return &Error{Category: ContractRejected, Reason: msg, Err: err}
	case failureReasonRe.MatchString(msg):
		m := failureReasonRe.FindStringSubmatch(msg)
		return &Error{Category: ContractRejected, Reason: m[1], Err: err}
	case strings.Contains(lower, "execution_status"):
		return &Error{Category: ExecutionFailed, Err: err}
	case strings.Contains(lower, "allowance"):
		return &Error{Category: InsufficientAllowance, Reason: msg, Err: err}
	case strings.Contains(lower, "insufficient"):
		return &Error{Category: InsufficientBalance, Reason: msg, Err: err}
	}
	for _, hint := range rejectionHints {
		if strings.Contains(lower, hint) {
			return &Error{Category: SignerRejected, Reason: msg, Err: err}
		}
	}
	return &Error{Category: fallback, Reason: msg, Err: err}
}

// flatten renders an error together with any data attached by the RPC layer,
// which is where providers put revert traces.
func flatten(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		switch data := dataErr.ErrorData().(type) {
		case nil:
		case string:
			msg += ": " + data
		default:
			if enc, jerr := json.Marshal(data); jerr == nil {
				msg += ": " + string(enc)
			}
		}
	}
	return msg
}
