package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"github.com/julienschmidt/httprouter"
	"github.com/tos-network/starkcounter"
	"github.com/tos-network/starkcounter/contractvalue"
	"github.com/tos-network/starkcounter/counter"
	"github.com/tos-network/starkcounter/params"
	"github.com/tos-network/starkcounter/token"
	"github.com/tos-network/starkcounter/transactor"
	"golang.org/x/sync/errgroup"
)

const maxEvents = 100

// CounterInfo is the response of GET /api/counter.
type CounterInfo struct {
	Network      string              `json:"network"`
	Contract     *starkcounter.Felt  `json:"contract"`
	ContractLink string              `json:"contract_link,omitempty"`
	Value        string              `json:"value"`
	Raw          contractvalue.Value `json:"raw"`
	Owner        *starkcounter.Felt  `json:"owner,omitempty"`
	Account      *starkcounter.Felt  `json:"account,omitempty"`
	IsOwner      bool                `json:"is_owner"`
	CanDecrease  bool                `json:"can_decrease"`
	ResetFee     string              `json:"reset_fee,omitempty"`
}

// SubmitResponse is the response of a successful POST /api/counter/:action.
type SubmitResponse struct {
	Hash *starkcounter.Felt `json:"hash"`
	Link string             `json:"link,omitempty"`
}

type errorResponse struct {
	Error    string               `json:"error"`
	Category *transactor.Category `json:"category,omitempty"`
}

type setRequest struct {
	Value json.RawMessage `json:"value"`
}

// input accepts the value as a JSON string or a bare JSON number.
func (r setRequest) input() string {
	var s string
	if err := json.Unmarshal(r.Value, &s); err == nil {
		return s
	}
	return string(r.Value)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("Failed to write API response", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}

	var txErr *transactor.Error
	switch {
	case errors.Is(err, transactor.ErrSubmissionInFlight):
		code = http.StatusConflict
	case errors.Is(err, transactor.ErrEmptyBatch), counter.IsGuardError(err):
		code = http.StatusBadRequest
	case errors.Is(err, transactor.ErrClosed):
		code = http.StatusServiceUnavailable
	case errors.As(err, &txErr):
		cat := txErr.Category
		resp.Error, resp.Category = txErr.Message(), &cat
		switch cat {
		case transactor.NoSigner, transactor.SignerRejected:
			code = http.StatusForbidden
		default:
			code = http.StatusBadGateway
		}
	}
	if code >= http.StatusInternalServerError {
		log.Warn("API request failed", "code", code, "err", err)
	}
	writeJSON(w, code, resp)
}

func (s *Server) getCounter(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	a := s.backend.Actions
	info := CounterInfo{
		Network:      s.backend.Network.Name,
		Contract:     a.Contract.Address,
		ContractLink: params.BlockExplorerAddressLink(s.backend.Network, a.Contract.Address),
	}
	if a.Signer != nil {
		info.Account = a.Signer.Address()
	}
	if a.ResetFee != nil && a.Pay != nil {
		info.ResetFee = token.FormatUnits(a.ResetFee, a.Pay.Decimals) + " " + a.Pay.Symbol
	}

	var (
		value contractvalue.Value
		owner *starkcounter.Felt
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		value, err = a.Contract.Value(ctx)
		return err
	})
	g.Go(func() error {
		o, err := a.Contract.Owner(ctx)
		if err != nil {
			log.Debug("Failed to read counter owner", "err", err)
			return nil
		}
		owner = o
		return nil
	})
	if err := g.Wait(); err != nil {
		writeError(w, err)
		return
	}
	info.Raw = value
	info.Value = contractvalue.ToDisplayString(value, "")
	info.Owner = owner
	info.IsOwner = counter.IsOwner(contractvalue.Felt(info.Account), contractvalue.Felt(owner))
	info.CanDecrease = counter.CanDecrease(value)
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) postAction(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var (
		a    = s.backend.Actions
		ctx  = r.Context()
		hash *starkcounter.Felt
		err  error
	)
	switch ps.ByName("action") {
	case "increase":
		hash, err = a.Increase(ctx)
	case "decrease":
		hash, err = a.Decrease(ctx)
	case "reset":
		hash, err = a.Reset(ctx)
	case "set":
		var req setRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
		hash, err = a.Set(ctx, req.input())
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown action " + strconv.Quote(ps.ByName("action"))})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SubmitResponse{Hash: hash, Link: s.tx.State().Link})
}

func (s *Server) getEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit := params.DefaultFeedLength
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxEvents)
	}
	events := []*counter.CounterChanged{}
	if s.backend.Feed != nil {
		events = append(events, s.backend.Feed.Recent(limit)...)
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) getTx(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.tx.State())
}

func (s *Server) getNotifications(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.backend.Notifications == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "notifications are not recorded"})
		return
	}
	writeJSON(w, http.StatusOK, s.backend.Notifications.Records())
}
