package http

import (
	"context"
	"contribution-ledger/internal/model"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/multierr"
)

const (
	maxTransactionSize = 1 << 20

	defaultLeaderboardLimit = 10
)

// contributorView renders the tier by name.
type contributorView struct {
	model.Contributor
	Tier string `json:"tier"`
}

func viewOf(c model.Contributor) contributorView {
	return contributorView{Contributor: c, Tier: c.Tier.String()}
}

func viewsOf(contributors []model.Contributor) []contributorView {
	views := make([]contributorView, 0, len(contributors))
	for _, c := range contributors {
		views = append(views, viewOf(c))
	}
	return views
}

func (ser *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTransactionSize))
	if err != nil {
		ser.badRequest(w, "failed to read the transaction: "+err.Error())
		return
	}
	if len(body) == 0 {
		ser.badRequest(w, "empty transaction")
		return
	}

	ctx := r.Context()
	if ser.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ser.opts.RequestTimeout)
		defer cancel()
	}

	receipt, err := ser.app.Submit(ctx, body)
	if err != nil {
		ser.fail(w, err)
		return
	}
	ser.writeJSON(w, http.StatusOK, receipt)
}

func (ser *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := ser.app.Account(mux.Vars(r)["address"])
	if err != nil {
		ser.fail(w, err)
		return
	}
	ser.writeJSON(w, http.StatusOK, account)
}

func (ser *Server) getAllowance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	amount, err := ser.app.Allowance(vars["owner"], vars["spender"])
	if err != nil {
		ser.fail(w, err)
		return
	}
	ser.writeJSON(w, http.StatusOK, model.Allowance{Owner: vars["owner"], Spender: vars["spender"], Amount: amount})
}

func (ser *Server) getSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := ser.app.Supply()
	if err != nil {
		ser.fail(w, err)
		return
	}
	ser.writeJSON(w, http.StatusOK, supply)
}

type integrityResponse struct {
	Healthy    bool     `json:"healthy"`
	Violations []string `json:"violations,omitempty"`
}

func (ser *Server) getIntegrity(w http.ResponseWriter, r *http.Request) {
	err := ser.app.VerifyIntegrity()
	if err == nil {
		ser.writeJSON(w, http.StatusOK, integrityResponse{Healthy: true})
		return
	}

	res := integrityResponse{}
	for _, e := range multierr.Errors(err) {
		res.Violations = append(res.Violations, e.Error())
	}
	ser.logger.Error("integrity check failed: " + err.Error())
	ser.writeJSON(w, http.StatusInternalServerError, res)
}

func (ser *Server) getContributors(w http.ResponseWriter, r *http.Request) {
	contributors, err := ser.app.Contributors()
	if err != nil {
		ser.fail(w, err)
		return
	}
	ser.writeJSON(w, http.StatusOK, viewsOf(contributors))
}

func (ser *Server) getContributor(w http.ResponseWriter, r *http.Request) {
	c, err := ser.app.Contributor(mux.Vars(r)["address"])
	if err != nil {
		ser.fail(w, err)
		return
	}
	ser.writeJSON(w, http.StatusOK, viewOf(c))
}

type leaderboardResponse struct {
	Entries     []contributorView `json:"entries"`
	Count       int               `json:"count"`
	MeanScore   float64           `json:"meanScore"`
	MedianScore float64           `json:"medianScore"`
}

func (ser *Server) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := ser.intParam(w, r, "limit", defaultLeaderboardLimit)
	if !ok {
		return
	}

	board, err := ser.app.Leaderboard(limit)
	if err != nil {
		ser.fail(w, err)
		return
	}
	ser.writeJSON(w, http.StatusOK, leaderboardResponse{
		Entries:     viewsOf(board.Entries),
		Count:       board.Count,
		MeanScore:   board.MeanScore,
		MedianScore: board.MedianScore,
	})
}

func (ser *Server) getProposal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		ser.badRequest(w, "invalid proposal id")
		return
	}

	proposal, err := ser.app.Proposal(id)
	if err != nil {
		ser.fail(w, err)
		return
	}
	ser.writeJSON(w, http.StatusOK, proposal)
}

func (ser *Server) getRewardsPreview(w http.ResponseWriter, r *http.Request) {
	winners, err := ser.app.RewardsPreview()
	if err != nil {
		ser.fail(w, err)
		return
	}
	ser.writeJSON(w, http.StatusOK, winners)
}

func (ser *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	limit, ok := ser.intParam(w, r, "limit", 0)
	if !ok {
		return
	}

	evs, err := ser.app.Events(r.Context(), r.URL.Query().Get("type"), int64(limit))
	if err != nil {
		ser.fail(w, err)
		return
	}
	ser.writeJSON(w, http.StatusOK, evs)
}

// intParam reads a non-negative query parameter, answering 400 when it is malformed.
func (ser *Server) intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		ser.badRequest(w, "invalid "+name+" parameter")
		return 0, false
	}
	return v, true
}
