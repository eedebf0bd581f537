package handlers

import (
	"net/http"

	"github.com/agentstation/hubmap/internal/server/response"
	"github.com/agentstation/hubmap/pkg/query"
)

// StateResult pairs a query with its canonical encoding.
type StateResult struct {
	Params query.Params `json:"params"`
	State  string       `json:"state"`
}

// HandleStateEncode handles GET /api/v1/state/encode. The query keys are
// normalized and re-encoded with defaults omitted and keys sorted.
func (h *Handlers) HandleStateEncode(w http.ResponseWriter, r *http.Request) {
	params := paramsFromRequest(r)
	response.OK(w, StateResult{Params: params, State: query.Encode(params)})
}

// HandleStateDecode handles GET /api/v1/state/decode?location=. The location
// may be an encoded state string or a full "path?query#fragment", in which
// case fragment keys override query keys.
func (h *Handlers) HandleStateDecode(w http.ResponseWriter, r *http.Request) {
	params := query.DecodeLocation(r.URL.Query().Get("location"))
	response.OK(w, StateResult{Params: params, State: query.Encode(params)})
}
