package httpapi

import (
	"net/http"
	"strings"

	"medsys.org/internal/records"
	"medsys.org/internal/result"
)

func (a *API) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	if a.records == nil {
		unavailable(w, r, "records")
		return
	}
	var req records.NewRecord
	if !decodeOrReject(w, r, &req) {
		return
	}
	if b := req.Validate(); b != nil {
		badRequest(w, b)
		return
	}
	out, err := a.records.Create(r.Context(), callerID(r.Context()), req)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respond(w, r, out)
}

// handleGetRecord only shows a record to its patient or medical officer.
func (a *API) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	if a.records == nil {
		unavailable(w, r, "records")
		return
	}
	recordID := strings.TrimSpace(r.URL.Query().Get("recordId"))
	if recordID == "" {
		respond(w, r, result.BadRequestf[records.Record]("RecordId cannot be null or empty"))
		return
	}
	caller := callerID(r.Context())
	out, err := a.records.Get(r.Context(), recordID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondOwned(w, r, out, func(rec records.Record) bool { return rec.OwnedBy(caller) })
}
