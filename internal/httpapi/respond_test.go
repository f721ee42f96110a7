package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"medsys.org/internal/result"
)

func TestRespondMapsEveryKind(t *testing.T) {
	cases := []struct {
		outcome result.Outcome[string]
		status  int
		body    string
	}{
		{result.Succeeded("done"), http.StatusOK, `{"data":"done","errors":[]}`},
		{result.BadRequestf[string]("bad"), http.StatusBadRequest, `{"data":null,"errors":[{"key":"BadRequest","errorMessages":["bad"]}]}`},
		{result.NotFoundf[string]("gone"), http.StatusNotFound, `{"data":null,"errors":[{"key":"NotFound","errorMessages":["gone"]}]}`},
		{result.Failedf[string]("nope"), http.StatusUnprocessableEntity, `{"data":null,"errors":[{"key":"Failed","errorMessages":["nope"]}]}`},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		respond(rr, httptest.NewRequest(http.MethodGet, "/x", nil), tc.outcome)
		assert.Equal(t, tc.status, rr.Code)
		assert.JSONEq(t, tc.body, rr.Body.String())
		assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	}
}

func TestRespondOwnedOverlay(t *testing.T) {
	owned := func(s string) bool { return s == "mine" }

	rr := httptest.NewRecorder()
	respondOwned(rr, httptest.NewRequest(http.MethodGet, "/x", nil), result.Succeeded("theirs"), owned)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"data":null,"errors":[{"key":"Unauthorized","errorMessages":["You cannot perform this action"]}]}`, rr.Body.String())

	rr = httptest.NewRecorder()
	respondOwned(rr, httptest.NewRequest(http.MethodGet, "/x", nil), result.Succeeded("mine"), owned)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	respondOwned(rr, httptest.NewRequest(http.MethodGet, "/x", nil), result.NotFoundf[string]("gone"), owned)
	assert.Equal(t, http.StatusNotFound, rr.Code, "ownership only applies to successes")
}

func TestRespondUnmodeledKindFallsBackTo422(t *testing.T) {
	rr := httptest.NewRecorder()
	respond(rr, httptest.NewRequest(http.MethodGet, "/x", nil), result.Outcome[string]{Message: "odd"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
