package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/forefold/leadsflow/internal/services"
)

func TestRespondWithErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{services.NewNotFound("lead not found"), http.StatusNotFound},
		{services.NewForbidden("no permission"), http.StatusForbidden},
		{services.NewBadRequest("bad input"), http.StatusBadRequest},
		{services.NewConflict("already exists"), http.StatusConflict},
		{services.NewUnauthorized("invalid token"), http.StatusUnauthorized},
		{services.NewRateLimited("slow down"), http.StatusTooManyRequests},
		{errors.New("mongo blew up"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondWithError(rr, tc.err)
		if rr.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, rr.Code, tc.status)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("%v: content-type = %q", tc.err, ct)
		}
	}
}

func TestRespondWithErrorHidesInternalDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithError(rr, services.WrapInternal(errors.New("dial tcp: connection refused"), "failed to list leads"))

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "internal server error" {
		t.Fatalf("error = %q, internals must not leak", body["error"])
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/leads", http.NoBody)
	rr := httptest.NewRecorder()

	var dest struct{ Name string }
	if decodeJSON(rr, req, &dest) {
		t.Fatal("empty body should not decode")
	}
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}
