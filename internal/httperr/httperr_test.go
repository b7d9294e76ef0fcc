package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/uvgride/grouprides/internal/domain"
	"github.com/uvgride/grouprides/pkg/response"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrCapacityExceeded, http.StatusBadRequest},
		{domain.ErrGroupNotOpen, http.StatusBadRequest},
		{domain.ErrSelfJoin, http.StatusBadRequest},
		{domain.ErrAlreadyInActiveGroup, http.StatusBadRequest},
		{domain.ErrAlreadyMember, http.StatusConflict},
		{domain.ErrTripAlreadyGrouped, http.StatusConflict},
		{domain.ErrNotAMember, http.StatusNotFound},
		{domain.ErrDriverCannotLeave, http.StatusBadRequest},
		{domain.Rejection(domain.ErrInvalidTransition, "nope"), http.StatusBadRequest},
		{domain.ErrNotAuthorized, http.StatusForbidden},
		{domain.ErrGroupNotFound, http.StatusNotFound},
		{domain.ErrInvalidScore, http.StatusBadRequest},
		{domain.ErrNotEligible, http.StatusBadRequest},
		{fmt.Errorf("%w: lock wait", domain.ErrBusy), http.StatusServiceUnavailable},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWrite(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, zap.NewNop(), domain.ErrCapacityExceeded)

	var body response.APIResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error == nil || body.Error.Code != "CAPACITY_EXCEEDED" {
		t.Fatalf("error = %+v", body.Error)
	}

	w = httptest.NewRecorder()
	Write(w, zap.NewNop(), errors.New("pq: password authentication failed"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d", w.Code)
	}
	if got := w.Body.String(); strings.Contains(got, "password") {
		t.Errorf("internal detail leaked: %s", got)
	}

	w = httptest.NewRecorder()
	Write(w, zap.NewNop(), domain.ErrBusy)
	if w.Code != http.StatusServiceUnavailable || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("code = %d retry-after = %q", w.Code, w.Header().Get("Retry-After"))
	}
}
