package rating

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newRatingRouter(t *testing.T) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t)
	h := NewHandler(NewService(f.store, NewAggregator(f.store, false), nil, nil, zap.NewNop()), zap.NewNop())

	r := chi.NewRouter()
	r.Route("/groups", func(r chi.Router) {
		h.RegisterGroupRoutes(r)
	})
	r.Mount("/drivers", h.Routes())
	return r, f
}

func call(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid body %q", w.Body.String())
	}
	return w, out
}

func errorCode(out map[string]any) string {
	e, _ := out["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestRatingEndpoints(t *testing.T) {
	h, f := newRatingRouter(t)
	base := "/groups/" + strconv.FormatInt(f.group.ID, 10)

	w, out := call(t, h, http.MethodGet, "/drivers/1/rating-summary", "")
	if w.Code != http.StatusOK {
		t.Fatalf("summary status = %d", w.Code)
	}
	data := out["data"].(map[string]any)
	if data["count"].(float64) != 0 || data["average"] != nil {
		t.Fatalf("empty summary = %v", data)
	}

	w, out = call(t, h, http.MethodPost, base+"/ratings", `{"passenger_id":2,"score":4,"comment":"smooth"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("rate status = %d body = %v", w.Code, out)
	}
	if out["data"].(map[string]any)["created"] != true {
		t.Errorf("created flag = %v", out["data"])
	}

	w, out = call(t, h, http.MethodPost, base+"/ratings", `{"passenger_id":2,"score":2}`)
	if w.Code != http.StatusCreated || out["data"].(map[string]any)["created"] != false {
		t.Fatalf("resubmit = %d %v", w.Code, out)
	}

	w, out = call(t, h, http.MethodGet, base+"/rating-summary", "")
	data = out["data"].(map[string]any)
	if w.Code != http.StatusOK || data["count"].(float64) != 1 || data["average"].(float64) != 2 {
		t.Fatalf("group summary = %d %v", w.Code, data)
	}

	call(t, h, http.MethodPost, base+"/ratings", `{"passenger_id":3,"score":5}`)
	w, out = call(t, h, http.MethodGet, "/drivers/1/ratings?limit=1&offset=1", "")
	meta := out["meta"].(map[string]any)
	if w.Code != http.StatusOK || meta["total"].(float64) != 2 || meta["limit"].(float64) != 1 || meta["offset"].(float64) != 1 {
		t.Fatalf("list = %d meta = %v", w.Code, meta)
	}
	if items := out["data"].([]any); len(items) != 1 {
		t.Fatalf("items = %v", items)
	}
}

func TestRatingEndpointErrors(t *testing.T) {
	h, f := newRatingRouter(t)
	base := "/groups/" + strconv.FormatInt(f.group.ID, 10)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
		code   string
	}{
		{"invalid score", http.MethodPost, base + "/ratings", `{"passenger_id":2,"score":9}`, http.StatusBadRequest, "INVALID_SCORE"},
		{"not eligible", http.MethodPost, base + "/ratings", `{"passenger_id":8,"score":3}`, http.StatusBadRequest, "NOT_ELIGIBLE"},
		{"self rating", http.MethodPost, base + "/ratings", `{"passenger_id":1,"score":3}`, http.StatusBadRequest, "SELF_RATING"},
		{"missing passenger", http.MethodPost, base + "/ratings", `{"score":3}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown group", http.MethodPost, "/groups/999/ratings", `{"passenger_id":2,"score":3}`, http.StatusNotFound, "GROUP_NOT_FOUND"},
		{"unknown group summary", http.MethodGet, "/groups/999/rating-summary", "", http.StatusNotFound, "GROUP_NOT_FOUND"},
		{"unknown group list", http.MethodGet, "/groups/999/ratings", "", http.StatusNotFound, "GROUP_NOT_FOUND"},
		{"bad driver id", http.MethodGet, "/drivers/x/ratings", "", http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, out := call(t, h, tt.method, tt.path, tt.body)
			if w.Code != tt.want || errorCode(out) != tt.code {
				t.Fatalf("got %d %q, want %d %q", w.Code, errorCode(out), tt.want, tt.code)
			}
		})
	}
}

func TestPaginationDefaults(t *testing.T) {
	tests := []struct {
		query       string
		limit, offs int
	}{
		{"", defaultLimit, 0},
		{"limit=5&offset=10", 5, 10},
		{"limit=-1&offset=-3", defaultLimit, 0},
		{"limit=abc", defaultLimit, 0},
		{"limit=1000", maxLimit, 0},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		limit, offset := pagination(r)
		if limit != tt.limit || offset != tt.offs {
			t.Errorf("pagination(%q) = %d, %d", tt.query, limit, offset)
		}
	}
}
