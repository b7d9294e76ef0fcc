package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/uvgride/grouprides/internal/config"
	"github.com/uvgride/grouprides/internal/group"
	"github.com/uvgride/grouprides/internal/rating"
	"github.com/uvgride/grouprides/internal/store/memstore"
	"github.com/uvgride/grouprides/internal/vehicle"
	mw "github.com/uvgride/grouprides/pkg/middleware"
)

func testRouter(t *testing.T, secret string) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	store := memstore.New()
	groups := group.NewService(store, group.NewRegistry(group.PolicyJoin), vehicle.AllowAll{}, nil, logger)
	ratings := rating.NewService(store, rating.NewAggregator(store, false), nil, nil, logger)

	cfg := &config.Config{JWTSecret: secret, CORSAllowedOrigins: []string{"*"}}
	return newRouter(cfg, logger, group.NewHandler(groups, logger), rating.NewHandler(ratings, logger))
}

func serve(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouterWiring(t *testing.T) {
	h := testRouter(t, "")

	if w := serve(h, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
	if w := serve(h, http.MethodGet, "/metrics", "", nil); w.Code != http.StatusOK {
		t.Fatalf("metrics = %d", w.Code)
	}

	w := serve(h, http.MethodPost, "/api/v1/groups", `{"driver_id":1,"destination_name":"Campus","total_seats":2}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	if w := serve(h, http.MethodPost, "/api/v1/groups/1/join", `{"user_id":2}`, nil); w.Code != http.StatusOK {
		t.Fatalf("join = %d %s", w.Code, w.Body.String())
	}
	if w := serve(h, http.MethodPost, "/api/v1/groups/1/ratings", `{"passenger_id":2,"score":5}`, nil); w.Code != http.StatusCreated {
		t.Fatalf("rate = %d %s", w.Code, w.Body.String())
	}
	if w := serve(h, http.MethodGet, "/api/v1/drivers/1/rating-summary", "", nil); w.Code != http.StatusOK {
		t.Fatalf("driver summary = %d", w.Code)
	}
}

func TestRouterRequiresTokenWhenSecretSet(t *testing.T) {
	const secret = "router-secret"
	h := testRouter(t, secret)

	if w := serve(h, http.MethodGet, "/api/v1/groups", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d", w.Code)
	}
	if w := serve(h, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health behind auth = %d", w.Code)
	}

	token, err := mw.GenerateToken(1, secret, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	auth := map[string]string{"Authorization": "Bearer " + token}

	w := serve(h, http.MethodPost, "/api/v1/groups", `{"driver_id":2,"destination_name":"Campus","total_seats":2}`, auth)
	if w.Code != http.StatusForbidden {
		t.Fatalf("create for another driver = %d", w.Code)
	}
	w = serve(h, http.MethodPost, "/api/v1/groups", `{"driver_id":1,"destination_name":"Campus","total_seats":2}`, auth)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
}
