package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ciclo/internal/backend"
	"ciclo/internal/core"
	"ciclo/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc, err := services.NewCycleService(context.Background(), backend.NewMemoryStore(), nil, "default", nil)
	if err != nil {
		t.Fatalf("NewCycleService() error = %v", err)
	}
	return NewServer(":0", svc)
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func startCycleReq(t *testing.T, srv *Server, budget string) core.Cycle {
	t.Helper()
	body := fmt.Sprintf(`{"baseBudget":%q,"startDate":"2026-03-01","endDate":"2026-03-31"}`, budget)
	rr := doJSON(t, srv, http.MethodPost, "/cycles", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("POST /cycles status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var c core.Cycle
	if err := json.Unmarshal(rr.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode cycle: %v", err)
	}
	return c
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "")
		if rr.Code != 200 {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
	}
}

func TestStartCycleEndpoint(t *testing.T) {
	srv := newTestServer(t)

	c := startCycleReq(t, srv, "1000.00")
	if c.EffectiveBudget.Cents != 100000 {
		t.Errorf("effective budget = %d, want 100000", c.EffectiveBudget.Cents)
	}
	if c.Status != core.CycleActive {
		t.Errorf("status = %v, want active", c.Status)
	}

	// A second active cycle is a conflict.
	body := `{"baseBudget":"500.00","startDate":"2026-04-01","endDate":"2026-04-30"}`
	rr := doJSON(t, srv, http.MethodPost, "/cycles", body)
	if rr.Code != http.StatusConflict {
		t.Errorf("second POST /cycles status = %d, want 409", rr.Code)
	}
}

func TestStartCycleRejectsBadDates(t *testing.T) {
	srv := newTestServer(t)

	// End before start violates the date ordering invariant.
	body := `{"baseBudget":"1000.00","startDate":"2026-03-31","endDate":"2026-03-01"}`
	rr := doJSON(t, srv, http.MethodPost, "/cycles", body)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("POST /cycles status = %d, want 422", rr.Code)
	}
}

func TestExpenseAndCloseFlow(t *testing.T) {
	srv := newTestServer(t)
	c := startCycleReq(t, srv, "1000.00")

	rr := doJSON(t, srv, http.MethodPost, "/expenses", `{"amount":"650.00"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("POST /expenses status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/cycles/"+c.ID+"/close", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("close status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var result struct {
		Surplus core.Money `json:"surplus"`
		Outcome string     `json:"outcome"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode close result: %v", err)
	}
	if result.Outcome != "surplus" || result.Surplus.Cents != 35000 {
		t.Errorf("close result = %+v, want surplus 35000", result)
	}

	// Closing again is idempotent and returns the stored result.
	rr = doJSON(t, srv, http.MethodPost, "/cycles/"+c.ID+"/close", "")
	if rr.Code != http.StatusOK {
		t.Errorf("second close status = %d, want 200", rr.Code)
	}
}

func TestCloseUnknownCycle(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/cycles/missing/close", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("close missing cycle status = %d, want 404", rr.Code)
	}
}

func TestAllocationEndpoint(t *testing.T) {
	srv := newTestServer(t)
	c := startCycleReq(t, srv, "1000.00")
	doJSON(t, srv, http.MethodPost, "/expenses", `{"amount":"600.00"}`)
	doJSON(t, srv, http.MethodPost, "/cycles/"+c.ID+"/close", "")

	rr := doJSON(t, srv, http.MethodPost, "/cycles/"+c.ID+"/allocations", `{"bucket":"savings","amount":"250.00"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("allocation status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var got core.Cycle
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode cycle: %v", err)
	}
	if got.RemainingSurplus.Cents != 15000 {
		t.Errorf("remaining surplus = %d, want 15000", got.RemainingSurplus.Cents)
	}

	// Over-allocating the remainder is rejected.
	rr = doJSON(t, srv, http.MethodPost, "/cycles/"+c.ID+"/allocations", `{"bucket":"savings","amount":"200.00"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("over-allocation status = %d, want 422", rr.Code)
	}

	// Unknown bucket name.
	rr = doJSON(t, srv, http.MethodPost, "/cycles/"+c.ID+"/allocations", `{"bucket":"vacation","amount":"10.00"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown bucket status = %d, want 404", rr.Code)
	}
}

func TestAllocationRequiresClosedCycle(t *testing.T) {
	srv := newTestServer(t)
	c := startCycleReq(t, srv, "1000.00")

	rr := doJSON(t, srv, http.MethodPost, "/cycles/"+c.ID+"/allocations", `{"bucket":"savings","amount":"10.00"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("allocation on active cycle status = %d, want 422", rr.Code)
	}
}

func TestRolloverSeedsNextCycle(t *testing.T) {
	srv := newTestServer(t)
	c := startCycleReq(t, srv, "1000.00")
	doJSON(t, srv, http.MethodPost, "/expenses", `{"amount":"650.00"}`)
	doJSON(t, srv, http.MethodPost, "/cycles/"+c.ID+"/close", "")

	rr := doJSON(t, srv, http.MethodPost, "/cycles/"+c.ID+"/rollover", `{"amount":"350.00"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("rollover status = %d, body = %s", rr.Code, rr.Body.String())
	}

	body := `{"baseBudget":"1000.00","startDate":"2026-04-01","endDate":"2026-04-30"}`
	rr = doJSON(t, srv, http.MethodPost, "/cycles", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("next cycle status = %d", rr.Code)
	}
	var next core.Cycle
	json.Unmarshal(rr.Body.Bytes(), &next)
	if next.EffectiveBudget.Cents != 135000 {
		t.Errorf("next effective budget = %d, want 135000", next.EffectiveBudget.Cents)
	}
	if next.RolloverBonus.Cents != 35000 {
		t.Errorf("rollover bonus = %d, want 35000", next.RolloverBonus.Cents)
	}
}

func TestBufferDepositWithdrawAndAbsorb(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/buffer/deposits", `{"amount":"300.00","note":"seed"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("deposit status = %d, body = %s", rr.Code, rr.Body.String())
	}

	// Overspend a cycle, then absorb from the buffer.
	c := startCycleReq(t, srv, "1000.00")
	doJSON(t, srv, http.MethodPost, "/expenses", `{"amount":"1050.00"}`)
	rr = doJSON(t, srv, http.MethodPost, "/cycles/"+c.ID+"/absorb", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("absorb status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var absorb absorbResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &absorb); err != nil {
		t.Fatalf("decode absorb: %v", err)
	}
	if !absorb.FullyCovered {
		t.Error("absorb should fully cover a 50.00 deficit from a 300.00 buffer")
	}
	if absorb.BufferBalance.Cents != 25000 {
		t.Errorf("buffer balance = %d, want 25000", absorb.BufferBalance.Cents)
	}

	// Withdrawing more than the balance is rejected.
	rr = doJSON(t, srv, http.MethodPost, "/buckets/buffer/withdrawals", `{"amount":"500.00"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("over-withdraw status = %d, want 422", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/buckets/buffer/withdrawals", `{"amount":"100.00","note":"car repair"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("withdraw status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var bucket core.Bucket
	json.Unmarshal(rr.Body.Bytes(), &bucket)
	if bucket.Total.Cents != 15000 {
		t.Errorf("buffer total = %d, want 15000", bucket.Total.Cents)
	}
	if len(bucket.Withdrawals) == 0 {
		t.Error("withdrawal must appear in the bucket audit trail")
	}
}

func TestBucketEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/buckets", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /buckets status = %d", rr.Code)
	}
	var buckets []core.BucketBalance
	if err := json.Unmarshal(rr.Body.Bytes(), &buckets); err != nil {
		t.Fatalf("decode buckets: %v", err)
	}
	if len(buckets) != 5 {
		t.Errorf("buckets = %d, want 5", len(buckets))
	}

	rr = doJSON(t, srv, http.MethodGet, "/buckets/vacation", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("GET unknown bucket status = %d, want 404", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/buckets/savings/reset", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("reset status = %d, want 204", rr.Code)
	}
}

func TestActiveCycleAndOverview(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/cycles/active", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("GET /cycles/active with no cycle status = %d, want 404", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/overview", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("GET /overview with no cycle status = %d, want 404", rr.Code)
	}

	startCycleReq(t, srv, "1000.00")
	rr = doJSON(t, srv, http.MethodGet, "/cycles/active", "")
	if rr.Code != http.StatusOK {
		t.Errorf("GET /cycles/active status = %d, want 200", rr.Code)
	}
}

func TestInvalidAmountIsRejected(t *testing.T) {
	srv := newTestServer(t)
	startCycleReq(t, srv, "1000.00")

	for _, body := range []string{`{"amount":"abc"}`, `{"amount":"-5.00"}`, `{"amount":""}`} {
		rr := doJSON(t, srv, http.MethodPost, "/expenses", body)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("POST /expenses %s status = %d, want 422", body, rr.Code)
		}
	}
}
