package http

import (
	"net/http"
	"time"

	"ciclo/internal/core"
	"ciclo/internal/engine"
)

type startCycleRequest struct {
	BaseBudget    string `json:"baseBudget"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	CutoffDate    string `json:"cutoffDate,omitempty"`
	FixedExpenses string `json:"fixedExpenses,omitempty"`
}

func (s *Server) handleStartCycle(w http.ResponseWriter, r *http.Request) {
	var req startCycleRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	budgetCents, err := core.ParseBudgetToCents(req.BaseBudget)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	fixedCents, err := core.ParseBudgetToCents(req.FixedExpenses)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		writeBadRequest(w, "invalid startDate, want YYYY-MM-DD")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeBadRequest(w, "invalid endDate, want YYYY-MM-DD")
		return
	}
	var cutoff time.Time
	if req.CutoffDate != "" {
		cutoff, err = parseDate(req.CutoffDate)
		if err != nil {
			writeBadRequest(w, "invalid cutoffDate, want YYYY-MM-DD")
			return
		}
	}

	cycle, err := s.service.StartNewCycle(r.Context(), engine.StartParams{
		BaseBudget:    core.Money{Cents: budgetCents},
		StartDate:     start,
		EndDate:       end,
		CutoffDate:    cutoff,
		FixedExpenses: core.Money{Cents: fixedCents},
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cycle)
}

func (s *Server) handleListCycles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Cycles())
}

func (s *Server) handleActiveCycle(w http.ResponseWriter, r *http.Request) {
	cycle, ok := s.service.ActiveCycle()
	if !ok {
		writeDomainError(w, r, core.ErrCycleNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cycle)
}

func (s *Server) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	cycle, err := s.service.CycleByID(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cycle)
}

func (s *Server) handleCloseCycle(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.CloseCycle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type expenseRequest struct {
	CycleID     string `json:"cycleId,omitempty"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if req.CycleID != "" {
		err = s.service.AddExpense(r.Context(), req.CycleID, amount)
	} else {
		err = s.service.AddExpenseToActive(r.Context(), amount)
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type allocationRequest struct {
	Bucket string `json:"bucket"`
	// Amount is optional; empty means allocate the whole remaining surplus.
	Amount string `json:"amount,omitempty"`
}

func (s *Server) handleAllocateSurplus(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	dest, err := core.ParseBucketType(req.Bucket)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	cycleID := r.PathValue("id")
	if req.Amount == "" {
		err = s.service.AllocateFullSurplus(r.Context(), cycleID, dest)
	} else {
		var amount core.Money
		amount, err = parseAmount(req.Amount)
		if err == nil {
			err = s.service.AllocateSurplus(r.Context(), cycleID, dest, amount)
		}
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	cycle, err := s.service.CycleByID(cycleID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cycle)
}

type rolloverRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleApplyRollover(w http.ResponseWriter, r *http.Request) {
	var req rolloverRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	cycleID := r.PathValue("id")
	if err := s.service.ApplyRolloverToNextCycle(r.Context(), cycleID, amount); err != nil {
		writeDomainError(w, r, err)
		return
	}

	bucket, err := s.service.BucketByType(core.BucketRollover)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bucket)
}

type absorbResponse struct {
	FullyCovered  bool       `json:"fullyCovered"`
	BufferBalance core.Money `json:"bufferBalance"`
}

func (s *Server) handleAbsorbDeficit(w http.ResponseWriter, r *http.Request) {
	covered, err := s.service.AbsorbDeficitWithBuffer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, absorbResponse{
		FullyCovered:  covered,
		BufferBalance: s.service.BufferBalance(),
	})
}

func (s *Server) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.BucketBalances())
}

func (s *Server) handleGetBucket(w http.ResponseWriter, r *http.Request) {
	bt, err := core.ParseBucketType(r.PathValue("type"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	bucket, err := s.service.BucketByType(bt)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bucket)
}

type withdrawRequest struct {
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	bt, err := core.ParseBucketType(r.PathValue("type"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req withdrawRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := s.service.WithdrawFromBucket(r.Context(), bt, amount, sanitizeInput(req.Note)); err != nil {
		writeDomainError(w, r, err)
		return
	}

	bucket, err := s.service.BucketByType(bt)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bucket)
}

func (s *Server) handleResetBucket(w http.ResponseWriter, r *http.Request) {
	bt, err := core.ParseBucketType(r.PathValue("type"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.service.ResetBucket(r.Context(), bt); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bufferBalanceResponse struct {
	Balance core.Money `json:"balance"`
}

func (s *Server) handleBufferBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, bufferBalanceResponse{Balance: s.service.BufferBalance()})
}

type depositRequest struct {
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
}

func (s *Server) handleBufferDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := s.service.DepositToBuffer(r.Context(), amount, sanitizeInput(req.Note)); err != nil {
		writeDomainError(w, r, err)
		return
	}

	bucket, err := s.service.BucketByType(core.BucketBuffer)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bucket)
}

func (s *Server) handlePendingAllocations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.PendingAllocations())
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, ok := s.service.Overview(time.Now())
	if !ok {
		writeDomainError(w, r, core.ErrCycleNotFound)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
