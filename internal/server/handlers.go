package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/formula-trader/internal/domain"
)

const defaultHistoryLimit = 100

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "formula-trader",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleHoldings returns all active lots.
func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.ledger.Holdings().ActiveHoldings()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list holdings")
		s.writeError(w, http.StatusInternalServerError, "failed to list holdings")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"holdings": holdings,
		"count":    len(holdings),
	})
}

// handleTransactions returns recent transactions, newest first.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	transactions, err := s.ledger.Transactions().History(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list transactions")
		s.writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// handleRunBuyCycle triggers a buy cycle immediately.
func (s *Server) handleRunBuyCycle(w http.ResponseWriter, r *http.Request) {
	summary, err := s.buyCycle.Run(r.Context())
	s.writeCycleResult(w, summary.Cycle, summary, err)
}

// handleRunSellCycle triggers a sell cycle immediately.
func (s *Server) handleRunSellCycle(w http.ResponseWriter, r *http.Request) {
	summary, err := s.sellCycle.Run(r.Context())
	s.writeCycleResult(w, summary.Cycle, summary, err)
}

func (s *Server) writeCycleResult(w http.ResponseWriter, cycle string, summary interface{}, err error) {
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			s.writeError(w, http.StatusConflict, "cycle already ran today")
			return
		}
		s.log.Error().Err(err).Str("cycle", cycle).Msg("Manual cycle run failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cycle":   cycle,
		"summary": summary,
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
