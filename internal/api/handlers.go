package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"index-signal-lab/internal/domain"
	"index-signal-lab/internal/metrics"
	"index-signal-lab/internal/pipeline"
	"index-signal-lab/internal/storage"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: ServiceVersion})
}

func (s *Server) handleSymbols(c *gin.Context) {
	symbols, err := s.indexStore.ListSymbols(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols})
}

func (s *Server) handleSeries(c *gin.Context) {
	symbol, ok := s.symbolParam(c)
	if !ok {
		return
	}
	from, to, err := dateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	// GetSeries distinguishes an unknown symbol from an empty range.
	rows, err := s.indexStore.GetSeries(ctx, symbol)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !from.IsZero() || !to.IsZero() {
		rows, err = s.indexStore.GetByDateRange(ctx, symbol, from, to)
		if err != nil {
			s.fail(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "rows": toRows(rows)})
}

func (s *Server) handleLedger(c *gin.Context) {
	symbol, ok := s.symbolParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := s.indexStore.GetSeries(ctx, symbol); err != nil {
		s.fail(c, err)
		return
	}
	legs, err := s.ledgerStore.GetLedger(ctx, symbol)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, LedgerResponse{
		Symbol:  symbol,
		Legs:    toLegs(legs),
		Summary: toSummary(metrics.Compute(legs)),
	})
}

func (s *Server) handleSweep(c *gin.Context) {
	symbol, ok := s.symbolParam(c)
	if !ok {
		return
	}
	if s.sweepStore == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: "sweep store not configured"})
		return
	}

	results, err := s.sweepStore.GetSweep(c.Request.Context(), symbol)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "results": toSweepRows(results)})
}

func (s *Server) handleRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	symbol, err := domain.NormalizeSymbol(req.Symbol)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	from, to, err := dateRange(req.From, req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := s.runner.Run(c.Request.Context(), pipeline.RunRequest{
		Symbol:   symbol,
		Start:    from,
		End:      to,
		Strategy: req.Strategy.toDomain(),
		Notify:   req.Notify,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toRunResponse(result))
}

func (s *Server) symbolParam(c *gin.Context) (string, bool) {
	symbol, err := domain.NormalizeSymbol(c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return "", false
	}
	return symbol, true
}

// fail maps store and pipeline errors onto HTTP status codes.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pipeline.ErrInvalidRequest), errors.Is(err, storage.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func dateRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = domain.ParseDay(from); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q", from)
		}
	}
	if to != "" {
		if end, err = domain.ParseDay(to); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q", to)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("to date %s precedes from date %s", to, from)
	}
	return start, end, nil
}
