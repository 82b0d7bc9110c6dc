package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"team-stock-exchange/internal/domain"
)

// InstrumentView is the list representation of an instrument.
type InstrumentView struct {
	Symbol        string  `json:"symbol"`
	DisplayName   string  `json:"display_name"`
	CurrentPrice  int64   `json:"current_price"`
	PriceCogs     string  `json:"price_cogs"`
	StartingPrice int64   `json:"starting_price"`
	Volatility    float64 `json:"volatility"`
	ChangePct     float64 `json:"change_pct"` // since the starting price
}

func viewOf(inst *domain.Instrument) InstrumentView {
	return InstrumentView{
		Symbol:        inst.Symbol,
		DisplayName:   inst.DisplayName,
		CurrentPrice:  inst.CurrentPrice,
		PriceCogs:     domain.FormatCogs(inst.CurrentPrice),
		StartingPrice: inst.StartingPrice,
		Volatility:    inst.Volatility,
		ChangePct:     domain.PriceDelta{OldPrice: inst.StartingPrice, NewPrice: inst.CurrentPrice}.PercentChange(),
	}
}

func (s *Server) listInstruments(c *gin.Context) {
	infos := s.market.GetAllInfo(c.Request.Context())
	views := make([]InstrumentView, 0, len(infos))
	for _, inst := range infos {
		views = append(views, viewOf(inst))
	}
	c.JSON(http.StatusOK, gin.H{"instruments": views})
}

func (s *Server) getInstrument(c *gin.Context) {
	inst, err := s.market.GetInfo(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (s *Server) getHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}

	symbol := domain.NormalizeSymbol(c.Param("symbol"))
	history, err := s.market.GetPriceHistory(c.Request.Context(), symbol, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "history": history})
}

type setPriceRequest struct {
	Price *int64 `json:"price" binding:"required"`
}

func (s *Server) setPrice(c *gin.Context) {
	var req setPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inst, err := s.market.SetPrice(c.Request.Context(), c.Param("symbol"), *req.Price)
	if err != nil {
		writeError(c, err)
		return
	}

	s.logger.Info("price override", zap.String("symbol", inst.Symbol), zap.Int64("price", inst.CurrentPrice))
	c.JSON(http.StatusOK, viewOf(inst))
}

type setNameRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) setName(c *gin.Context) {
	var req setNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inst, err := s.market.SetDisplayName(c.Request.Context(), c.Param("symbol"), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(inst))
}

func (s *Server) resetMarket(c *gin.Context) {
	if err := s.market.ResetPrices(c.Request.Context()); err != nil {
		s.logger.Error("market reset incomplete", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "partial", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getActivity(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"activity": s.tracker.Snapshot()})
}

func (s *Server) resetActivity(c *gin.Context) {
	s.tracker.ResetAll()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// recordActivity accepts either a symbol or a message tag such as "[SP]".
func (s *Server) recordActivity(c *gin.Context) {
	symbol, ok := s.catalog.Resolve(c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol or tag"})
		return
	}

	s.tracker.Increment(symbol)
	c.JSON(http.StatusAccepted, gin.H{"symbol": symbol, "score": s.tracker.Get(symbol)})
}

// TickResponse summarizes a manual tick.
type TickResponse struct {
	ID      string              `json:"id"`
	Deltas  []domain.PriceDelta `json:"deltas"`
	Skipped []string            `json:"skipped,omitempty"`
	Failed  map[string]string   `json:"failed,omitempty"`
}

func (s *Server) tick(c *gin.Context) {
	if s.engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine not configured"})
		return
	}

	result := s.engine.Tick(c.Request.Context())
	resp := TickResponse{
		ID:      result.Report.ID,
		Deltas:  result.Report.Deltas,
		Skipped: result.Skipped,
	}
	if len(result.Failed) > 0 {
		resp.Failed = make(map[string]string, len(result.Failed))
		for symbol, err := range result.Failed {
			resp.Failed[symbol] = err.Error()
		}
	}
	c.JSON(http.StatusOK, resp)
}
