package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adaptbtc/adaptbtc-server/internal/pricing"
)

func (s *Server) btcHistory(c *gin.Context) {
	days := c.DefaultQuery("days", pricing.DefaultHistoryRange)

	prices, err := s.deps.Prices.History(c.Request.Context(), days)
	if err != nil {
		upstreamFailure(c, "Unable to load BTC history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": prices})
}

func (s *Server) btcSnapshot(c *gin.Context) {
	snapshot, err := s.deps.Prices.Snapshot(c.Request.Context())
	if err != nil {
		upstreamFailure(c, "Unable to load BTC snapshot", err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", snapshot)
}

func (s *Server) exchangePrices(c *gin.Context) {
	quote, err := s.deps.Prices.ExchangePrices(c.Request.Context())
	if err != nil {
		upstreamFailure(c, "Unable to load exchange prices", err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
