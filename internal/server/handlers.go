package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/defivault/riskcore/internal/auth"
	"github.com/defivault/riskcore/internal/oracle"
	"github.com/defivault/riskcore/internal/risk"
)

// respondErr maps domain sentinels to HTTP statuses.
func (s *Server) respondErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, oracle.ErrInvalidArgument), errors.Is(err, risk.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, oracle.ErrDuplicateToken):
		status = http.StatusConflict
	case errors.Is(err, oracle.ErrNotFound),
		errors.Is(err, oracle.ErrNotSupported),
		errors.Is(err, risk.ErrPositionNotFound),
		errors.Is(err, risk.ErrProfileNotSet),
		errors.Is(err, risk.ErrAssetRiskNotAssessed):
		status = http.StatusNotFound
	case errors.Is(err, oracle.ErrLowConfidence),
		errors.Is(err, oracle.ErrInvalidPrice),
		errors.Is(err, oracle.ErrDeviationTooHigh),
		errors.Is(err, oracle.ErrStaleFeedData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, oracle.ErrPriceExpired), errors.Is(err, oracle.ErrPriceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, oracle.ErrFeedUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, risk.ErrTooEarly):
		status = http.StatusTooManyRequests
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// --- oracle handlers ---

type addTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	FeedRef  string `json:"feed_ref"`
	Decimals int32  `json:"decimals"`
}

func (s *Server) addToken(c *gin.Context) {
	var req addTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.oracle.AddToken(c.Request.Context(), actorFrom(c), req.Token, req.FeedRef, req.Decimals); err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": req.Token})
}

func (s *Server) removeToken(c *gin.Context) {
	if err := s.oracle.RemoveToken(c.Request.Context(), actorFrom(c), c.Param("token")); err != nil {
		s.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listTokens(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tokens": s.oracle.SupportedTokens()})
}

func (s *Server) getToken(c *gin.Context) {
	info, ok := s.oracle.TokenInfo(c.Param("token"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

type targetRequest struct {
	Target string `json:"target" binding:"required"`
}

func (s *Server) authorizeWriter(c *gin.Context) {
	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.oracle.AuthorizeWriter(c.Request.Context(), actorFrom(c), req.Target); err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"target": req.Target})
}

func (s *Server) deauthorizeWriter(c *gin.Context) {
	if err := s.oracle.DeauthorizeWriter(c.Request.Context(), actorFrom(c), c.Param("target")); err != nil {
		s.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type updatePriceRequest struct {
	Price      decimal.Decimal `json:"price" binding:"required"`
	Confidence int64           `json:"confidence"`
}

func (s *Server) updatePrice(c *gin.Context) {
	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.oracle.UpdatePrice(c.Request.Context(), actorFrom(c), c.Param("token"), req.Price, req.Confidence); err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": c.Param("token"), "price": req.Price})
}

func (s *Server) refreshPrice(c *gin.Context) {
	token := c.Param("token")
	if err := s.oracle.UpdatePriceFromFeed(c.Request.Context(), actorFrom(c), token); err != nil {
		s.respondErr(c, err)
		return
	}
	price, confidence, err := s.oracle.GetPriceWithConfidence(token)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "price": price, "confidence": confidence})
}

func (s *Server) getPrice(c *gin.Context) {
	token := c.Param("token")
	price, confidence, err := s.oracle.GetPriceWithConfidence(token)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "price": price, "confidence": confidence})
}

func (s *Server) getTokenValue(c *gin.Context) {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	value, err := s.oracle.GetTokenValue(c.Param("token"), amount)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": c.Param("token"), "amount": amount, "value": value})
}

// --- risk handlers ---

type assetRiskRequest struct {
	VolatilityBP  int64 `json:"volatility_bp"`
	CorrelationBP int64 `json:"correlation_bp"`
	LiquidityBP   int64 `json:"liquidity_bp"`
}

func (s *Server) updateAssetRisk(c *gin.Context) {
	var req assetRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.risk.UpdateAssetRisk(c.Request.Context(), actorFrom(c), c.Param("token"),
		req.VolatilityBP, req.CorrelationBP, req.LiquidityBP)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	assetRisk, _ := s.risk.GetAssetRisk(c.Param("token"))
	c.JSON(http.StatusOK, assetRisk)
}

func (s *Server) getAssetRisk(c *gin.Context) {
	assetRisk, ok := s.risk.GetAssetRisk(c.Param("token"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset risk not assessed"})
		return
	}
	c.JSON(http.StatusOK, assetRisk)
}

func (s *Server) setRiskProfile(c *gin.Context) {
	actor := actorFrom(c)
	if actor == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "missing " + actorHeader + " header"})
		return
	}
	var limits risk.ProfileLimits
	if err := c.ShouldBindJSON(&limits); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.risk.SetRiskProfile(c.Request.Context(), actor, limits); err != nil {
		s.respondErr(c, err)
		return
	}
	profile, _ := s.risk.GetRiskProfile(actor)
	c.JSON(http.StatusOK, profile)
}

func (s *Server) getRiskProfile(c *gin.Context) {
	profile, ok := s.risk.GetRiskProfile(c.Param("user"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not set"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

type assessRequest struct {
	User   string          `json:"user" binding:"required"`
	Token  string          `json:"token" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

func (s *Server) assessPosition(c *gin.Context) {
	var req assessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	score, err := s.risk.AssessPositionRisk(c.Request.Context(), actorFrom(c), req.User, req.Token, req.Amount)
	if err != nil {
		s.respondErr(c, err)
		return
	}
	pos, _ := s.risk.GetPositionRisk(req.User, req.Token)
	c.JSON(http.StatusOK, gin.H{"risk_score": score, "position": pos})
}

func (s *Server) markPosition(c *gin.Context) {
	err := s.risk.MarkPosition(c.Request.Context(), actorFrom(c), c.Param("user"), c.Param("token"))
	if err != nil {
		s.respondErr(c, err)
		return
	}
	pos, _ := s.risk.GetPositionRisk(c.Param("user"), c.Param("token"))
	c.JSON(http.StatusOK, pos)
}

func (s *Server) getPosition(c *gin.Context) {
	pos, ok := s.risk.GetPositionRisk(c.Param("user"), c.Param("token"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "position not found"})
		return
	}
	c.JSON(http.StatusOK, pos)
}

func (s *Server) checkThresholds(c *gin.Context) {
	within := s.risk.CheckRiskThresholds(c.Request.Context(), c.Param("user"), c.Param("token"))
	c.JSON(http.StatusOK, gin.H{
		"user":          c.Param("user"),
		"token":         c.Param("token"),
		"within_limits": within,
	})
}

type emergencyStopRequest struct {
	User   string `json:"user" binding:"required"`
	Reason string `json:"reason"`
}

func (s *Server) emergencyStop(c *gin.Context) {
	var req emergencyStopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.risk.TriggerEmergencyStop(c.Request.Context(), actorFrom(c), req.User, req.Reason); err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"user": req.User})
}

func (s *Server) updateGlobalRisk(c *gin.Context) {
	score, err := s.risk.UpdateGlobalRiskScore(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"global_risk_score": score})
}

func (s *Server) getGlobalRisk(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"global_risk_score": s.risk.GlobalRiskScore()})
}

type intervalRequest struct {
	Seconds int64 `json:"seconds" binding:"required"`
}

func (s *Server) setUpdateInterval(c *gin.Context) {
	var req intervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.risk.SetUpdateInterval(c.Request.Context(), actorFrom(c), time.Duration(req.Seconds)*time.Second); err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seconds": req.Seconds})
}

func (s *Server) authorizeAssessor(c *gin.Context) {
	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.risk.AuthorizeAssessor(c.Request.Context(), actorFrom(c), req.Target); err != nil {
		s.respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"target": req.Target})
}

func (s *Server) deauthorizeAssessor(c *gin.Context) {
	if err := s.risk.DeauthorizeAssessor(c.Request.Context(), actorFrom(c), c.Param("target")); err != nil {
		s.respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
