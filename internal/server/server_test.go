package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/defivault/riskcore/internal/auth"
	"github.com/defivault/riskcore/internal/config"
	"github.com/defivault/riskcore/internal/oracle"
	"github.com/defivault/riskcore/internal/risk"
)

const (
	ownerActor  = "admin"
	feederActor = "feeder"
	botActor    = "bot-1"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := zap.NewNop()
	authz := auth.NewRegistry(ownerActor, logger)
	require.NoError(t, authz.Grant(ownerActor, feederActor, auth.RoleOracle))
	require.NoError(t, authz.Grant(ownerActor, botActor, auth.RoleAssessor))

	orc := oracle.New(authz, nil, nil, nil, logger, oracle.DefaultConfig())
	mgr := risk.NewManager(authz, orc, nil, nil, logger, risk.DefaultConfig())

	cfg := config.HTTPServerConfig{Host: "127.0.0.1", Port: 8080}
	return New(cfg, orc, mgr, nil, logger)
}

func doJSON(t *testing.T, s *Server, method, path, actor string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
}

func TestTokenLifecycle(t *testing.T) {
	s := newTestServer(t)
	body := map[string]interface{}{"token": "WETH", "feed_ref": "feeds/weth", "decimals": 18}

	// Only the owner may register tokens.
	rec := doJSON(t, s, http.MethodPost, "/api/v1/oracle/tokens", feederActor, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/oracle/tokens", ownerActor, body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/oracle/tokens", ownerActor, body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/oracle/tokens", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "WETH")

	rec = doJSON(t, s, http.MethodDelete, "/api/v1/oracle/tokens/WETH", ownerActor, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/oracle/prices/WETH", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPriceUpdateAndRead(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/oracle/tokens", ownerActor,
		map[string]interface{}{"token": "WETH", "feed_ref": "feeds/weth", "decimals": 18})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Below the confidence floor.
	rec = doJSON(t, s, http.MethodPut, "/api/v1/oracle/prices/WETH", feederActor,
		map[string]interface{}{"price": "100", "confidence": 94})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, s, http.MethodPut, "/api/v1/oracle/prices/WETH", feederActor,
		map[string]interface{}{"price": "100", "confidence": 95})
	assert.Equal(t, http.StatusOK, rec.Code)

	// More than a 10% jump is rejected.
	rec = doJSON(t, s, http.MethodPut, "/api/v1/oracle/prices/WETH", feederActor,
		map[string]interface{}{"price": "120", "confidence": 99})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/oracle/prices/WETH", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var priceResp struct {
		Price      string `json:"price"`
		Confidence int64  `json:"confidence"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &priceResp))
	assert.Equal(t, "100", priceResp.Price)
	assert.Equal(t, int64(95), priceResp.Confidence)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/oracle/prices/WETH/value?amount=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1000")
}

func TestRiskAssessmentFlow(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/oracle/tokens", ownerActor,
		map[string]interface{}{"token": "WETH", "feed_ref": "feeds/weth", "decimals": 18})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, s, http.MethodPut, "/api/v1/oracle/prices/WETH", feederActor,
		map[string]interface{}{"price": "100", "confidence": 99})
	require.Equal(t, http.StatusOK, rec.Code)

	// Asset risk is assessor-gated.
	assetBody := map[string]interface{}{"volatility_bp": 5000, "correlation_bp": 2000, "liquidity_bp": 8000}
	rec = doJSON(t, s, http.MethodPut, "/api/v1/risk/assets/WETH", "stranger", assetBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, s, http.MethodPut, "/api/v1/risk/assets/WETH", botActor, assetBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"risk_score":3200`)

	// Profiles are self-service: the actor header is the profile owner.
	rec = doJSON(t, s, http.MethodPut, "/api/v1/risk/profiles", "", map[string]interface{}{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	profileBody := map[string]interface{}{
		"max_drawdown_bp":      1000,
		"max_concentration_bp": 4000,
	}
	rec = doJSON(t, s, http.MethodPut, "/api/v1/risk/profiles", "alice", profileBody)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPut, "/api/v1/risk/profiles", "alice",
		map[string]interface{}{"max_drawdown_bp": 2001})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Assess a small position: base score 3200, no size penalty.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/risk/positions/assess", botActor,
		map[string]interface{}{"user": "alice", "token": "WETH", "amount": "10"})
	require.Equal(t, http.StatusOK, rec.Code)
	var assessResp struct {
		RiskScore int64 `json:"risk_score"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assessResp))
	assert.Equal(t, int64(3200), assessResp.RiskScore)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/risk/positions/alice/WETH", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"at_risk":false`)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/risk/thresholds/alice/WETH", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"within_limits":true`)
}

func TestGlobalRiskEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/risk/global/update", botActor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"global_risk_score":5000`)

	// Second update inside the interval is throttled.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/risk/global/update", botActor, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/risk/global", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPut, "/api/v1/risk/global/interval", botActor,
		map[string]interface{}{"seconds": 60})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, s, http.MethodPut, "/api/v1/risk/global/interval", ownerActor,
		map[string]interface{}{"seconds": 60})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEmergencyStopEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/risk/emergency-stop", "stranger",
		map[string]interface{}{"user": "alice", "reason": "test"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/risk/emergency-stop", botActor,
		map[string]interface{}{"user": "alice", "reason": "drawdown cascade"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestAssessorAdministration(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/risk/assessors", botActor,
		map[string]interface{}{"target": "bot-2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/risk/assessors", ownerActor,
		map[string]interface{}{"target": "bot-2"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodDelete, "/api/v1/risk/assessors/bot-2", ownerActor, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
