package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/devlas/sumup-bridge/internal/bridge"
	"github.com/devlas/sumup-bridge/internal/config"
	"github.com/devlas/sumup-bridge/internal/monitor"
	"github.com/devlas/sumup-bridge/internal/pending"
	"github.com/devlas/sumup-bridge/internal/protocol"
	"github.com/devlas/sumup-bridge/internal/taptopay"
	"github.com/devlas/sumup-bridge/internal/telemetry"
)

type server struct {
	bridge  *bridge.Bridge
	tap     *taptopay.Manager
	metrics *telemetry.Metrics
	cfg     *config.Config
	logger  *zap.Logger

	loginContract       *monitor.ContractMonitor
	checkoutContract    *monitor.ContractMonitor
	tapCheckoutContract *monitor.ContractMonitor
}

func newServer(br *bridge.Bridge, tap *taptopay.Manager, metrics *telemetry.Metrics, cfg *config.Config, logger *zap.Logger) (*server, error) {
	loginContract, err := monitor.NewContractMonitor(monitor.LoginRequestSchema)
	if err != nil {
		return nil, err
	}
	checkoutContract, err := monitor.NewContractMonitor(monitor.CheckoutRequestSchema)
	if err != nil {
		return nil, err
	}
	tapCheckoutContract, err := monitor.NewContractMonitor(monitor.TapToPayCheckoutSchema)
	if err != nil {
		return nil, err
	}
	return &server{
		bridge:              br,
		tap:                 tap,
		metrics:             metrics,
		cfg:                 cfg,
		logger:              logger,
		loginContract:       loginContract,
		checkoutContract:    checkoutContract,
		tapCheckoutContract: tapCheckoutContract,
	}, nil
}

func (s *server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("sumup-bridge"))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api/v1")
	api.POST("/setup", s.handleSetup)
	api.POST("/login", s.handleLogin)
	api.POST("/logout", s.handleLogout)
	api.GET("/isLoggedIn", s.handleIsLoggedIn)
	api.POST("/openCardReaderPage", s.handleOpenCardReaderPage)
	api.POST("/prepareForCheckout", s.handlePrepareForCheckout)
	api.POST("/checkout", s.handleCheckout)
	api.POST("/closeConnection", s.handleCloseConnection)
	api.POST("/initTapToPay", s.handleInitTapToPay)
	api.POST("/tapToPayCheckout", s.handleTapToPayCheckout)
	api.GET("/isTapToPayReady", s.handleIsTapToPayReady)
	api.POST("/teardownTapToPay", s.handleTeardownTapToPay)
	api.GET("/tapToPayEvents", s.handleTapToPayEvents)
	return r
}

/* ── response helpers ── */

func ack(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"code": 1, "message": message})
}

func fail(c *gin.Context, status int, message, code string) {
	c.JSON(status, gin.H{"error": message, "code": code})
}

// statusForCode maps stable error codes onto HTTP statuses: validation
// failures are the client's fault, state conflicts are 409, a missing
// capability is 503, everything else is on us.
func statusForCode(code string) int {
	switch code {
	case protocol.ErrNoAffiliateKey, protocol.ErrNoAPIToken,
		protocol.ErrInvalidAmount, protocol.ErrInvalidCurrency:
		return http.StatusBadRequest
	case protocol.ErrDispatchDenied, protocol.ErrNotInitialized:
		return http.StatusConflict
	case protocol.ErrTapNotAvailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) failFromError(c *gin.Context, err error) {
	var opErr *protocol.OpError
	if errors.As(err, &opErr) {
		fail(c, statusForCode(opErr.Code), opErr.Message, opErr.Code)
		return
	}
	fail(c, http.StatusInternalServerError, err.Error(), protocol.ErrDispatch)
}

// awaitCall blocks until the dispatched call resolves, then renders the
// outcome. SDK result-code failures surface as 502: the bridge worked, the
// payment terminal said no.
func (s *server) awaitCall(c *gin.Context, call *pending.Call) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.OperationTimeout)
	defer cancel()

	o, err := call.Wait(ctx)
	if err != nil {
		fail(c, http.StatusGatewayTimeout, err.Error(), "OPERATION_TIMEOUT")
		return
	}
	if !o.Success {
		fail(c, http.StatusBadGateway, o.Message, o.Code)
		return
	}
	if o.Checkout != nil {
		c.JSON(http.StatusOK, o.Checkout)
		return
	}
	ack(c, o.Message)
}

// validateAndBind runs the request body through its JSON-schema contract
// before decoding it into dst. Returns false after writing the error
// response.
func (s *server) validateAndBind(c *gin.Context, contract *monitor.ContractMonitor, dst any) bool {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, "failed to read request body", "INVALID_REQUEST")
		return false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	valid, validationErrs, err := contract.Validate(body)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid request format: "+err.Error(), "INVALID_REQUEST")
		return false
	}
	if !valid {
		fail(c, http.StatusBadRequest, monitor.FormatErrors(validationErrs), "INVALID_REQUEST")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		fail(c, http.StatusBadRequest, "invalid request format: "+err.Error(), "INVALID_REQUEST")
		return false
	}
	return true
}

/* ── reader SDK operations ── */

func (s *server) handleSetup(c *gin.Context) {
	if err := s.bridge.Setup(); err != nil {
		s.failFromError(c, err)
		return
	}
	ack(c, "SDK initialized")
}

type loginRequest struct {
	AffiliateKey string `json:"affiliateKey"`
	AccessToken  string `json:"accessToken"`
}

func (s *server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.validateAndBind(c, s.loginContract, &req) {
		return
	}
	call, err := s.bridge.Login(c.Request.Context(), bridge.LoginParams{
		AffiliateKey: req.AffiliateKey,
		AccessToken:  req.AccessToken,
	})
	if err != nil {
		s.failFromError(c, err)
		return
	}
	s.awaitCall(c, call)
}

func (s *server) handleLogout(c *gin.Context) {
	if err := s.bridge.Logout(); err != nil {
		s.failFromError(c, err)
		return
	}
	ack(c, "logged out")
}

func (s *server) handleIsLoggedIn(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": 1, "isLoggedIn": s.bridge.IsLoggedIn()})
}

func (s *server) handleOpenCardReaderPage(c *gin.Context) {
	call, err := s.bridge.OpenReaderSetup(c.Request.Context())
	if err != nil {
		s.failFromError(c, err)
		return
	}
	s.awaitCall(c, call)
}

func (s *server) handlePrepareForCheckout(c *gin.Context) {
	if err := s.bridge.PrepareForCheckout(); err != nil {
		s.failFromError(c, err)
		return
	}
	ack(c, "card reader prepared")
}

type checkoutRequest struct {
	Amount               decimal.Decimal `json:"amount"`
	Title                string          `json:"title"`
	CurrencyCode         string          `json:"currencyCode"`
	TipOnCardReader      bool            `json:"tipOnCardReader"`
	Tip                  decimal.Decimal `json:"tip"`
	SkipSuccessScreen    bool            `json:"skipSuccessScreen"`
	SkipFailedScreen     bool            `json:"skipFailedScreen"`
	ForeignTransactionID string          `json:"foreignTransactionId"`
}

func (s *server) handleCheckout(c *gin.Context) {
	var req checkoutRequest
	if !s.validateAndBind(c, s.checkoutContract, &req) {
		return
	}
	call, err := s.bridge.Checkout(c.Request.Context(), bridge.CheckoutParams{
		Amount:               req.Amount,
		Title:                req.Title,
		CurrencyCode:         req.CurrencyCode,
		TipOnCardReader:      req.TipOnCardReader,
		Tip:                  req.Tip,
		SkipSuccessScreen:    req.SkipSuccessScreen,
		SkipFailedScreen:     req.SkipFailedScreen,
		ForeignTransactionID: req.ForeignTransactionID,
	})
	if err != nil {
		s.failFromError(c, err)
		return
	}
	s.awaitCall(c, call)
}

func (s *server) handleCloseConnection(c *gin.Context) {
	if err := s.bridge.CloseConnection(); err != nil {
		s.failFromError(c, err)
		return
	}
	ack(c, "connection closed")
}

/* ── tap-to-pay operations ── */

type tapInitRequest struct {
	AffiliateKey string `json:"affiliateKey"`
	APIToken     string `json:"apiToken"`
}

func (s *server) handleInitTapToPay(c *gin.Context) {
	var req tapInitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request format: "+err.Error(), "INVALID_REQUEST")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.OperationTimeout)
	defer cancel()
	if err := s.tap.Initialize(ctx, req.AffiliateKey, req.APIToken); err != nil {
		s.failFromError(c, err)
		return
	}
	ack(c, "Tap to Pay SDK initialized")
}

type tapCheckoutRequest struct {
	Amount               int64  `json:"amount"`
	Currency             string `json:"currency"`
	ProcessCardAs        string `json:"processCardAs"`
	Installments         int    `json:"installments"`
	Description          string `json:"description"`
	ForeignTransactionID string `json:"foreignTransactionId"`
}

func (s *server) handleTapToPayCheckout(c *gin.Context) {
	var req tapCheckoutRequest
	if !s.validateAndBind(c, s.tapCheckoutContract, &req) {
		return
	}
	call, err := s.tap.StartPayment(c.Request.Context(), taptopay.PaymentRequest{
		Amount:               req.Amount,
		Currency:             req.Currency,
		ProcessCardAs:        req.ProcessCardAs,
		Installments:         req.Installments,
		Description:          req.Description,
		ForeignTransactionID: req.ForeignTransactionID,
	})
	if err != nil {
		s.failFromError(c, err)
		return
	}
	s.awaitCall(c, call)
}

func (s *server) handleIsTapToPayReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ready": s.tap.IsReady()})
}

func (s *server) handleTeardownTapToPay(c *gin.Context) {
	if err := s.tap.Teardown(); err != nil {
		s.failFromError(c, err)
		return
	}
	ack(c, "Tap to Pay SDK released")
}

// handleTapToPayEvents streams the persistent event channel as SSE until
// the client hangs up.
func (s *server) handleTapToPayEvents(c *gin.Context) {
	events, cancel := s.tap.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("tapToPayEvent", ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
