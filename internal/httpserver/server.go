package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ritikyadav10888-oss/force-players-sub000/pkg/payments"
)

const webhookSignatureHeader = "X-Razorpay-Signature"

// Run boots the payments API and blocks until ctx is cancelled or the
// listener fails.
func Run(ctx context.Context, cfg Config, service *payments.Service, logger *zap.Logger) error {
	router := NewRouter(cfg, service, logger)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("payments api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter assembles the gin engine with auth, CORS, and all routes.
func NewRouter(cfg Config, service *payments.Service, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler := &httpHandler{
		logger:  logger,
		service: service,
		cfg:     cfg,
	}

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	// Webhooks authenticate by signature, not by session.
	router.POST("/webhooks/razorpay", handler.handleWebhook)

	api := router.Group("/api")
	api.Use(authMiddleware([]byte(cfg.AuthSigningKey), cfg.AuthIssuer))

	api.POST("/payments/orders", handler.handleCreateOrder)
	api.POST("/payments/verify", handler.handleVerifyPayment)
	api.POST("/tournaments/:tournamentID/settlement/release", handler.handleReleaseSettlement)
	api.POST("/tournaments/:tournamentID/players/:playerID/refund", handler.handleRefundPlayer)
	api.POST("/organizers/:organizerID/route-account", handler.handleLinkAccount)

	return router
}

type httpHandler struct {
	logger  *zap.Logger
	service *payments.Service
	cfg     Config
}

type createOrderRequest struct {
	TournamentID   string            `json:"tournament_id"`
	PlayerID       string            `json:"player_id"`
	Amount         float64           `json:"amount"`
	PaidForPartner bool              `json:"paid_for_partner"`
	Notes          map[string]string `json:"notes"`
}

func (handler *httpHandler) handleCreateOrder(ctx *gin.Context) {
	var request createOrderRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(kindInvalidArgument, "expected JSON body"))
		return
	}
	tournamentID, err := payments.NewTournamentID(request.TournamentID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	playerID, err := payments.NewPlayerID(request.PlayerID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	result, err := handler.service.CreateOrder(requestCtx, payments.CreateOrderRequest{
		TournamentID:       tournamentID,
		PlayerID:           playerID,
		ClientAmountRupees: request.Amount,
		PaidForPartner:     request.PaidForPartner,
		Notes:              request.Notes,
	})
	if err != nil {
		handler.logError("create order failed", err)
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"order": gin.H{
			"order_id":            result.OrderID,
			"transaction_id":      result.TransactionID,
			"amount":              result.Amount.Int64(),
			"organizer_share":     result.OrganizerShare.Int64(),
			"platform_commission": result.PlatformCommission.Int64(),
			"currency":            result.Currency,
		},
	})
}

type verifyPaymentRequest struct {
	PaymentID    string `json:"razorpay_payment_id"`
	OrderID      string `json:"razorpay_order_id"`
	Signature    string `json:"razorpay_signature"`
	TournamentID string `json:"tournament_id"`
	PlayerID     string `json:"player_id"`
}

func (handler *httpHandler) handleVerifyPayment(ctx *gin.Context) {
	var request verifyPaymentRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(kindInvalidArgument, "expected JSON body"))
		return
	}
	paymentID, err := payments.NewPaymentID(request.PaymentID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	result, err := handler.service.ConfirmFromClient(requestCtx, payments.VerifyRequest{
		PaymentID:    paymentID,
		OrderID:      request.OrderID,
		Signature:    request.Signature,
		TournamentID: request.TournamentID,
		PlayerID:     request.PlayerID,
	})
	if err != nil {
		handler.logError("payment verification failed", err)
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":           true,
		"payment_id":        result.PaymentID,
		"order_id":          result.OrderID,
		"amount":            result.Amount.Int64(),
		"seats":             result.Seats,
		"already_confirmed": result.AlreadyConfirmed,
	})
}

func (handler *httpHandler) handleReleaseSettlement(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse(kindUnauthenticated, "missing session"))
		return
	}
	tournamentID, err := payments.NewTournamentID(ctx.Param("tournamentID"))
	if err != nil {
		respondError(ctx, err)
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	result, err := handler.service.ReleaseSettlement(requestCtx, actor, tournamentID)
	if err != nil {
		handler.logError("settlement release failed", err)
		respondError(ctx, err)
		return
	}

	failures := make([]gin.H, 0, len(result.Failures))
	for _, failure := range result.Failures {
		failures = append(failures, gin.H{
			"transaction_id": failure.TransactionID,
			"transfer_id":    failure.TransferID,
			"reason":         failure.Reason,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":         result.FailedCount == 0,
		"status":          result.Status.String(),
		"released_count":  result.ReleasedCount,
		"failed_count":    result.FailedCount,
		"released_amount": result.ReleasedAmount.Int64(),
		"failures":        failures,
	})
}

type refundPlayerRequest struct {
	Percentage float64 `json:"percentage"`
	Reason     string  `json:"reason"`
}

func (handler *httpHandler) handleRefundPlayer(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse(kindUnauthenticated, "missing session"))
		return
	}
	tournamentID, err := payments.NewTournamentID(ctx.Param("tournamentID"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	playerID, err := payments.NewPlayerID(ctx.Param("playerID"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	var request refundPlayerRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(kindInvalidArgument, "expected JSON body"))
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	result, err := handler.service.RefundPlayer(requestCtx, actor, payments.RefundPlayerRequest{
		TournamentID: tournamentID,
		PlayerID:     playerID,
		Percentage:   request.Percentage,
		Reason:       request.Reason,
	})
	if err != nil {
		handler.logError("refund failed", err)
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":        true,
		"refund_id":      result.RefundID,
		"amount":         result.Amount.Int64(),
		"processing_fee": result.ProcessingFee.Int64(),
	})
}

type linkAccountRequest struct {
	AccountID string `json:"account_id"`
}

func (handler *httpHandler) handleLinkAccount(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse(kindUnauthenticated, "missing session"))
		return
	}
	organizerID, err := payments.NewOrganizerID(ctx.Param("organizerID"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	var request linkAccountRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(kindInvalidArgument, "expected JSON body"))
		return
	}
	account, err := payments.NewLinkedAccountID(request.AccountID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	if err := handler.service.LinkRouteAccount(requestCtx, actor, organizerID, account); err != nil {
		handler.logError("link account failed", err)
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (handler *httpHandler) handleWebhook(ctx *gin.Context) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(kindInvalidArgument, "unreadable body"))
		return
	}
	signature := ctx.GetHeader(webhookSignatureHeader)

	requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
	defer cancel()
	result, err := handler.service.ConfirmFromWebhook(requestCtx, body, signature)
	if err != nil {
		// An unverifiable or malformed event is rejected outright; redelivery
		// of the same bytes cannot succeed either.
		if errors.Is(err, payments.ErrSignatureMismatch) || errors.Is(err, payments.ErrInvalidWebhookEvent) {
			ctx.JSON(http.StatusBadRequest, errorResponse(kindInvalidArgument, "webhook rejected"))
			return
		}
		// Other failures are retryable: a non-2xx response makes the
		// gateway redeliver the event.
		handler.logError("webhook processing failed", err)
		ctx.JSON(http.StatusInternalServerError, errorResponse(kindInternal, "internal error"))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"payment_id":        result.PaymentID,
		"already_confirmed": result.AlreadyConfirmed,
	})
}

func (handler *httpHandler) logError(message string, err error) {
	handler.logger.Warn(message, zap.Error(err))
}
