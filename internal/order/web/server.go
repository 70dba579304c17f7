// Package web is the HTTP transport for the order/payment service.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Levanhoa23/HL-Sports-Server1/internal/order/app"
	"github.com/Levanhoa23/HL-Sports-Server1/internal/order/domain"
)

// identityHeader carries the verified user ID set by the upstream
// authentication layer. Token verification itself happens there, not here.
const identityHeader = "X-User-Id"

const userIDKey = "userID"

// OrderService is what the handlers need from the application layer.
type OrderService interface {
	CreateOrder(ctx context.Context, userID string, req domain.CreateOrderRequest) (domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)
	CreatePaymentIntent(ctx context.Context, userID, orderID string) (app.IntentResult, error)
	ConfirmPayment(ctx context.Context, userID, orderID, intentID string) (domain.Order, error)
	HandleProcessorEvent(ctx context.Context, payload []byte, signature string) error
	SendConfirmationEmail(ctx context.Context, orderID, intentID string) error
}

type Server struct {
	svc    OrderService
	router *gin.Engine
	log    *slog.Logger
}

type Options struct {
	AllowedOrigins []string
	Logger         *slog.Logger
}

func NewServer(svc OrderService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Authorization", "token", identityHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	s := &Server{
		svc:    svc,
		router: router,
		log:    opts.Logger,
	}

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := router.Group("/api")
	{
		// The webhook authenticates via signature, the resend endpoint via
		// its payload; neither carries a user identity.
		api.POST("/webhook", s.handleWebhook)
		api.POST("/send-confirmation", s.handleSendConfirmation)

		authed := api.Group("", s.requireIdentity)
		{
			authed.POST("/order", s.handleCreateOrder)
			authed.GET("/orders", s.handleListOrders)
			authed.POST("/payment-intent", s.handleCreateIntent)
			authed.POST("/confirm-payment", s.handleConfirmPayment)
		}
	}

	return s
}

// Handler exposes the router for mounting on an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requireIdentity(c *gin.Context) {
	userID := c.GetHeader(identityHeader)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": app.ErrUnauthenticated.Error(),
		})
		return
	}
	c.Set(userIDKey, userID)
	c.Next()
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
