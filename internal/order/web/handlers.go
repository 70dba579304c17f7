package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Levanhoa23/HL-Sports-Server1/internal/order/app"
	"github.com/Levanhoa23/HL-Sports-Server1/internal/order/domain"
)

// orderItemPayload tolerates the field aliases older clients still send:
// a Mongo-style "_id" for the product reference, "title" for the name and
// an "images" list instead of a single image. Resolution happens here so
// everything past this boundary is strongly typed.
type orderItemPayload struct {
	MongoID   string          `json:"_id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int32           `json:"quantity"`
	Image     string          `json:"image"`
	Images    []string        `json:"images"`
}

func (p orderItemPayload) toRequest() domain.OrderItemRequest {
	productID := p.MongoID
	if productID == "" {
		productID = p.ProductID
	}
	name := p.Name
	if name == "" {
		name = p.Title
	}
	image := p.Image
	if image == "" && len(p.Images) > 0 {
		image = p.Images[0]
	}
	return domain.OrderItemRequest{
		ProductID: productID,
		Name:      name,
		UnitPrice: p.Price,
		Quantity:  p.Quantity,
		Image:     image,
	}
}

type createOrderPayload struct {
	Items         []orderItemPayload `json:"items"`
	Address       *domain.RawAddress `json:"address"`
	PaymentMethod string             `json:"paymentMethod"`
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	var payload createOrderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.fail(c, &domain.ValidationError{Message: "invalid request body"})
		return
	}
	if payload.Address == nil {
		s.fail(c, &domain.ValidationError{Message: "delivery address is required"})
		return
	}

	req := domain.CreateOrderRequest{
		Address:       *payload.Address,
		PaymentMethod: domain.PaymentMethod(payload.PaymentMethod),
	}
	for _, item := range payload.Items {
		req.Items = append(req.Items, item.toRequest())
	}

	order, err := s.svc.CreateOrder(c.Request.Context(), currentUser(c), req)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order created successfully",
		"orderId": order.ID,
		"order":   order,
	})
}

func (s *Server) handleListOrders(c *gin.Context) {
	orders, err := s.svc.ListOrders(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

type intentPayload struct {
	OrderID string `json:"orderId"`
}

func (s *Server) handleCreateIntent(c *gin.Context) {
	var payload intentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.fail(c, &domain.ValidationError{Message: "invalid request body"})
		return
	}

	result, err := s.svc.CreatePaymentIntent(c.Request.Context(), currentUser(c), payload.OrderID)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"clientSecret": result.ClientSecret,
		"amount":       result.Amount,
	})
}

type confirmPayload struct {
	OrderID         string `json:"orderId"`
	PaymentIntentID string `json:"paymentIntentId"`
}

func (s *Server) handleConfirmPayment(c *gin.Context) {
	var payload confirmPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.fail(c, &domain.ValidationError{Message: "invalid request body"})
		return
	}

	order, err := s.svc.ConfirmPayment(c.Request.Context(), currentUser(c), payload.OrderID, payload.PaymentIntentID)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment confirmed",
		"order":   order,
	})
}

// handleWebhook hands the untouched request body to the reconciler; parsing
// it here first would invalidate the signature. The response separates
// transport success from business outcome: anything verified is a generic
// ack regardless of what it did to the order.
func (s *Server) handleWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		s.fail(c, &domain.ValidationError{Message: "unreadable request body"})
		return
	}

	err = s.svc.HandleProcessorEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if errors.Is(err, app.ErrInvalidSignature) {
		s.fail(c, err)
		return
	}
	if err != nil {
		s.log.Error("webhook processing failed", slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

type sendConfirmationPayload struct {
	OrderID         string `json:"orderId"`
	PaymentIntentID string `json:"paymentIntentId"`
}

func (s *Server) handleSendConfirmation(c *gin.Context) {
	var payload sendConfirmationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.fail(c, &domain.ValidationError{Message: "invalid request body"})
		return
	}

	if err := s.svc.SendConfirmationEmail(c.Request.Context(), payload.OrderID, payload.PaymentIntentID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Confirmation email sent"})
}

// fail renders the structured failure envelope with the status code the
// error class maps to.
func (s *Server) fail(c *gin.Context, err error) {
	c.JSON(statusFromError(err), gin.H{"success": false, "message": messageFromError(err)})
}

func statusFromError(err error) int {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, app.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrAlreadyPaid),
		errors.Is(err, app.ErrIntentMismatch),
		errors.Is(err, app.ErrPaymentConflict),
		errors.Is(err, app.ErrPaymentNotSettled):
		return http.StatusConflict
	case errors.Is(err, app.ErrProcessor):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageFromError(err error) string {
	if statusFromError(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
