package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jetprint/print-workflow/internal/application/port"
	"github.com/jetprint/print-workflow/internal/application/service"
	"github.com/jetprint/print-workflow/internal/auth"
	"github.com/jetprint/print-workflow/internal/domain/entity"
	"github.com/jetprint/print-workflow/internal/domain/stage"
	"github.com/jetprint/print-workflow/internal/infrastructure/notification"
)

// Handler holds the services behind the HTTP routes
type Handler struct {
	orders        service.OrderService
	workflow      service.WorkflowService
	users         service.UserService
	notifications service.NotificationService
	hub           *notification.Hub
	tokens        *auth.TokenManager
	logger        *zap.Logger
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, entity.ErrAlreadyCompleted),
		errors.Is(err, entity.ErrInvalidStage),
		errors.Is(err, entity.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

type loginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a user and returns a signed token
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone and password are required"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// ListAvailableOrders returns unclaimed orders at the user's assigned stages
func (h *Handler) ListAvailableOrders(c *gin.Context) {
	orders, err := h.orders.ListAvailable(c.Request.Context(), actingUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// CreateOrder registers a new order at the start of the pipeline
func (h *Handler) CreateOrder(c *gin.Context) {
	var input service.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.Create(c.Request.Context(), input, actingUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// GetOrder returns a single order with its products
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// OrderConfirmation returns the customer-facing confirmation text
func (h *Handler) OrderConfirmation(c *gin.Context) {
	message, err := h.orders.ConfirmationMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

type updateNotesRequest struct {
	Notes string `json:"notes"`
}

// UpdateOrderNotes replaces the order's free-form notes
func (h *Handler) UpdateOrderNotes(c *gin.Context) {
	var req updateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orders.UpdateNotes(c.Request.Context(), c.Param("id"), req.Notes); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type updateShippingRequest struct {
	ShippingPrice *float64 `json:"shipping_price" binding:"required"`
}

// UpdateShippingPrice sets the order's shipping price
func (h *Handler) UpdateShippingPrice(c *gin.Context) {
	var req updateShippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shipping_price is required"})
		return
	}

	if err := h.orders.UpdateShippingPrice(c.Request.Context(), c.Param("id"), *req.ShippingPrice); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type claimRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// ClaimOrder takes exclusive ownership of an order at its current stage
func (h *Handler) ClaimOrder(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}

	claim, err := h.workflow.Claim(c.Request.Context(), req.OrderID, actingUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"claim": claim})
}

// AdvanceClaim completes the claim and moves the order forward
func (h *Handler) AdvanceClaim(c *gin.Context) {
	claim, err := h.workflow.Advance(c.Request.Context(), c.Param("id"), actingUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claim": claim})
}

func (h *Handler) myClaims(c *gin.Context, filter port.ClaimFilter) {
	claims, err := h.workflow.MyClaims(c.Request.Context(), actingUserID(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": claims})
}

// MyActiveClaims returns the user's in-progress claims
func (h *Handler) MyActiveClaims(c *gin.Context) {
	h.myClaims(c, port.ClaimFilterActive)
}

// MyCompletedClaims returns the user's finished claims
func (h *Handler) MyCompletedClaims(c *gin.Context) {
	h.myClaims(c, port.ClaimFilterCompleted)
}

// MyAllClaims returns every claim the user has ever held
func (h *Handler) MyAllClaims(c *gin.Context) {
	h.myClaims(c, port.ClaimFilterAll)
}

// ListBranches returns all branches
func (h *Handler) ListBranches(c *gin.Context) {
	branches, err := h.orders.ListBranches(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"branches": branches})
}

// MyNotifications returns the user's recent notification history
func (h *Handler) MyNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	notifications, err := h.notifications.History(c.Request.Context(), actingUserID(c), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// StreamEvents pushes workflow notifications to the client over SSE.
// Every subscriber receives every event; clients filter by user_id.
func (h *Handler) StreamEvents(c *gin.Context) {
	id, events := h.hub.Subscribe()
	defer h.hub.Unsubscribe(id)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case n, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("notification", n)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

type reassignRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	NewUserID string `json:"new_user_id" binding:"required"`
}

// ReassignClaim rewrites the claimant of an order's active claim
func (h *Handler) ReassignClaim(c *gin.Context) {
	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id and new_user_id are required"})
		return
	}

	claim, err := h.workflow.Reassign(c.Request.Context(), req.OrderID, req.NewUserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claim": claim})
}

type overrideStageRequest struct {
	Stage string `json:"stage" binding:"required"`
}

// OverrideOrderStage sets the order's stage directly, bypassing claims
func (h *Handler) OverrideOrderStage(c *gin.Context) {
	var req overrideStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stage is required"})
		return
	}

	target, err := stage.Parse(req.Stage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.workflow.OverrideStage(c.Request.Context(), c.Param("id"), target)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// AuditLogs returns the full claim history, newest first
func (h *Handler) AuditLogs(c *gin.Context) {
	claims, err := h.workflow.AuditLog(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": claims})
}

// ListStages returns every pipeline stage with its assigned users
func (h *Handler) ListStages(c *gin.Context) {
	stages, err := h.users.StagesWithUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

type setStageUsersRequest struct {
	UserIDs []string `json:"user_ids"`
}

// SetStageUsers replaces the set of users assigned to a stage
func (h *Handler) SetStageUsers(c *gin.Context) {
	var req setStageUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := stage.Parse(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.SetStageUsers(c.Request.Context(), s, req.UserIDs); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// ListUsers returns all users
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type createUserRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// CreateUser registers a new user
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone, password and role are required"})
		return
	}

	user, err := h.users.Create(c.Request.Context(), req.Phone, req.Password, req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateUserRole changes a user's role
func (h *Handler) UpdateUserRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role is required"})
		return
	}

	user, err := h.users.UpdateRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// DeleteUser removes a user
func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type createBranchRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

// CreateBranch registers a new branch
func (h *Handler) CreateBranch(c *gin.Context) {
	var req createBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	branch, err := h.orders.CreateBranch(c.Request.Context(), req.Name, req.Address)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"branch": branch})
}
