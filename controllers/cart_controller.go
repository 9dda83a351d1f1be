package controllers

import (
	"errors"
	"net/http"

	"checkout-service/middleware"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CartController struct {
	Gateway *services.MutationGateway
	Carts   *services.CartService
	Logger  *zap.Logger
}

func NewCartController(gateway *services.MutationGateway, carts *services.CartService, logger *zap.Logger) *CartController {
	return &CartController{
		Gateway: gateway,
		Carts:   carts,
		Logger:  logger,
	}
}

type addItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Version   int64  `json:"version"`
}

type updateItemRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity *int   `json:"quantity" binding:"required"`
	Version  int64  `json:"version"`
}

type removeItemRequest struct {
	ItemID  string `json:"item_id" binding:"required"`
	Version int64  `json:"version"`
}

// GetCart returns the recomputed cart for the current customer. A customer
// without a cart gets an empty view rather than an error.
func (cc *CartController) GetCart(c *gin.Context) {
	cartKey, err := middleware.GetCartKey(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	view, err := cc.Carts.GetCart(c.Request.Context(), cartKey)
	if err != nil {
		cc.Logger.Error("Failed to get cart", zap.String("cart_key", cartKey), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// AddItem adds a product to the cart (merging with an existing line).
func (cc *CartController) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	cc.apply(c, req.Version, services.CartMutation{
		Op:        services.OpAddItem,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
}

// UpdateItem sets a line's quantity; zero removes the line.
func (cc *CartController) UpdateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item_id"})
		return
	}

	cc.apply(c, req.Version, services.CartMutation{
		Op:       services.OpSetQuantity,
		ItemID:   itemID,
		Quantity: *req.Quantity,
	})
}

// RemoveItem removes a line from the cart.
func (cc *CartController) RemoveItem(c *gin.Context) {
	var req removeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item_id"})
		return
	}

	cc.apply(c, req.Version, services.CartMutation{
		Op:     services.OpRemoveItem,
		ItemID: itemID,
	})
}

// ClearCart removes all items from the cart
func (cc *CartController) ClearCart(c *gin.Context) {
	cartKey, err := middleware.GetCartKey(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := cc.Gateway.Clear(c.Request.Context(), cartKey); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}

// apply runs the mutation and always answers with server truth: the full
// recomputed view on success, and on a version conflict the current view so
// the client can rebase without a second round trip.
func (cc *CartController) apply(c *gin.Context, version int64, m services.CartMutation) {
	cartKey, err := middleware.GetCartKey(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	view, err := cc.Gateway.Apply(c.Request.Context(), cartKey, version, m)
	if err != nil {
		if errors.Is(err, services.ErrVersionConflict) {
			current, getErr := cc.Carts.GetCart(c.Request.Context(), cartKey)
			if getErr == nil {
				c.JSON(http.StatusConflict, gin.H{"error": "version conflict", "cart": current})
				return
			}
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
