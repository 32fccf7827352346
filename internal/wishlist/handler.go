package wishlist

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"figurehub/internal/auth"
	"figurehub/internal/catalog"
	"figurehub/internal/notify"
	"figurehub/pkg/models"
)

type Handler struct {
	Repo    *Repo
	Catalog *catalog.Engine
	Hub     *notify.Hub
}

func NewHandler(repo *Repo, cat *catalog.Engine, hub *notify.Hub) *Handler {
	return &Handler{Repo: repo, Catalog: cat, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/wishlist", h.list)
	rg.POST("/wishlist", h.addOrUpdate)
	rg.PUT("/wishlist/:product_id", h.addOrUpdate)
	rg.GET("/wishlist/:product_id", h.getOne)
	rg.DELETE("/wishlist/:product_id", h.remove)
}

type upsertReq struct {
	ProductID string `json:"product_id"` // required for POST
	Status    string `json:"status"`
}

func (h *Handler) addOrUpdate(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req upsertReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		productID = strings.TrimSpace(c.Param("product_id"))
	}
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id required"})
		return
	}

	status := normalizeStatus(req.Status)
	if status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of: wanted, ordered, owned"})
		return
	}

	// The wishlist stores id references only, but adding an id the catalog
	// does not know about is almost always a client bug.
	if _, err := h.Catalog.GetByID(productID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown product"})
		return
	}

	item := models.WishlistItem{UserID: claims.UserID(), ProductID: productID, Status: status}
	if err := h.Repo.Upsert(c.Request.Context(), item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	saved, err := h.Repo.Get(c.Request.Context(), claims.UserID(), productID)
	if err != nil || saved == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch saved failed"})
		return
	}

	if h.Hub != nil {
		go h.Hub.BroadcastJSON(notify.Event{
			Type:      notify.WishlistUpdated,
			UserID:    claims.UserID(),
			ProductID: productID,
			At:        time.Now().UTC(),
		})
	}

	c.JSON(http.StatusOK, saved)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	status := strings.TrimSpace(c.Query("status"))
	if status != "" {
		status = normalizeStatus(status)
		if status == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
	}

	items, err := h.Repo.List(c.Request.Context(), claims.UserID(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	resp := gin.H{"total": len(items), "items": items}

	// ?resolve=true joins the id references against the catalog.
	if c.Query("resolve") == "true" {
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		products, err := h.Catalog.GetByIDs(ids)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "resolve failed"})
			return
		}
		resp["products"] = products
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getOne(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	productID := strings.TrimSpace(c.Param("product_id"))
	it, err := h.Repo.Get(c.Request.Context(), claims.UserID(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if it == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *Handler) remove(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	productID := strings.TrimSpace(c.Param("product_id"))
	if productID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id required"})
		return
	}

	ok, err := h.Repo.Delete(c.Request.Context(), claims.UserID(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if h.Hub != nil {
		go h.Hub.BroadcastJSON(notify.Event{
			Type:      notify.WishlistRemoved,
			UserID:    claims.UserID(),
			ProductID: productID,
			At:        time.Now().UTC(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wanted", "wish", "wishlist":
		return "wanted"
	case "ordered", "preordered":
		return "ordered"
	case "owned", "have":
		return "owned"
	default:
		return ""
	}
}
