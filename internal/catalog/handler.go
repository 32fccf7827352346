package catalog

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{Engine: engine}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/catalog", h.list)        // GET /catalog?q=...&rarity=rare,hidden&series=...
	rg.GET("/catalog/:id", h.getByID) // GET /catalog/:id
	rg.GET("/series", h.listSeries)   // GET /series
	rg.POST("/resolve", h.resolve)    // POST /resolve {"ids": [...]}
}

func (h *Handler) list(c *gin.Context) {
	q := Query{
		Search:   c.Query("q"),
		Rarities: multiValue(c, "rarity"),
		Series:   multiValue(c, "series"),
		SortBy:   SortKey(c.DefaultQuery("sort", string(SortName))),
		Order:    Order(c.DefaultQuery("order", string(OrderAsc))),
	}

	var err error
	if q.Page, err = parseInt(c.Query("page"), 1); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	if q.PageSize, err = parseInt(c.Query("page_size"), DefaultPageSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page_size"})
		return
	}
	if q.MinPrice, err = parsePrice(c.Query("min_price")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_price"})
		return
	}
	if q.MaxPrice, err = parsePrice(c.Query("max_price")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_price"})
		return
	}

	res, err := h.Engine.Query(q)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":       res.Total,
		"page":        res.Page,
		"total_pages": res.TotalPages,
		"items":       res.Records,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	r, err := h.Engine.GetByID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) listSeries(c *gin.Context) {
	summary, err := h.Engine.SeriesSummary()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"series": summary})
}

type resolveReq struct {
	IDs []string `json:"ids"`
}

func (h *Handler) resolve(c *gin.Context) {
	var req resolveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	items, err := h.Engine.GetByIDs(req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// writeError maps engine error kinds onto HTTP statuses. Internal failures
// keep their detail in the server log, not in the anonymous response.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("[catalog] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// rarity=rare,hidden OR rarity=rare&rarity=hidden
func multiValue(c *gin.Context, key string) []string {
	vals := c.QueryArray(key)
	if len(vals) == 1 && strings.Contains(vals[0], ",") {
		vals = strings.Split(vals[0], ",")
	}
	// QueryArray hands out gin's cached slice; never trim in place.
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseInt(s string, def int) (int, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func parsePrice(s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
