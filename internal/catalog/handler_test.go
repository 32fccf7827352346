package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(e *Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(e).RegisterRoutes(router.Group(""))
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func TestListEndpoint(t *testing.T) {
	router := newTestRouter(fixedEngine(sampleRecords()...))

	w, body := doRequest(t, router, http.MethodGet, "/catalog?sort=price&order=asc&page=1&page_size=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 5, body["total"])
	assert.EqualValues(t, 3, body["total_pages"])
	items := body["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "p2", first["id"])
}

func TestListEndpointCommaFilters(t *testing.T) {
	router := newTestRouter(fixedEngine(sampleRecords()...))

	w, body := doRequest(t, router, http.MethodGet, "/catalog?rarity=hidden,limited", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["total"])

	// repeated params work too
	w, body = doRequest(t, router, http.MethodGet, "/catalog?rarity=hidden&rarity=limited", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["total"])
}

func TestListEndpointBadParams(t *testing.T) {
	router := newTestRouter(fixedEngine(sampleRecords()...))

	w, _ := doRequest(t, router, http.MethodGet, "/catalog?sort=popularity", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doRequest(t, router, http.MethodGet, "/catalog?min_price=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := doRequest(t, router, http.MethodGet, "/catalog?page=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid page", body["error"])

	w, body = doRequest(t, router, http.MethodGet, "/catalog?page_size=2.5", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid page_size", body["error"])
}

func TestMultiValueLeavesQueryCacheAlone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/catalog?rarity=+rare+&rarity=&rarity=hidden", nil)

	assert.Equal(t, []string{"rare", "hidden"}, multiValue(c, "rarity"))
	assert.Equal(t, []string{" rare ", "", "hidden"}, c.QueryArray("rarity"),
		"gin's cached values must stay as sent")
	assert.Equal(t, []string{"rare", "hidden"}, multiValue(c, "rarity"))
}

func TestGetEndpoint(t *testing.T) {
	router := newTestRouter(fixedEngine(sampleRecords()...))

	w, body := doRequest(t, router, http.MethodGet, "/catalog/p3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Secret Rabbit", body["name"])

	w, body = doRequest(t, router, http.MethodGet, "/catalog/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found", body["error"])
}

func TestSeriesEndpoint(t *testing.T) {
	router := newTestRouter(fixedEngine(sampleRecords()...))

	w, body := doRequest(t, router, http.MethodGet, "/series", "")
	require.Equal(t, http.StatusOK, w.Code)
	series := body["series"].([]any)
	require.Len(t, series, 2)
	first := series[0].(map[string]any)
	assert.Equal(t, "Animal Series", first["series"])
	assert.EqualValues(t, 3, first["count"])
}

func TestResolveEndpoint(t *testing.T) {
	router := newTestRouter(fixedEngine(sampleRecords()...))

	w, body := doRequest(t, router, http.MethodPost, "/resolve", `{"ids":["p1","ghost","p4"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	items := body["items"].([]any)
	assert.Len(t, items, 2)

	w, _ = doRequest(t, router, http.MethodPost, "/resolve", `{"ids":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
