package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"triton-orders/internal/ledger"
	"triton-orders/internal/service"
	"triton-orders/internal/stats"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	ledgerStore := ledger.New(filepath.Join(dir, "orders.xlsx"))
	require.NoError(t, ledgerStore.Initialize())
	statsStore, err := stats.New(filepath.Join(dir, "order-stats.json"))
	require.NoError(t, err)

	router := gin.New()
	handler := NewHandler(service.NewOrderService(ledgerStore, statsStore), 20)
	handler.SetupRoutes(router)
	return router
}

const createOrderBody = `{
	"orderSummary": {
		"Customer Name": "Asha Nair",
		"Phone": "9876543210",
		"Email": "asha@example.com",
		"Order Type": "pickup",
		"Special Instructions": "Extra tahini"
	},
	"items": [
		{"Item Name": "Falafel", "Category": "Starters", "Price (₹)": 250, "Quantity": 2},
		{"Item Name": "Hummus", "Category": "Starters", "Price (₹)": 180, "Quantity": 1}
	]
}`

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getJSON(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createOrder(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := postJSON(router, "/api/create-order", createOrderBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success     bool   `json:"success"`
		Message     string `json:"message"`
		OrderNumber string `json:"orderNumber"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.OrderNumber)
	return resp.OrderNumber
}

func TestCreateOrderEndpoint(t *testing.T) {
	router := newTestRouter(t)

	orderNumber := createOrder(t, router)
	assert.True(t, strings.HasPrefix(orderNumber, "TRI-"))

	w := getJSON(router, "/api/pending-orders")
	require.Equal(t, http.StatusOK, w.Code)

	var pending []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, orderNumber, pending[0]["orderNumber"])
	assert.Equal(t, float64(680), pending[0]["total"])
	assert.Equal(t, "pending", pending[0]["status"])
}

func TestCreateOrderValidationError(t *testing.T) {
	router := newTestRouter(t)

	body := `{
		"orderSummary": {"Customer Name": "", "Phone": "9876543210", "Order Type": "pickup"},
		"items": [{"Item Name": "Falafel", "Category": "Starters", "Price (₹)": 250, "Quantity": 1}]
	}`
	w := postJSON(router, "/api/create-order", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "error")
}

func TestCreateOrderMalformedBody(t *testing.T) {
	router := newTestRouter(t)

	w := postJSON(router, "/api/create-order", `{"orderSummary": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFinishOrderFlow(t *testing.T) {
	router := newTestRouter(t)
	orderNumber := createOrder(t, router)

	w := postJSON(router, "/api/finish-order", `{"orderNumber": "`+orderNumber+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = getJSON(router, "/api/pending-orders")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	// Second completion is rejected.
	w = postJSON(router, "/api/finish-order", `{"orderNumber": "`+orderNumber+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFinishOrderNotFound(t *testing.T) {
	router := newTestRouter(t)

	w := postJSON(router, "/api/finish-order", `{"orderNumber": "TRI-0"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "error")
}

func TestStatsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	orderNumber := createOrder(t, router)
	createOrder(t, router)

	before := fetchStats(t, router)
	require.Equal(t, float64(2), before["pendingOrdersCount"])

	w := postJSON(router, "/api/finish-order", `{"orderNumber": "`+orderNumber+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	after := fetchStats(t, router)
	assert.Equal(t, float64(2), after["totalOrders"])
	assert.Equal(t, float64(1360), after["totalRevenue"])
	assert.Equal(t, float64(2), after["todayOrders"])
	assert.Equal(t, float64(1), after["pendingOrdersCount"])
	assert.Len(t, after["recentOrders"], 2)
}

func fetchStats(t *testing.T, router *gin.Engine) map[string]interface{} {
	t.Helper()
	w := getJSON(router, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestDownloadOrders(t *testing.T) {
	router := newTestRouter(t)
	createOrder(t, router)

	w := getJSON(router, "/api/download-orders")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), exportFilename)
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	router := newTestRouter(t)
	first := createOrder(t, router)
	second := createOrder(t, router)

	w := getJSON(router, "/api/recent-orders")
	require.Equal(t, http.StatusOK, w.Code)

	var recent []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recent))
	require.Len(t, recent, 2)
	assert.Equal(t, second, recent[0]["orderNumber"])
	assert.Equal(t, first, recent[1]["orderNumber"])
}

func TestRequestIDHeader(t *testing.T) {
	router := newTestRouter(t)

	w := getJSON(router, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
