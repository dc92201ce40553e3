package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-inventory-sales/internal/config"
	"go-inventory-sales/internal/repository"
	"go-inventory-sales/internal/service"
	"go-inventory-sales/internal/testutil"
	"go-inventory-sales/pkg/jwt"
)

const (
	ownerEmail    = "owner@example.com"
	ownerPassword = "owner-pass"
)

type testServer struct {
	app *fiber.App
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg := &config.Config{
		Env:            config.EnvDevelopment,
		UploadMaxBytes: service.DefaultUploadMaxBytes,
		Database:       config.DatabaseConfig{AcquireTimeout: 5 * time.Second},
	}
	if mutate != nil {
		mutate(cfg)
	}

	db := testutil.NewDB(t)
	productRepo := repository.NewProductRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	userRepo := repository.NewUserRepo(db)

	auth := service.NewAuthService(userRepo, jwt.NewManager("handler-test-secret", time.Hour, "test"))
	products := service.NewProductService(productRepo, db, nil)

	created, err := auth.SeedOwner(context.Background(), config.OwnerConfig{
		Email:    ownerEmail,
		Username: "owner",
		Password: ownerPassword,
	})
	require.NoError(t, err)
	require.True(t, created)

	app := NewApp(Deps{
		Config:   cfg,
		Log:      zap.NewNop(),
		Auth:     auth,
		Products: products,
		Sales:    service.NewSaleService(productRepo, saleRepo, db, nil),
		Reports:  service.NewReportService(saleRepo),
		Uploads:  service.NewUploadService(repository.NewUploadRepo(db), products, cfg.UploadMaxBytes),
		Users:    service.NewUserService(userRepo),
	})
	return &testServer{app: app}
}

// do sends a request and decodes the JSON response body into out when out is non-nil.
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return s.send(t, req, out)
}

func (s *testServer) send(t *testing.T, req *http.Request, out interface{}) int {
	t.Helper()

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return resp.StatusCode
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	var resp service.AuthResponse
	status := s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": email, "password": password}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	var resp service.AuthResponse
	status := s.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	}, &resp)
	require.Equal(t, http.StatusCreated, status)
	return resp.Token
}

type productBody struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	Stock        int    `json:"stock"`
	ReorderLevel int    `json:"reorder_level"`
}

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Code      string `json:"code"`
	Available *int   `json:"available"`
	Retryable bool   `json:"retryable"`
	Path      string `json:"path"`
}

func (s *testServer) createProduct(t *testing.T, token, name string, stock int, price string) productBody {
	t.Helper()
	var p productBody
	status := s.do(t, http.MethodPost, "/api/products", token, fiber.Map{
		"name":  name,
		"price": price,
		"stock": stock,
	}, &p)
	require.Equal(t, http.StatusCreated, status)
	return p
}

func TestRootHealthAndNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	var root map[string]string
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/", "", nil, &root))
	assert.Equal(t, "running", root["status"])
	assert.Equal(t, apiVersion, root["version"])

	var health map[string]interface{}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", nil, &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, config.EnvDevelopment, health["environment"])

	var missing errorBody
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/nope", "", nil, &missing))
	assert.Equal(t, "Route not found", missing.Error)
	assert.Equal(t, "not_found", missing.Kind)
	assert.Equal(t, "/api/nope", missing.Path)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, nil)

	token := s.register(t, "alice")

	var me struct {
		User struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/auth/me", token, nil, &me))
	assert.Equal(t, "alice", me.User.Username)
	assert.Equal(t, "staff", me.User.Role)

	var errResp errorBody
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "secret123",
	}, &errResp))
	assert.Equal(t, "Email already registered", errResp.Error)

	errResp = errorBody{}
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "alice@example.com",
		"password": "wrong-password",
	}, &errResp))
	assert.Equal(t, "invalid_credentials", errResp.Code)
}

func TestProtectedRoutesRejectBadTokens(t *testing.T) {
	s := newTestServer(t, nil)

	var errResp errorBody
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/products", "", nil, &errResp))
	assert.Equal(t, "authentication_error", errResp.Kind)
	assert.Equal(t, "token_missing", errResp.Code)

	errResp = errorBody{}
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/products", "not-a-jwt", nil, &errResp))
	assert.Equal(t, "token_invalid", errResp.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Token abc")
	errResp = errorBody{}
	assert.Equal(t, http.StatusUnauthorized, s.send(t, req, &errResp))
	assert.Equal(t, "token_invalid", errResp.Code)
}

func TestProductLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	owner := s.login(t, ownerEmail, ownerPassword)
	staff := s.register(t, "bob")

	var errResp errorBody
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/products", staff, fiber.Map{
		"name": "Desk", "price": "150.00", "stock": 4,
	}, &errResp))
	assert.Equal(t, "authorization_error", errResp.Kind)

	created := s.createProduct(t, owner, "Desk", 4, "150.00")
	assert.Equal(t, "150", created.Price)
	assert.Equal(t, 10, created.ReorderLevel)

	var fetched productBody
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/products/"+created.ID, staff, nil, &fetched))
	assert.Equal(t, created, fetched)

	var updated productBody
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/products/"+created.ID, owner, fiber.Map{"stock": 25}, &updated))
	assert.Equal(t, 25, updated.Stock)
	assert.Equal(t, "Desk", updated.Name)
	assert.Equal(t, "150", updated.Price)

	var list []productBody
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/products", staff, nil, &list))
	require.Len(t, list, 1)

	errResp = errorBody{}
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/products/not-a-uuid", staff, nil, &errResp))
	assert.Equal(t, "Invalid product ID", errResp.Error)

	var deleted map[string]string
	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/products/"+created.ID, owner, nil, &deleted))
	assert.Equal(t, "Product deleted successfully", deleted["message"])

	errResp = errorBody{}
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/products/"+created.ID, staff, nil, &errResp))
	assert.Equal(t, "not_found", errResp.Kind)
}

func TestInvalidJSONBody(t *testing.T) {
	s := newTestServer(t, nil)
	owner := s.login(t, ownerEmail, ownerPassword)

	req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewBufferString("{not json"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+owner)

	var errResp errorBody
	assert.Equal(t, http.StatusBadRequest, s.send(t, req, &errResp))
	assert.Equal(t, "Invalid JSON", errResp.Error)
	assert.Equal(t, "validation_error", errResp.Kind)
}

func TestSalesEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	owner := s.login(t, ownerEmail, ownerPassword)
	staff := s.register(t, "carol")

	laptop := s.createProduct(t, owner, "Laptop", 12, "900")

	var sale struct {
		ID           string `json:"id"`
		QuantitySold int    `json:"quantity_sold"`
		TotalAmount  string `json:"total_amount"`
	}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/sales", staff, fiber.Map{
		"product_id":    laptop.ID,
		"quantity_sold": 5,
		"sale_price":    900,
	}, &sale))
	assert.Equal(t, 5, sale.QuantitySold)
	assert.Equal(t, "4500", sale.TotalAmount)

	var errResp errorBody
	require.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/sales", staff, fiber.Map{
		"product_id":    laptop.ID,
		"quantity_sold": 20,
		"sale_price":    900,
	}, &errResp))
	assert.Equal(t, "insufficient_stock", errResp.Kind)
	require.NotNil(t, errResp.Available)
	assert.Equal(t, 7, *errResp.Available)

	var product productBody
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/products/"+laptop.ID, staff, nil, &product))
	assert.Equal(t, 7, product.Stock)

	var sales []map[string]interface{}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/sales", staff, nil, &sales))
	require.Len(t, sales, 1)
	assert.Equal(t, "Laptop", sales[0]["product_name"])

	var fetched map[string]interface{}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/sales/"+sale.ID, staff, nil, &fetched))
	assert.Equal(t, "Laptop", fetched["product_name"])
	assert.Equal(t, "4500", fetched["total_amount"])

	errResp = errorBody{}
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/sales/"+laptop.ID, staff, nil, &errResp))
	assert.Equal(t, "Sale not found", errResp.Error)

	var stats []map[string]interface{}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/sales/stats?days=7", staff, nil, &stats))
	require.Len(t, stats, 1)

	errResp = errorBody{}
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/sales/stats?days=week", staff, nil, &errResp))

	var dashboard map[string]interface{}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/dashboard/stats", staff, nil, &dashboard))
	assert.EqualValues(t, 1, dashboard["total_products"])
}

func TestUploadEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	owner := s.login(t, ownerEmail, ownerPassword)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "products.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("name,sku,price,stock\nMouse,MS-1,25.50,40\n,NO-NAME,1,1\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload?import=products", &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+owner)

	var result service.UploadResult
	require.Equal(t, http.StatusOK, s.send(t, req, &result))
	assert.Equal(t, "csv", result.FileType)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "Imported 1 of 2 rows", result.Message)

	var history []map[string]interface{}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/upload/history", owner, nil, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "products.csv", history[0]["filename"])

	empty := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	empty.Header.Set(fiber.HeaderAuthorization, "Bearer "+owner)
	var errResp errorBody
	assert.Equal(t, http.StatusBadRequest, s.send(t, empty, &errResp))
	assert.Equal(t, "No file uploaded", errResp.Error)
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.AuthRateLimit = 2 })

	body := fiber.Map{"email": "nobody@example.com", "password": "whatever"}
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/auth/login", "", body, nil))
	}

	var errResp errorBody
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodPost, "/api/auth/login", "", body, &errResp))
	assert.Equal(t, "rate_limited", errResp.Kind)
}

func TestUserAdministration(t *testing.T) {
	s := newTestServer(t, nil)
	owner := s.login(t, ownerEmail, ownerPassword)
	staff := s.register(t, "dave")

	var errResp errorBody
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/users", staff, nil, &errResp))
	assert.Equal(t, "authorization_error", errResp.Kind)

	var users []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/users", owner, nil, &users))
	require.Len(t, users, 2)
	assert.Equal(t, "owner", users[0].Username)
	assert.Equal(t, "dave", users[1].Username)

	var promoted struct {
		Role string `json:"role"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/users/"+users[1].ID+"/role", owner, fiber.Map{"role": "OWNER"}, &promoted))
	assert.Equal(t, "owner", promoted.Role)

	errResp = errorBody{}
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/users/"+users[0].ID+"/role", owner, fiber.Map{"role": "staff"}, &errResp))
	assert.Equal(t, "You cannot change your own role", errResp.Error)

	errResp = errorBody{}
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/users/"+users[1].ID+"/role", owner, fiber.Map{"role": "admin"}, &errResp))
	assert.Equal(t, "validation_error", errResp.Kind)

	var roles []roleInfo
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/roles", staff, nil, &roles))
	assert.Len(t, roles, 2)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/users/"+users[1].ID, owner, nil, nil))
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/users/"+users[1].ID, owner, nil, nil))
}

func TestStaleTokenAfterRoleChangeOrDeletion(t *testing.T) {
	s := newTestServer(t, nil)
	owner := s.login(t, ownerEmail, ownerPassword)
	s.register(t, "erin")

	var users []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/users", owner, nil, &users))
	require.Len(t, users, 2)
	erinID := users[1].ID

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/users/"+erinID+"/role", owner, fiber.Map{"role": "owner"}, nil))
	erin := s.login(t, "erin@example.com", "secret123")
	product := s.createProduct(t, erin, "Chair", 3, "40")

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/users/"+erinID+"/role", owner, fiber.Map{"role": "staff"}, nil))

	var errResp errorBody
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/products", erin, fiber.Map{
		"name": "Sofa", "price": "300", "stock": 1,
	}, &errResp))
	assert.Equal(t, "authorization_error", errResp.Kind)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/users/"+erinID, owner, nil, nil))

	errResp = errorBody{}
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/sales", erin, fiber.Map{
		"product_id":    product.ID,
		"quantity_sold": 1,
		"sale_price":    40,
	}, &errResp))
	assert.Equal(t, "authentication_error", errResp.Kind)
	assert.Equal(t, "token_invalid", errResp.Code)
}
