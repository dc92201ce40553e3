package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"go-inventory-sales/internal/model"
	"go-inventory-sales/internal/repository"
	"go-inventory-sales/internal/testutil"
	"go-inventory-sales/internal/ws"
	"go-inventory-sales/pkg/jwt"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ws.Event
}

func (p *recordingPublisher) Publish(e ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	events   *recordingPublisher
	users    repository.UserRepository
	products ProductService
	sales    SaleService
	reports  ReportService
	uploads  UploadService
	auth     AuthService
	owner    Identity
	staff    Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	events := &recordingPublisher{}

	productRepo := repository.NewProductRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	userRepo := repository.NewUserRepo(db)

	products := NewProductService(productRepo, db, events)
	f := &fixture{
		db:       db,
		events:   events,
		users:    userRepo,
		products: products,
		sales:    NewSaleService(productRepo, saleRepo, db, events),
		reports:  NewReportService(saleRepo),
		uploads:  NewUploadService(repository.NewUploadRepo(db), products, 0),
		auth:     NewAuthService(userRepo, jwt.NewManager("test-secret", time.Hour, "test")),
	}
	f.owner = f.createUser(t, "owner", model.RoleOwner)
	f.staff = f.createUser(t, "clerk", model.RoleStaff)
	return f
}

func (f *fixture) createUser(t *testing.T, username string, role model.Role) Identity {
	t.Helper()
	user := &model.User{Username: username, Email: username + "@example.com", Role: role}
	require.NoError(t, user.SetPassword("secret123"))
	require.NoError(t, f.users.Create(context.Background(), user))
	return Identity{UserID: user.ID, Username: user.Username, Role: user.Role}
}

func (f *fixture) createProduct(t *testing.T, name string, stock int, price string) *model.Product {
	t.Helper()
	p := decimal.RequireFromString(price)
	product, err := f.products.Create(context.Background(), &CreateProductRequest{
		Name:  name,
		Price: &p,
		Stock: &stock,
	}, f.owner)
	require.NoError(t, err)
	return product
}

func (f *fixture) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var product model.Product
	require.NoError(t, f.db.First(&product, "id = ?", id).Error)
	return product.Stock
}

func (f *fixture) saleCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&model.Sale{}).Count(&count).Error)
	return count
}

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(n int) *int {
	return &n
}

func strPtr(s string) *string {
	return &s
}
