package application

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	catalogDomain "github.com/davicafu/tiendalab/internal/catalog/domain"
	"github.com/davicafu/tiendalab/tests/mocks"
)

func newTestProductService() (*ProductService, *mocks.InMemoryProductRepo) {
	repo := mocks.NewInMemoryProductRepo()
	return NewProductService(repo, zap.NewNop()), repo
}

func TestCreateProduct_EmitsCreatedFact(t *testing.T) {
	service, repo := newTestProductService()

	p, err := service.CreateProduct(context.Background(), "SKU-001", "Teclado mecánico", "Switches rojos",
		decimal.RequireFromString("45.50"), 10)
	require.NoError(t, err)

	require.Len(t, repo.Outbox, 1)
	evt := repo.Outbox[0]
	assert.Equal(t, catalogDomain.ProductCreatedEvent, evt.EventType)
	assert.Equal(t, p.SKU, evt.AggregateID)
	assert.Equal(t, p.SKU, evt.CorrelationID)
}

func TestCreateProduct_DuplicateSKU(t *testing.T) {
	service, repo := newTestProductService()
	ctx := context.Background()

	_, err := service.CreateProduct(ctx, "SKU-002", "Ratón", "", decimal.RequireFromString("19.99"), 5)
	require.NoError(t, err)

	_, err = service.CreateProduct(ctx, "SKU-002", "Otro ratón", "", decimal.RequireFromString("25.00"), 3)
	assert.ErrorIs(t, err, catalogDomain.ErrProductAlreadyExists)
	assert.Len(t, repo.Outbox, 1)
}

func TestStockMutations(t *testing.T) {
	service, repo := newTestProductService()
	ctx := context.Background()

	p, err := service.CreateProduct(ctx, "SKU-003", "Monitor", "", decimal.RequireFromString("199.00"), 4)
	require.NoError(t, err)

	p, err = service.DecreaseStock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, p.StockQuantity)

	// El fallo de dominio no persiste ni publica nada.
	before := len(repo.Outbox)
	_, err = service.DecreaseStock(ctx, p.ID, 5)
	assert.ErrorIs(t, err, catalogDomain.ErrInsufficientStock)
	assert.Len(t, repo.Outbox, before)

	p, err = service.IncreaseStock(ctx, p.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 7, p.StockQuantity)

	assert.Equal(t, catalogDomain.ProductUpdatedEvent, repo.Outbox[len(repo.Outbox)-1].EventType)
}

func TestDeleteProduct_EmitsDeletedFact(t *testing.T) {
	service, repo := newTestProductService()
	ctx := context.Background()

	p, err := service.CreateProduct(ctx, "SKU-004", "Webcam", "", decimal.RequireFromString("39.00"), 2)
	require.NoError(t, err)

	require.NoError(t, service.DeleteProduct(ctx, p.ID))

	_, err = service.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, catalogDomain.ErrProductNotFound)
	assert.Equal(t, catalogDomain.ProductDeletedEvent, repo.Outbox[len(repo.Outbox)-1].EventType)
}

func TestToFact_SnapshotsProduct(t *testing.T) {
	service, _ := newTestProductService()

	p, err := service.CreateProduct(context.Background(), "SKU-005", "Altavoz", "", decimal.RequireFromString("59.00"), 8)
	require.NoError(t, err)

	fact := ToFact(p)
	assert.Equal(t, p.SKU, fact.SKU)
	assert.True(t, fact.Price.Equal(p.Price))
	assert.Equal(t, p.StockQuantity, fact.StockQuantity)
	assert.True(t, fact.Active)
	assert.Equal(t, p.SKU, fact.PartitionKey())
}
