package reportservice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"clinistock/internal/domain"
	"clinistock/internal/pkg/logger"
	"clinistock/internal/service/reportservice"
)

// MockReportRepository é uma implementação mock da interface ReportRepository
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) FindAll(ctx context.Context, filter domain.ItemFilter) ([]domain.StockItem, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.StockItem), args.Error(1)
}

func (m *MockReportRepository) FindLowStock(ctx context.Context) ([]domain.StockItem, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.StockItem), args.Error(1)
}

func (m *MockReportRepository) FindOutOfStock(ctx context.Context) ([]domain.StockItem, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.StockItem), args.Error(1)
}

func (m *MockReportRepository) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]domain.StockItem, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.StockItem), args.Error(1)
}

func (m *MockReportRepository) DistinctCategories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func newTestService(repo *MockReportRepository, defaults []string) *reportservice.Service {
	return reportservice.NewService(repo, logger.NewLogger("debug"), defaults, 30)
}

func statItem(quantity, minStock, maxStock int, unitPrice float64) domain.StockItem {
	return domain.StockItem{
		ID:        uuid.New().String(),
		Name:      "Item",
		Category:  "Medicamentos",
		UnitPrice: unitPrice,
		Quantity:  quantity,
		MinStock:  minStock,
		MaxStock:  maxStock,
		Supplier:  "Fornecedor",
		IsActive:  true,
	}
}

// TestGetStats_Success testa a agregação completa: contagens por status via
// classificador e totalValue com arredondamento half-away-from-zero a 2 casas.
func TestGetStats_Success(t *testing.T) {
	mockRepo := new(MockReportRepository)
	svc := newTestService(mockRepo, []string{"Medicamentos", "Equipamentos"})

	snapshot := []domain.StockItem{
		statItem(0, 10, 50, 99.99),  // OUT_OF_STOCK, valor 0
		statItem(5, 10, 50, 3.33),   // LOW, valor 16.65
		statItem(21, 10, 50, 0.005), // NORMAL, valor 0.105
		statItem(45, 10, 50, 1.00),  // HIGH, valor 45
	}
	// Σ = 61.755 -> 61.76 (metade arredonda para longe do zero)

	mockRepo.On("FindAll", mock.Anything, domain.ItemFilter{}).Return(snapshot, nil)
	mockRepo.On("FindExpiringBetween", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.StockItem{snapshot[1], snapshot[3]}, nil)
	mockRepo.On("DistinctCategories", mock.Anything).Return([]string{"Medicamentos"}, nil)

	ctx := context.Background()
	stats := svc.GetStats(ctx)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.LowStockCount)
	assert.Equal(t, 1, stats.OutOfStockCount)
	assert.Equal(t, 2, stats.ExpiringSoonCount)
	assert.Equal(t, 61.76, stats.TotalValue)
	assert.Equal(t, 2, stats.CategoriesCount) // Padrões + descoberta deduplicada
	mockRepo.AssertExpectations(t)
}

// TestGetStats_Degraded_StoreFailure testa a degradação para o objeto zerado.
func TestGetStats_Degraded_StoreFailure(t *testing.T) {
	mockRepo := new(MockReportRepository)
	svc := newTestService(mockRepo, nil)

	storeErr := errors.New("connection refused")
	mockRepo.On("FindAll", mock.Anything, domain.ItemFilter{}).Return([]domain.StockItem{}, storeErr)

	ctx := context.Background()
	stats := svc.GetStats(ctx)

	assert.Equal(t, domain.Stats{}, stats)
	// Com o snapshot indisponível, nenhuma sub-consulta deve ser feita.
	mockRepo.AssertNotCalled(t, "FindExpiringBetween", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "DistinctCategories", mock.Anything)
}

// TestGetLowStock_Degraded_StoreFailure testa a degradação para lista vazia.
func TestGetLowStock_Degraded_StoreFailure(t *testing.T) {
	mockRepo := new(MockReportRepository)
	svc := newTestService(mockRepo, nil)

	mockRepo.On("FindLowStock", mock.Anything).Return([]domain.StockItem{}, errors.New("timeout"))

	ctx := context.Background()
	items := svc.GetLowStock(ctx)

	// Contrato: resposta vazia bem-sucedida, nunca nil nem erro ao chamador.
	assert.NotNil(t, items)
	assert.Len(t, items, 0)
	mockRepo.AssertExpectations(t)
}

// TestGetOutOfStock_Degraded_StoreFailure testa a degradação para lista vazia.
func TestGetOutOfStock_Degraded_StoreFailure(t *testing.T) {
	mockRepo := new(MockReportRepository)
	svc := newTestService(mockRepo, nil)

	mockRepo.On("FindOutOfStock", mock.Anything).Return([]domain.StockItem{}, errors.New("timeout"))

	ctx := context.Background()
	items := svc.GetOutOfStock(ctx)

	assert.NotNil(t, items)
	assert.Len(t, items, 0)
	mockRepo.AssertExpectations(t)
}

// TestGetExpiringSoon_WindowBounds testa os limites da janela: [hoje, hoje+N],
// com "hoje" truncado para a data de calendário (UTC) e fixado uma única vez.
func TestGetExpiringSoon_WindowBounds(t *testing.T) {
	mockRepo := new(MockReportRepository)
	svc := newTestService(mockRepo, nil)

	expected := []domain.StockItem{statItem(5, 10, 50, 1.0)}

	mockRepo.On("FindExpiringBetween", mock.Anything,
		mock.MatchedBy(func(from time.Time) bool {
			now := time.Now().UTC()
			midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			return from.Equal(midnight)
		}),
		mock.MatchedBy(func(to time.Time) bool {
			now := time.Now().UTC()
			midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			return to.Equal(midnight.AddDate(0, 0, 15))
		}),
	).Return(expected, nil)

	ctx := context.Background()
	items := svc.GetExpiringSoon(ctx, 15)

	assert.Equal(t, expected, items)
	mockRepo.AssertExpectations(t)
}

// TestGetExpiringSoon_DefaultWindow testa que windowDays <= 0 usa a janela padrão (30).
func TestGetExpiringSoon_DefaultWindow(t *testing.T) {
	mockRepo := new(MockReportRepository)
	svc := newTestService(mockRepo, nil)

	mockRepo.On("FindExpiringBetween", mock.Anything, mock.Anything,
		mock.MatchedBy(func(to time.Time) bool {
			now := time.Now().UTC()
			midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			return to.Equal(midnight.AddDate(0, 0, 30))
		}),
	).Return([]domain.StockItem{}, nil)

	ctx := context.Background()
	svc.GetExpiringSoon(ctx, 0)

	mockRepo.AssertExpectations(t)
}

// TestGetExpiringSoon_Degraded_StoreFailure testa a degradação para lista vazia.
func TestGetExpiringSoon_Degraded_StoreFailure(t *testing.T) {
	mockRepo := new(MockReportRepository)
	svc := newTestService(mockRepo, nil)

	mockRepo.On("FindExpiringBetween", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.StockItem{}, errors.New("timeout"))

	ctx := context.Background()
	items := svc.GetExpiringSoon(ctx, 30)

	assert.NotNil(t, items)
	assert.Len(t, items, 0)
	mockRepo.AssertExpectations(t)
}

// TestGetCategories_NormalizesAndMerges testa trim, descarte de vazios,
// deduplicação sem caixa (mantendo a grafia vista primeiro) e ordenação.
func TestGetCategories_NormalizesAndMerges(t *testing.T) {
	mockRepo := new(MockReportRepository)
	svc := newTestService(mockRepo, []string{"Medicamentos"})

	mockRepo.On("DistinctCategories", mock.Anything).
		Return([]string{"  Equipamentos ", "", "   ", "medicamentos", "Antibióticos"}, nil)

	ctx := context.Background()
	categories := svc.GetCategories(ctx)

	// "medicamentos" duplica o padrão "Medicamentos" (sem caixa): a grafia
	// vista primeiro (a do padrão injetado) é mantida.
	assert.Equal(t, []string{"Antibióticos", "Equipamentos", "Medicamentos"}, categories)
	mockRepo.AssertExpectations(t)
}

// TestGetCategories_Degraded_StoreFailure testa a degradação para a lista de padrões.
func TestGetCategories_Degraded_StoreFailure(t *testing.T) {
	mockRepo := new(MockReportRepository)
	svc := newTestService(mockRepo, []string{"Medicamentos", "Equipamentos"})

	mockRepo.On("DistinctCategories", mock.Anything).Return([]string{}, errors.New("timeout"))

	ctx := context.Background()
	categories := svc.GetCategories(ctx)

	assert.Equal(t, []string{"Equipamentos", "Medicamentos"}, categories)
	mockRepo.AssertExpectations(t)
}

// TestGetCategories_Empty testa catálogo sem itens e sem padrões configurados.
func TestGetCategories_Empty(t *testing.T) {
	mockRepo := new(MockReportRepository)
	svc := newTestService(mockRepo, nil)

	mockRepo.On("DistinctCategories", mock.Anything).Return([]string{}, nil)

	ctx := context.Background()
	categories := svc.GetCategories(ctx)

	assert.NotNil(t, categories)
	assert.Len(t, categories, 0)
	mockRepo.AssertExpectations(t)
}
