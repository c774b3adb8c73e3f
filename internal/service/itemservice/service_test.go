package itemservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"clinistock/internal/domain"
	apperror "clinistock/internal/errors"
	"clinistock/internal/pkg/logger"
	"clinistock/internal/service/itemservice"
)

const testMaxUnitPrice = 10000.0

// MockItemRepository é uma implementação mock da interface ItemRepository
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) Save(ctx context.Context, item domain.StockItem) (domain.StockItem, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(domain.StockItem), args.Error(1)
}

func (m *MockItemRepository) FindByID(ctx context.Context, id string) (domain.StockItem, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.StockItem), args.Error(1)
}

func (m *MockItemRepository) Update(ctx context.Context, item domain.StockItem) (domain.StockItem, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(domain.StockItem), args.Error(1)
}

func (m *MockItemRepository) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockItemRepository) FindAll(ctx context.Context, filter domain.ItemFilter) ([]domain.StockItem, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.StockItem), args.Error(1)
}

// activeItem monta um item ativo válido para os cenários de atualização.
func activeItem(id string) domain.StockItem {
	return domain.StockItem{
		ID:        id,
		Name:      "Dipirona 500mg",
		Category:  "Medicamentos",
		UnitPrice: 4.75,
		Quantity:  20,
		MinStock:  10,
		MaxStock:  50,
		Supplier:  "Farmadistribuidora",
		IsActive:  true,
		Version:   3,
		CreatedAt: time.Now().UTC().Add(-24 * time.Hour),
		UpdatedAt: time.Now().UTC().Add(-time.Hour),
	}
}

// TestCreateItem_Success testa a criação com atribuição de ID, lifecycle e timestamps.
func TestCreateItem_Success(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	input := domain.StockItem{
		Name:      "  Dipirona 500mg  ", // O serviço deve aparar os campos textuais
		Category:  " Medicamentos ",
		UnitPrice: 4.75,
		Quantity:  20,
		MinStock:  10,
		MaxStock:  50,
		Supplier:  "Farmadistribuidora",
	}

	mockRepo.On("Save", mock.Anything, mock.MatchedBy(func(item domain.StockItem) bool {
		_, uuidErr := uuid.Parse(item.ID)
		return uuidErr == nil &&
			item.Name == "Dipirona 500mg" &&
			item.Category == "Medicamentos" &&
			item.IsActive &&
			item.Version == 1 &&
			!item.CreatedAt.IsZero() &&
			item.CreatedAt.Equal(item.UpdatedAt)
	})).Return(activeItem(uuid.New().String()), nil)

	ctx := context.Background()
	_, err := svc.CreateItem(ctx, input)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// TestCreateItem_Fail_MinAboveMax testa a rejeição de minStock > maxStock.
func TestCreateItem_Fail_MinAboveMax(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	input := activeItem(uuid.New().String())
	input.MinStock = 60
	input.MaxStock = 50

	ctx := context.Background()
	_, err := svc.CreateItem(ctx, input)

	assert.Error(t, err)
	var validationErr *apperror.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, apperror.CodeInvalidStockRange, validationErr.Code)
	// Nenhuma persistência deve acontecer antes da validação.
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestCreateItem_Fail_EmptySupplier testa fornecedor vazio após o trim.
func TestCreateItem_Fail_EmptySupplier(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	input := activeItem(uuid.New().String())
	input.Supplier = "   "

	ctx := context.Background()
	_, err := svc.CreateItem(ctx, input)

	assert.Error(t, err)
	var validationErr *apperror.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, apperror.CodeEmptyRequiredField, validationErr.Code)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestCreateItem_Fail_PriceAboveCeiling testa o teto configurável de preço.
func TestCreateItem_Fail_PriceAboveCeiling(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	input := activeItem(uuid.New().String())
	input.UnitPrice = testMaxUnitPrice + 0.01

	ctx := context.Background()
	_, err := svc.CreateItem(ctx, input)

	assert.Error(t, err)
	var validationErr *apperror.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, apperror.CodeInvalidPrice, validationErr.Code)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestCreateItem_Fail_NegativeQuantity testa a rejeição de quantidade negativa.
func TestCreateItem_Fail_NegativeQuantity(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	input := activeItem(uuid.New().String())
	input.Quantity = -1

	ctx := context.Background()
	_, err := svc.CreateItem(ctx, input)

	assert.Error(t, err)
	var validationErr *apperror.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, apperror.CodeInvalidQuantity, validationErr.Code)
	mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestUpdateItem_Success_PartialPatch testa que campos não informados no patch
// mantêm os valores atuais do registro.
func TestUpdateItem_Success_PartialPatch(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	id := uuid.New().String()
	current := activeItem(id)

	newName := "Dipirona 1g"
	patch := domain.ItemPatch{Name: &newName}

	mockRepo.On("FindByID", mock.Anything, id).Return(current, nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(item domain.StockItem) bool {
		// Só o nome muda; os demais campos (e a versão lida) são preservados.
		return item.Name == newName &&
			item.Category == current.Category &&
			item.Quantity == current.Quantity &&
			item.MinStock == current.MinStock &&
			item.MaxStock == current.MaxStock &&
			item.Version == current.Version
	})).Return(current, nil)

	ctx := context.Background()
	_, err := svc.UpdateItem(ctx, id, patch)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// TestUpdateItem_Fail_JointInvariant testa que um patch individualmente válido
// é rejeitado quando o resultado COMBINADO viola minStock <= maxStock.
func TestUpdateItem_Fail_JointInvariant(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	id := uuid.New().String()
	current := activeItem(id) // MinStock = 10

	// maxStock = 5 parece válido isolado, mas fica abaixo do MinStock existente.
	newMax := 5
	patch := domain.ItemPatch{MaxStock: &newMax}

	mockRepo.On("FindByID", mock.Anything, id).Return(current, nil)

	ctx := context.Background()
	_, err := svc.UpdateItem(ctx, id, patch)

	assert.Error(t, err)
	var validationErr *apperror.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, apperror.CodeInvalidStockRange, validationErr.Code)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// TestUpdateItem_Fail_InactiveItem testa que item desativado não aceita mutações.
func TestUpdateItem_Fail_InactiveItem(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	id := uuid.New().String()
	current := activeItem(id)
	current.IsActive = false

	newName := "Novo Nome"
	mockRepo.On("FindByID", mock.Anything, id).Return(current, nil)

	ctx := context.Background()
	_, err := svc.UpdateItem(ctx, id, domain.ItemPatch{Name: &newName})

	assert.Error(t, err)
	assert.IsType(t, &apperror.NotFoundError{}, err)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// TestSetQuantity_Success testa a definição absoluta de quantidade.
func TestSetQuantity_Success(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	id := uuid.New().String()
	current := activeItem(id)
	expected := current
	expected.Quantity = 7
	expected.Version = current.Version + 1

	mockRepo.On("FindByID", mock.Anything, id).Return(current, nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(item domain.StockItem) bool {
		return item.Quantity == 7 && item.Version == current.Version
	})).Return(expected, nil)

	ctx := context.Background()
	result, err := svc.SetQuantity(ctx, id, 7)

	assert.NoError(t, err)
	assert.Equal(t, 7, result.Quantity)
	mockRepo.AssertExpectations(t)
}

// TestSetQuantity_Fail_Negative testa a rejeição de quantidade negativa
// antes de qualquer acesso ao repositório.
func TestSetQuantity_Fail_Negative(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	ctx := context.Background()
	_, err := svc.SetQuantity(ctx, uuid.New().String(), -3)

	assert.Error(t, err)
	var validationErr *apperror.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, apperror.CodeInvalidQuantity, validationErr.Code)
	mockRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// TestSetQuantity_RetryOnConflict testa que um conflito de OCC é resolvido
// recarregando a versão e reaplicando o SET absoluto.
func TestSetQuantity_RetryOnConflict(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	id := uuid.New().String()
	stale := activeItem(id) // Version 3

	fresh := stale
	fresh.Version = 4 // Outra escrita commitou nesse meio tempo

	applied := fresh
	applied.Quantity = 7
	applied.Version = 5

	mockRepo.On("FindByID", mock.Anything, id).Return(stale, nil).Once()
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(item domain.StockItem) bool {
		return item.Version == stale.Version
	})).Return(domain.StockItem{}, apperror.NewConflictError("O item foi modificado por outra operação. Tente novamente.")).Once()

	mockRepo.On("FindByID", mock.Anything, id).Return(fresh, nil).Once()
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(item domain.StockItem) bool {
		return item.Version == fresh.Version && item.Quantity == 7
	})).Return(applied, nil).Once()

	ctx := context.Background()
	result, err := svc.SetQuantity(ctx, id, 7)

	// Semântica de SET absoluto: o valor final é exatamente o solicitado,
	// nunca um terceiro valor corrompido.
	assert.NoError(t, err)
	assert.Equal(t, 7, result.Quantity)
	mockRepo.AssertExpectations(t)
}

// TestSoftDelete_Success testa o soft delete de um item existente.
func TestSoftDelete_Success(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	id := uuid.New().String()
	mockRepo.On("SoftDelete", mock.Anything, id).Return(nil)

	ctx := context.Background()
	err := svc.SoftDelete(ctx, id)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// TestSoftDelete_Fail_NotFound testa id desconhecido (ou já inativo).
func TestSoftDelete_Fail_NotFound(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	id := uuid.New().String()
	mockRepo.On("SoftDelete", mock.Anything, id).Return(apperror.NewNotFoundError("Item ativo não encontrado."))

	ctx := context.Background()
	err := svc.SoftDelete(ctx, id)

	assert.Error(t, err)
	assert.IsType(t, &apperror.NotFoundError{}, err)
	mockRepo.AssertExpectations(t)
}

// TestGetItemByID_Fail_Inactive testa que a busca ativa não enxerga itens desativados.
func TestGetItemByID_Fail_Inactive(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	id := uuid.New().String()
	inactive := activeItem(id)
	inactive.IsActive = false

	mockRepo.On("FindByID", mock.Anything, id).Return(inactive, nil)

	ctx := context.Background()
	_, err := svc.GetItemByID(ctx, id)

	assert.Error(t, err)
	assert.IsType(t, &apperror.NotFoundError{}, err)
	mockRepo.AssertExpectations(t)
}

// TestMarkRuptured_SetsZero testa a ação rápida de ruptura (quantidade 0).
func TestMarkRuptured_SetsZero(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	id := uuid.New().String()
	current := activeItem(id)
	ruptured := current
	ruptured.Quantity = 0
	ruptured.Version = current.Version + 1

	mockRepo.On("FindByID", mock.Anything, id).Return(current, nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(item domain.StockItem) bool {
		return item.Quantity == 0
	})).Return(ruptured, nil)

	ctx := context.Background()
	result, err := svc.MarkRuptured(ctx, id)

	assert.NoError(t, err)
	assert.Equal(t, 0, result.Quantity)
	mockRepo.AssertExpectations(t)
}

// TestApplyOptimalRestock_UsesMinStock testa que a ação rápida calcula o alvo
// a partir do MinStock atual do item (round(10 * 1.2) = 12).
func TestApplyOptimalRestock_UsesMinStock(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	id := uuid.New().String()
	current := activeItem(id) // MinStock = 10
	restocked := current
	restocked.Quantity = 12
	restocked.Version = current.Version + 1

	mockRepo.On("FindByID", mock.Anything, id).Return(current, nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(item domain.StockItem) bool {
		return item.Quantity == 12
	})).Return(restocked, nil)

	ctx := context.Background()
	result, err := svc.ApplyOptimalRestock(ctx, id)

	assert.NoError(t, err)
	assert.Equal(t, 12, result.Quantity)
	mockRepo.AssertExpectations(t)
}

// TestApplySafetyStock_UsesMinStock testa o alvo de segurança (round(10 * 0.2) = 2).
func TestApplySafetyStock_UsesMinStock(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	id := uuid.New().String()
	current := activeItem(id) // MinStock = 10
	applied := current
	applied.Quantity = 2
	applied.Version = current.Version + 1

	mockRepo.On("FindByID", mock.Anything, id).Return(current, nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(item domain.StockItem) bool {
		return item.Quantity == 2
	})).Return(applied, nil)

	ctx := context.Background()
	result, err := svc.ApplySafetyStock(ctx, id)

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Quantity)
	mockRepo.AssertExpectations(t)
}

// TestListActive_PassesFilters testa o repasse de busca e categoria ao repositório.
func TestListActive_PassesFilters(t *testing.T) {
	mockRepo := new(MockItemRepository)
	mockLogger := logger.NewLogger("debug")

	svc := itemservice.NewService(mockRepo, mockLogger, testMaxUnitPrice)

	expected := []domain.StockItem{activeItem(uuid.New().String())}
	mockRepo.On("FindAll", mock.Anything, domain.ItemFilter{Search: "dipirona", Category: "Medicamentos"}).
		Return(expected, nil)

	ctx := context.Background()
	items, err := svc.ListActive(ctx, " dipirona ", " Medicamentos ")

	assert.NoError(t, err)
	assert.Equal(t, expected, items)
	mockRepo.AssertExpectations(t)
}
