package itemservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"errors"

	"github.com/google/uuid"

	"clinistock/internal/domain"
	apperror "clinistock/internal/errors"
	"clinistock/internal/pkg/logger"
)

// ItemRepository define o contrato que o Serviço de Itens espera da camada de
// Persistência. O repositório usa context.Context nativo por ser infraestrutura.
type ItemRepository interface {
	Save(ctx context.Context, item domain.StockItem) (domain.StockItem, error)
	FindByID(ctx context.Context, id string) (domain.StockItem, error)
	Update(ctx context.Context, item domain.StockItem) (domain.StockItem, error)
	SoftDelete(ctx context.Context, id string) error
	FindAll(ctx context.Context, filter domain.ItemFilter) ([]domain.StockItem, error)
}

// Tentativas de SetQuantity sob conflito de OCC. Como a operação é um SET
// absoluto (idempotente), reexecutar após recarregar a versão é seguro.
const setQuantityMaxAttempts = 3

// Service é o único escritor do catálogo de inventário: valida os invariantes
// do item em conjunto e aplica criação, atualização, definição de quantidade e
// soft delete. Erros de escrita NUNCA são mascarados; mascarar uma falha aqui
// corromperia silenciosamente a verdade do inventário.
type Service struct {
	repo         ItemRepository
	logger       logger.Logger
	maxUnitPrice float64 // Teto configurável do preço unitário
}

// NewService cria e retorna uma nova instância do Serviço de Itens.
func NewService(repo ItemRepository, logger logger.Logger, maxUnitPrice float64) *Service {
	return &Service{repo: repo, logger: logger, maxUnitPrice: maxUnitPrice}
}

// CreateItem valida todos os invariantes do item em conjunto e o persiste.
// O serviço é dono de ID, IsActive, Version e timestamps.
func (s *Service) CreateItem(ctx domain.Context, item domain.StockItem) (domain.StockItem, error) {
	s.logger.Debug("Iniciando criação de item no serviço.", map[string]interface{}{"name": item.Name})

	item = normalize(item)
	if err := s.validate(item); err != nil {
		s.logger.Warn("Falha na validação do item na criação.", map[string]interface{}{"name": item.Name, "error": err.Error()})
		return domain.StockItem{}, err
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.IsActive = true
	item.Version = 1
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para CreateItem", nil)
	}

	created, err := s.repo.Save(ctxGo, item)
	if err != nil {
		s.logger.Error("Falha ao salvar item no repositório.", err)
		return domain.StockItem{}, err
	}

	s.logger.Info("Item criado com sucesso.", map[string]interface{}{"id": created.ID, "name": created.Name})
	return created, nil
}

// UpdateItem mescla o patch sobre o registro atual e revalida o resultado
// COMBINADO: um patch que sozinho parece válido (e.g., só reduz maxStock) deve
// falhar se o conjunto violar minStock <= maxStock.
func (s *Service) UpdateItem(ctx domain.Context, id string, patch domain.ItemPatch) (domain.StockItem, error) {
	s.logger.Debug("Iniciando atualização de item no serviço.", map[string]interface{}{"id": id})

	if _, err := uuid.Parse(id); err != nil {
		return domain.StockItem{}, apperror.NewValidationError("O ID do item deve ser um UUID válido.")
	}

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para UpdateItem", nil)
	}

	current, err := s.repo.FindByID(ctxGo, id)
	if err != nil {
		return domain.StockItem{}, err
	}
	if !current.IsActive {
		// Soft delete é terminal: item inativo não aceita mais mutações.
		return domain.StockItem{}, apperror.NewNotFoundError(fmt.Sprintf("Item ativo %s não encontrado.", id))
	}

	merged := normalize(patch.ApplyTo(current))
	if err := s.validate(merged); err != nil {
		s.logger.Warn("Patch rejeitado: resultado combinado viola invariantes.", map[string]interface{}{"id": id, "error": err.Error()})
		return domain.StockItem{}, err
	}

	updated, err := s.repo.Update(ctxGo, merged)
	if err != nil {
		s.logger.Error("Falha ao atualizar item no repositório.", err)
		return domain.StockItem{}, err
	}

	s.logger.Info("Item atualizado com sucesso.", map[string]interface{}{"id": updated.ID, "new_version": updated.Version})
	return updated, nil
}

// SetQuantity define a quantidade ABSOLUTA do item (não é um delta).
// Rejeita valores negativos. Sob conflito de OCC, recarrega e tenta de novo:
// a semântica de SET garante last-committed-write-wins sem corrupção.
func (s *Service) SetQuantity(ctx domain.Context, id string, quantity int) (domain.StockItem, error) {
	s.logger.Debug("Iniciando definição de quantidade no serviço.", map[string]interface{}{"id": id, "quantity": quantity})

	if quantity < 0 {
		return domain.StockItem{}, apperror.NewInvariantError(apperror.CodeInvalidQuantity, "A quantidade não pode ser negativa.")
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.StockItem{}, apperror.NewValidationError("O ID do item deve ser um UUID válido.")
	}

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para SetQuantity", nil)
	}

	var lastErr error
	for attempt := 1; attempt <= setQuantityMaxAttempts; attempt++ {
		current, err := s.repo.FindByID(ctxGo, id)
		if err != nil {
			return domain.StockItem{}, err
		}
		if !current.IsActive {
			return domain.StockItem{}, apperror.NewNotFoundError(fmt.Sprintf("Item ativo %s não encontrado.", id))
		}

		current.Quantity = quantity
		updated, err := s.repo.Update(ctxGo, current)
		if err == nil {
			s.logger.Info("Quantidade definida com sucesso.", map[string]interface{}{
				"id":           updated.ID,
				"new_quantity": updated.Quantity,
				"new_version":  updated.Version,
			})
			return updated, nil
		}

		var conflictErr *apperror.ConflictError
		if !errors.As(err, &conflictErr) {
			s.logger.Error("Falha ao definir quantidade no repositório.", err)
			return domain.StockItem{}, err
		}

		lastErr = err
		s.logger.Warn("Conflito de OCC ao definir quantidade; recarregando e tentando novamente.", map[string]interface{}{
			"id":      id,
			"attempt": attempt,
		})
	}

	s.logger.Error("Conflitos de OCC persistentes ao definir quantidade.", lastErr)
	return domain.StockItem{}, lastErr
}

// SoftDelete marca o item como inativo. O registro permanece para histórico e
// auditoria; a transição não é reversível pelo contrato público.
func (s *Service) SoftDelete(ctx domain.Context, id string) error {
	s.logger.Debug("Iniciando soft delete de item no serviço.", map[string]interface{}{"id": id})

	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID do item deve ser um UUID válido.")
	}

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para SoftDelete", nil)
	}

	if err := s.repo.SoftDelete(ctxGo, id); err != nil {
		s.logger.Error("Falha ao desativar item no repositório.", err)
		return err
	}

	s.logger.Info("Item desativado com sucesso.", map[string]interface{}{"id": id})
	return nil
}

// GetItemByID busca um item ativo pelo ID.
func (s *Service) GetItemByID(ctx domain.Context, id string) (domain.StockItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.StockItem{}, apperror.NewValidationError("O ID do item deve ser um UUID válido.")
	}

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para GetItemByID", nil)
	}

	item, err := s.repo.FindByID(ctxGo, id)
	if err != nil {
		return domain.StockItem{}, err
	}
	if !item.IsActive {
		return domain.StockItem{}, apperror.NewNotFoundError(fmt.Sprintf("Item ativo %s não encontrado.", id))
	}
	return item, nil
}

// ListActive lista os itens ativos, com busca textual e filtro de categoria
// opcionais. Diferente dos relatórios, falhas aqui PROPAGAM ao chamador.
func (s *Service) ListActive(ctx domain.Context, search, category string) ([]domain.StockItem, error) {
	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para ListActive", nil)
	}

	items, err := s.repo.FindAll(ctxGo, domain.ItemFilter{
		Search:   strings.TrimSpace(search),
		Category: strings.TrimSpace(category),
	})
	if err != nil {
		s.logger.Error("Falha ao listar itens ativos no repositório.", err)
		return nil, err
	}
	return items, nil
}

// ListForAudit lista TODOS os itens, inclusive inativos. É a única leitura que
// enxerga registros desativados (consulta de auditoria).
func (s *Service) ListForAudit(ctx domain.Context) ([]domain.StockItem, error) {
	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para ListForAudit", nil)
	}

	items, err := s.repo.FindAll(ctxGo, domain.ItemFilter{IncludeInactive: true})
	if err != nil {
		s.logger.Error("Falha ao listar itens para auditoria no repositório.", err)
		return nil, err
	}
	return items, nil
}

// --- Ações rápidas do operador (calculadoras de reposição) ---
// São disparadas explicitamente pelo operador; nunca rodam em agenda e nunca
// acionam sistemas externos de compra. Todas delegam para SetQuantity.

// ApplySafetyStock define a quantidade do item para o estoque de segurança
// calculado a partir do MinStock atual.
func (s *Service) ApplySafetyStock(ctx domain.Context, id string) (domain.StockItem, error) {
	item, err := s.GetItemByID(ctx, id)
	if err != nil {
		return domain.StockItem{}, err
	}
	return s.SetQuantity(ctx, id, domain.SafetyStock(item.MinStock))
}

// ApplyOptimalRestock define a quantidade do item para o alvo de reposição
// saudável calculado a partir do MinStock atual.
func (s *Service) ApplyOptimalRestock(ctx domain.Context, id string) (domain.StockItem, error) {
	item, err := s.GetItemByID(ctx, id)
	if err != nil {
		return domain.StockItem{}, err
	}
	return s.SetQuantity(ctx, id, domain.OptimalRestock(item.MinStock))
}

// MarkRuptured zera a quantidade do item (ruptura de estoque declarada pelo operador).
func (s *Service) MarkRuptured(ctx domain.Context, id string) (domain.StockItem, error) {
	return s.SetQuantity(ctx, id, 0)
}

// --- Validação dos invariantes ---

// normalize aplica o trim nos campos textuais obrigatórios antes da validação
// e da persistência.
func normalize(item domain.StockItem) domain.StockItem {
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	item.Supplier = strings.TrimSpace(item.Supplier)
	return item
}

// validate verifica TODOS os invariantes do item em conjunto. Deve valer ao
// final de toda mutação, não apenas na criação.
func (s *Service) validate(item domain.StockItem) error {
	if item.Name == "" {
		return apperror.NewInvariantError(apperror.CodeEmptyRequiredField, "O nome do item é obrigatório.")
	}
	if item.Category == "" {
		return apperror.NewInvariantError(apperror.CodeEmptyRequiredField, "A categoria do item é obrigatória.")
	}
	if item.Supplier == "" {
		return apperror.NewInvariantError(apperror.CodeEmptyRequiredField, "O fornecedor do item é obrigatório.")
	}
	if item.UnitPrice < 0 {
		return apperror.NewInvariantError(apperror.CodeInvalidPrice, "O preço unitário não pode ser negativo.")
	}
	if item.UnitPrice > s.maxUnitPrice {
		return apperror.NewInvariantError(apperror.CodeInvalidPrice,
			fmt.Sprintf("O preço unitário excede o teto configurado (%.2f).", s.maxUnitPrice))
	}
	if item.Quantity < 0 {
		return apperror.NewInvariantError(apperror.CodeInvalidQuantity, "A quantidade não pode ser negativa.")
	}
	if item.MinStock < 0 || item.MaxStock < 0 {
		return apperror.NewInvariantError(apperror.CodeInvalidStockRange, "Os limiares de estoque não podem ser negativos.")
	}
	if item.MinStock > item.MaxStock {
		return apperror.NewInvariantError(apperror.CodeInvalidStockRange, "O estoque mínimo não pode ser maior que o máximo.")
	}
	return nil
}
