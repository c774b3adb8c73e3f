package reportservice

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"clinistock/internal/domain"
	"clinistock/internal/pkg/logger"
)

// ReportRepository define o contrato de leitura que os relatórios esperam da
// camada de Persistência.
type ReportRepository interface {
	FindAll(ctx context.Context, filter domain.ItemFilter) ([]domain.StockItem, error)
	FindLowStock(ctx context.Context) ([]domain.StockItem, error)
	FindOutOfStock(ctx context.Context) ([]domain.StockItem, error)
	FindExpiringBetween(ctx context.Context, from, to time.Time) ([]domain.StockItem, error)
	DistinctCategories(ctx context.Context) ([]string, error)
}

// Service agrega as leituras consultivas do inventário: estatísticas,
// janela de vencimento, listas de estoque baixo/zerado e categorias.
//
// Política de falha assimétrica em relação ao itemservice: estas consultas são
// painéis recalculados a cada chamada. Em falha do store elas DEGRADAM para um
// resultado vazio/zerado em vez de falhar o chamador; a falha subjacente é
// sempre registrada no log para permanecer diagnosticável.
type Service struct {
	repo              ReportRepository
	logger            logger.Logger
	defaultCategories []string // Categorias padrão injetadas por configuração
	defaultWindowDays int      // Janela padrão de vencimento (30 dias)
}

// NewService cria e retorna uma nova instância do Serviço de Relatórios.
func NewService(repo ReportRepository, logger logger.Logger, defaultCategories []string, defaultWindowDays int) *Service {
	if defaultWindowDays <= 0 {
		defaultWindowDays = 30
	}
	return &Service{
		repo:              repo,
		logger:            logger,
		defaultCategories: defaultCategories,
		defaultWindowDays: defaultWindowDays,
	}
}

// GetLowStock retorna os itens ativos em estoque baixo, ordenados por
// quantidade ascendente. Degrada para lista vazia em falha do store.
func (s *Service) GetLowStock(ctx domain.Context) []domain.StockItem {
	ctxGo := s.toContext(ctx, "GetLowStock")

	items, err := s.repo.FindLowStock(ctxGo)
	if err != nil {
		s.logger.Error("Relatório de estoque baixo degradado para vazio por falha do store.", err)
		return []domain.StockItem{}
	}
	return items
}

// GetOutOfStock retorna os itens ativos zerados. Degrada para lista vazia em
// falha do store.
func (s *Service) GetOutOfStock(ctx domain.Context) []domain.StockItem {
	ctxGo := s.toContext(ctx, "GetOutOfStock")

	items, err := s.repo.FindOutOfStock(ctxGo)
	if err != nil {
		s.logger.Error("Relatório de estoque zerado degradado para vazio por falha do store.", err)
		return []domain.StockItem{}
	}
	return items
}

// GetExpiringSoon retorna os itens ativos com estoque cuja validade cai em
// [hoje, hoje+windowDays], ordenados pela validade ascendente.
// windowDays <= 0 usa a janela padrão. "Hoje" é avaliado UMA vez por chamada e
// mantido fixo em toda a computação, para que os dois limites da janela sejam
// consistentes mesmo se a chamada atravessar a meia-noite.
func (s *Service) GetExpiringSoon(ctx domain.Context, windowDays int) []domain.StockItem {
	ctxGo := s.toContext(ctx, "GetExpiringSoon")

	if windowDays <= 0 {
		windowDays = s.defaultWindowDays
	}

	// Comparação de data de calendário, não de instante: trunca para o dia.
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	until := today.AddDate(0, 0, windowDays)

	items, err := s.repo.FindExpiringBetween(ctxGo, today, until)
	if err != nil {
		s.logger.Error("Relatório de vencimentos degradado para vazio por falha do store.", err)
		return []domain.StockItem{}
	}
	return items
}

// GetCategories retorna a lista ordenada de categorias únicas: os padrões
// injetados por configuração combinados com os valores descobertos nos itens
// ativos. Valores são aparados; vazios descartados; deduplicação pelo valor
// aparado (comparação sem caixa, mantendo a grafia vista primeiro).
// Em falha do store degrada para a lista de padrões — uma lista de categorias
// vazia apenas desabilita um filtro do painel, nunca corrompe dados.
func (s *Service) GetCategories(ctx domain.Context) []string {
	ctxGo := s.toContext(ctx, "GetCategories")

	discovered, err := s.repo.DistinctCategories(ctxGo)
	if err != nil {
		s.logger.Error("Listagem de categorias degradada para os padrões por falha do store.", err)
		discovered = nil
	}

	return normalizeCategories(append(append([]string{}, s.defaultCategories...), discovered...))
}

// GetStats computa as estatísticas do catálogo a partir do snapshot atual de
// itens ativos. Sempre recalculado por chamada (sem contadores incrementais).
// Em falha do store retorna o objeto zerado, com a falha registrada.
func (s *Service) GetStats(ctx domain.Context) domain.Stats {
	ctxGo := s.toContext(ctx, "GetStats")

	items, err := s.repo.FindAll(ctxGo, domain.ItemFilter{})
	if err != nil {
		s.logger.Error("Estatísticas degradadas para zero por falha do store.", err)
		return domain.Stats{}
	}

	stats := domain.Stats{Total: len(items)}
	totalValue := decimal.Zero
	for _, item := range items {
		switch domain.StatusOf(item.Quantity, item.MinStock, item.MaxStock) {
		case domain.StatusOutOfStock:
			stats.OutOfStockCount++
		case domain.StatusLow:
			stats.LowStockCount++
		}
		totalValue = totalValue.Add(
			decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity))),
		)
	}

	// Round(2) do decimal arredonda "half away from zero", o comportamento
	// esperado para valores monetários.
	stats.TotalValue = totalValue.Round(2).InexactFloat64()
	stats.ExpiringSoonCount = len(s.GetExpiringSoon(ctx, s.defaultWindowDays))
	stats.CategoriesCount = len(s.GetCategories(ctx))

	s.logger.Debug("Estatísticas do inventário computadas.", map[string]interface{}{
		"total":       stats.Total,
		"low":         stats.LowStockCount,
		"out":         stats.OutOfStockCount,
		"total_value": stats.TotalValue,
	})
	return stats
}

// toContext converte domain.Context para context.Context nativo.
func (s *Service) toContext(ctx domain.Context, op string) context.Context {
	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para "+op, nil)
	}
	return ctxGo
}

// normalizeCategories apara, descarta vazios, deduplica sem caixa mantendo a
// grafia vista primeiro e ordena lexicograficamente.
func normalizeCategories(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	result := []string{}
	for _, c := range raw {
		trimmed := strings.TrimSpace(c)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, trimmed)
	}
	sort.Strings(result)
	return result
}
