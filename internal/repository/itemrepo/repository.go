package itemrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"clinistock/internal/domain"
	"clinistock/internal/errors"
	"clinistock/internal/pkg/cache"
	"clinistock/internal/pkg/logger"
)

// Chave de cache para itens individuais (estratégia Cache-Aside).
const itemCacheKey = "item:%s"

// TTL do cache de item. Leituras toleram read-skew limitado; a invalidação
// nas escritas mantém a janela de inconsistência curta.
const itemCacheTTL = 5 * time.Minute

// ItemRepository implementa a persistência do catálogo de inventário sobre
// PostgreSQL, com cache Redis para a busca por ID. É a única camada que toca
// as tabelas do inventário.
type ItemRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewItemRepository cria e retorna uma nova instância do Repositório de Itens.
func NewItemRepository(db *sql.DB, cacheClient cache.Client, dbTimeout time.Duration, logger logger.Logger) *ItemRepository {
	return &ItemRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const itemColumns = `id, name, description, category, unit_price, quantity, min_stock, max_stock,
        supplier, expires_at, is_active, version, created_at, updated_at`

// scanItem lê uma linha de stock_items na ordem de itemColumns.
func scanItem(row interface{ Scan(...interface{}) error }) (domain.StockItem, error) {
	var item domain.StockItem
	err := row.Scan(
		&item.ID, &item.Name, &item.Description, &item.Category, &item.UnitPrice,
		&item.Quantity, &item.MinStock, &item.MaxStock, &item.Supplier,
		&item.ExpiresAt, &item.IsActive, &item.Version, &item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

// Save persiste um novo StockItem no banco de dados.
func (r *ItemRepository) Save(ctx context.Context, item domain.StockItem) (domain.StockItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const insertSQL = `
        INSERT INTO stock_items (id, name, description, category, unit_price, quantity, min_stock,
                                 max_stock, supplier, expires_at, is_active, version, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err := r.DB.ExecContext(ctxTimeout, insertSQL,
		item.ID,
		item.Name,
		item.Description,
		item.Category,
		item.UnitPrice,
		item.Quantity,
		item.MinStock,
		item.MaxStock,
		item.Supplier,
		item.ExpiresAt,
		item.IsActive,
		item.Version,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir item de inventário no DB.", err)
		return domain.StockItem{}, errors.NewDBError("Falha ao inserir item de inventário", err)
	}

	r.logger.Info("Item de inventário persistido.", map[string]interface{}{"id": item.ID, "name": item.Name})
	return item, nil
}

// FindByID busca um item pelo ID, utilizando a estratégia Cache-Aside.
// Retorna o registro mesmo que inativo; a regra "somente ativos" é decidida
// pela camada de Serviço conforme a operação.
func (r *ItemRepository) FindByID(ctx context.Context, id string) (domain.StockItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(itemCacheKey, id)
	var item domain.StockItem

	// 1. Tentar obter do Cache (Redis)
	cachedData, err := r.Cache.Get(ctxTimeout, key)
	if err == nil {
		// Cache HIT
		if json.Unmarshal([]byte(cachedData), &item) == nil {
			return item, nil
		}
		// Se a desserialização falhar, seguimos para o DB
	} else if err != cache.ErrCacheMiss {
		// Erro real de cache (ex: conexão perdida): logamos e seguimos para o DB.
		r.logger.Warn("Falha ao ler item do cache Redis.", map[string]interface{}{"id": id, "error": err.Error()})
	}

	// 2. Busca no Banco de Dados (PostgreSQL)
	querySQL := `SELECT ` + itemColumns + ` FROM stock_items WHERE id = $1`

	item, err = scanItem(r.DB.QueryRowContext(ctxTimeout, querySQL, id))
	if err == sql.ErrNoRows {
		r.logger.Info("Item de inventário não encontrado.", map[string]interface{}{"id": id})
		return domain.StockItem{}, errors.NewNotFoundError(fmt.Sprintf("Item %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar item de inventário no DB.", err)
		return domain.StockItem{}, errors.NewDBError("Falha ao buscar item de inventário", err)
	}

	// 3. Popular o cache para futuras requisições (WRITE do Cache-Aside)
	if itemJSON, marshalErr := json.Marshal(item); marshalErr == nil {
		r.Cache.Set(ctxTimeout, key, itemJSON, itemCacheTTL)
	}

	return item, nil
}

// Update substitui os campos mutáveis do item, utilizando transação com
// SELECT ... FOR UPDATE e controle de concorrência otimista (OCC) pela coluna
// version. item.Version deve conter a versão lida pelo chamador; se o registro
// tiver sido modificado nesse meio tempo, retorna ConflictError.
func (r *ItemRepository) Update(ctx context.Context, item domain.StockItem) (domain.StockItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de atualização de item.", err)
		return domain.StockItem{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback() // Rollback em caso de erro

	// 1. Bloquear a linha e ler a versão atual.
	//    O FOR UPDATE serializa escritas concorrentes no MESMO id; escritas em
	//    ids diferentes seguem em paralelo.
	var currentVersion int
	err = tx.QueryRowContext(ctxTimeout,
		`SELECT version FROM stock_items WHERE id = $1 FOR UPDATE`, item.ID,
	).Scan(&currentVersion)

	if err == sql.ErrNoRows {
		return domain.StockItem{}, errors.NewNotFoundError(fmt.Sprintf("Item %s não encontrado.", item.ID))
	}
	if err != nil {
		r.logger.Error("Falha ao selecionar item para atualização.", err)
		return domain.StockItem{}, errors.NewDBError("Falha ao buscar item para atualização", err)
	}

	if currentVersion != item.Version {
		r.logger.Warn("Falha no controle de concorrência otimista (OCC). Versão do registro desatualizada.", map[string]interface{}{
			"id":               item.ID,
			"expected_version": item.Version,
			"current_version":  currentVersion,
		})
		return domain.StockItem{}, errors.NewConflictError("O item foi modificado por outra operação. Tente novamente.")
	}

	// 2. Aplicar a atualização com incremento de versão.
	now := time.Now().UTC()
	const updateSQL = `
        UPDATE stock_items
        SET name = $1, description = $2, category = $3, unit_price = $4, quantity = $5,
            min_stock = $6, max_stock = $7, supplier = $8, expires_at = $9,
            is_active = $10, version = $11, updated_at = $12
        WHERE id = $13`

	_, err = tx.ExecContext(ctxTimeout, updateSQL,
		item.Name,
		item.Description,
		item.Category,
		item.UnitPrice,
		item.Quantity,
		item.MinStock,
		item.MaxStock,
		item.Supplier,
		item.ExpiresAt,
		item.IsActive,
		item.Version+1,
		now,
		item.ID,
	)
	if err != nil {
		r.logger.Error("Falha ao atualizar item de inventário.", err)
		return domain.StockItem{}, errors.NewDBError("Falha ao atualizar item", err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		r.logger.Error("Falha ao commitar transação de atualização de item.", commitErr)
		return domain.StockItem{}, errors.NewDBError("Falha ao commitar transação", commitErr)
	}

	// 3. Invalidar o cache do item após o commit.
	r.invalidate(ctxTimeout, item.ID)

	item.Version++
	item.UpdatedAt = now
	r.logger.Info("Item de inventário atualizado.", map[string]interface{}{
		"id":          item.ID,
		"quantity":    item.Quantity,
		"new_version": item.Version,
	})
	return item, nil
}

// SoftDelete marca o item como inativo (is_active = false), mantendo o
// registro para histórico. A transição é irreversível pelo contrato público.
func (r *ItemRepository) SoftDelete(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const deleteSQL = `
        UPDATE stock_items
        SET is_active = false, version = version + 1, updated_at = $1
        WHERE id = $2 AND is_active = true`

	result, err := r.DB.ExecContext(ctxTimeout, deleteSQL, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Falha ao desativar item de inventário.", err)
		return errors.NewDBError("Falha ao desativar item", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.logger.Error("Falha ao verificar linhas afetadas na desativação.", err)
		return errors.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		// Id desconhecido OU item já inativo: mesmo contrato de NotFound.
		return errors.NewNotFoundError(fmt.Sprintf("Item ativo %s não encontrado.", id))
	}

	r.invalidate(ctxTimeout, id)
	r.logger.Info("Item de inventário desativado (soft delete).", map[string]interface{}{"id": id})
	return nil
}

// FindAll lista itens conforme o filtro. Por padrão retorna apenas ativos;
// IncludeInactive é reservado à consulta de auditoria.
func (r *ItemRepository) FindAll(ctx context.Context, filter domain.ItemFilter) ([]domain.StockItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	querySQL := `SELECT ` + itemColumns + ` FROM stock_items WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if !filter.IncludeInactive {
		querySQL += " AND is_active = true"
	}
	if filter.Search != "" {
		querySQL += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}
	if filter.Category != "" {
		querySQL += fmt.Sprintf(" AND TRIM(category) = $%d", argPos)
		args = append(args, filter.Category)
		argPos++
	}
	querySQL += " ORDER BY name ASC"

	return r.queryItems(ctxTimeout, querySQL, args...)
}

// FindLowStock retorna os itens ativos em estoque baixo (0 < quantity <= min_stock),
// ordenados por quantidade ascendente (mais críticos primeiro).
func (r *ItemRepository) FindLowStock(ctx context.Context) ([]domain.StockItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	querySQL := `SELECT ` + itemColumns + `
        FROM stock_items
        WHERE is_active = true AND quantity > 0 AND quantity <= min_stock
        ORDER BY quantity ASC`

	return r.queryItems(ctxTimeout, querySQL)
}

// FindOutOfStock retorna os itens ativos zerados.
func (r *ItemRepository) FindOutOfStock(ctx context.Context) ([]domain.StockItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	querySQL := `SELECT ` + itemColumns + `
        FROM stock_items
        WHERE is_active = true AND quantity = 0
        ORDER BY name ASC`

	return r.queryItems(ctxTimeout, querySQL)
}

// FindExpiringBetween retorna itens ativos com estoque (>0) cuja validade cai
// no intervalo fechado [from, to], ordenados pela validade ascendente.
// A coluna expires_at é DATE: a comparação é de data de calendário, sem
// deriva de fuso/hora do dia.
func (r *ItemRepository) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]domain.StockItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	querySQL := `SELECT ` + itemColumns + `
        FROM stock_items
        WHERE is_active = true AND quantity > 0
          AND expires_at IS NOT NULL
          AND expires_at BETWEEN $1 AND $2
        ORDER BY expires_at ASC`

	return r.queryItems(ctxTimeout, querySQL, from, to)
}

// DistinctCategories retorna os valores crus e distintos de categoria dos
// itens ativos. Normalização (trim, dedupe, ordenação) é papel do Serviço.
func (r *ItemRepository) DistinctCategories(ctx context.Context) ([]string, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const querySQL = `SELECT DISTINCT category FROM stock_items WHERE is_active = true`

	rows, err := r.DB.QueryContext(ctxTimeout, querySQL)
	if err != nil {
		r.logger.Error("Falha ao buscar categorias distintas no DB.", err)
		return nil, errors.NewDBError("Falha ao buscar categorias", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			r.logger.Error("Falha ao ler categoria do cursor.", err)
			return nil, errors.NewDBError("Falha ao ler categoria", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Falha ao iterar cursor de categorias.", err)
		return nil, errors.NewDBError("Falha ao iterar categorias", err)
	}

	return categories, nil
}

// queryItems executa uma consulta que retorna linhas de stock_items.
func (r *ItemRepository) queryItems(ctx context.Context, querySQL string, args ...interface{}) ([]domain.StockItem, error) {
	rows, err := r.DB.QueryContext(ctx, querySQL, args...)
	if err != nil {
		r.logger.Error("Falha ao consultar itens de inventário no DB.", err)
		return nil, errors.NewDBError("Falha ao consultar itens", err)
	}
	defer rows.Close()

	items := []domain.StockItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			r.logger.Error("Falha ao ler item do cursor.", err)
			return nil, errors.NewDBError("Falha ao ler item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Falha ao iterar cursor de itens.", err)
		return nil, errors.NewDBError("Falha ao iterar itens", err)
	}

	return items, nil
}

// invalidate remove a entrada de cache do item. Falha de cache aqui não é
// fatal: o TTL curto limita a janela de inconsistência.
func (r *ItemRepository) invalidate(ctx context.Context, id string) {
	if err := r.Cache.Delete(ctx, fmt.Sprintf(itemCacheKey, id)); err != nil {
		r.logger.Warn("Falha ao invalidar cache do item.", map[string]interface{}{"id": id, "error": err.Error()})
	}
}
