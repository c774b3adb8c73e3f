package domain

import (
	"time"
)

// StockItem representa um item estocável da clínica (medicamento ou equipamento).
// É a Entidade central do módulo de inventário: toda a classificação de saúde
// de estoque e as estatísticas derivam deste registro.
type StockItem struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	UnitPrice   float64    `json:"unit_price"`
	Quantity    int        `json:"quantity"`
	MinStock    int        `json:"min_stock"`
	MaxStock    int        `json:"max_stock"`
	Supplier    string     `json:"supplier"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"` // Data de validade (opcional; equipamentos não expiram)
	IsActive    bool       `json:"is_active"`
	Version     int        `json:"version"` // Para Controle de Concorrência Otimista (OCC)
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ItemPatch é o payload de atualização parcial de um item.
// Campos nil mantêm o valor atual do registro; a validação dos invariantes
// acontece sempre sobre o resultado COMBINADO (registro atual + patch),
// nunca campo a campo isoladamente.
type ItemPatch struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Category    *string    `json:"category,omitempty"`
	UnitPrice   *float64   `json:"unit_price,omitempty"`
	Quantity    *int       `json:"quantity,omitempty"`
	MinStock    *int       `json:"min_stock,omitempty"`
	MaxStock    *int       `json:"max_stock,omitempty"`
	Supplier    *string    `json:"supplier,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ApplyTo mescla o patch sobre uma cópia do item e a retorna.
// Não toca em ID, IsActive, Version nem timestamps: esses campos são
// de propriedade exclusiva do serviço de mutação.
func (p ItemPatch) ApplyTo(item StockItem) StockItem {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.UnitPrice != nil {
		item.UnitPrice = *p.UnitPrice
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.MinStock != nil {
		item.MinStock = *p.MinStock
	}
	if p.MaxStock != nil {
		item.MaxStock = *p.MaxStock
	}
	if p.Supplier != nil {
		item.Supplier = *p.Supplier
	}
	if p.ExpiresAt != nil {
		item.ExpiresAt = p.ExpiresAt
	}
	return item
}

// SetQuantityRequest é o payload esperado para a definição absoluta de quantidade.
// É um SET, não um delta: o valor enviado substitui a quantidade atual.
type SetQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=0"`
}

// ItemFilter define os parâmetros de busca da listagem de itens.
type ItemFilter struct {
	Search          string // Busca textual em nome/descrição
	Category        string // Filtro exato por categoria
	IncludeInactive bool   // true apenas para a consulta de auditoria
}

// Context é uma interface que encapsula o Go context.Context.
// É usado para propagar o timeout e sinais de cancelamento pelas camadas.
// Isso evita a dependência direta do pacote "context" na assinatura dos serviços.
type Context interface{}
