package domain

// Stats agrega as estatísticas do catálogo de inventário, sempre recalculadas
// a partir do snapshot de itens ativos (sem contadores incrementais, para
// evitar deriva).
type Stats struct {
	Total             int     `json:"total"`
	LowStockCount     int     `json:"low_stock_count"`
	OutOfStockCount   int     `json:"out_of_stock_count"`
	ExpiringSoonCount int     `json:"expiring_soon_count"`
	TotalValue        float64 `json:"total_value"` // Σ(unit_price × quantity), arredondado a 2 casas
	CategoriesCount   int     `json:"categories_count"`
}
