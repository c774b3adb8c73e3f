package domain

// StockStatus classifica a saúde do estoque de um item a partir da
// quantidade atual e dos limiares mínimo/máximo.
type StockStatus string

const (
	StatusOutOfStock StockStatus = "OUT_OF_STOCK"
	StatusLow        StockStatus = "LOW"
	StatusNormal     StockStatus = "NORMAL"
	StatusHigh       StockStatus = "HIGH"
)

// HighStockFactor é a fração de MaxStock a partir da qual o estoque é
// considerado alto/saudável. Este é o baseline canônico de "estoque saudável"
// do sistema; as fórmulas de reposição (reorder.go) usam MinStock como base
// porque calculam METAS de reposição, não estados de saúde.
const HighStockFactor = 0.8

// StatusOf classifica a saúde do estoque. É uma função pura e total sobre
// entradas que respeitam os invariantes do modelo (quantity >= 0,
// 0 <= minStock <= maxStock). As regras são avaliadas nesta ordem fixa,
// vencendo a primeira que casar:
//
//  1. quantity == 0            -> OUT_OF_STOCK
//  2. quantity <= minStock     -> LOW
//  3. quantity >= maxStock*0.8 -> HIGH
//  4. caso contrário           -> NORMAL
//
// Casos de borda documentados:
//   - minStock == 0: a regra 2 só seria satisfeita com quantity == 0, que a
//     regra 1 já capturou; portanto com minStock == 0 a regra 2 é inalcançável.
//   - maxStock == 0 com quantity > 0: a regra 3 dispara (q >= 0), forçando HIGH.
func StatusOf(quantity, minStock, maxStock int) StockStatus {
	if quantity == 0 {
		return StatusOutOfStock
	}
	if quantity <= minStock {
		return StatusLow
	}
	if float64(quantity) >= float64(maxStock)*HighStockFactor {
		return StatusHigh
	}
	return StatusNormal
}
