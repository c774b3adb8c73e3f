package domain

import "math"

// Fórmulas de apoio às "ações rápidas" do operador (reposição manual).
// São calculadoras consultivas: nunca rodam em agenda nem acionam
// fornecedores externos. Ambas usam MinStock como base porque produzem
// METAS de reposição; o estado de saúde do estoque segue o baseline
// canônico de stock_status.go (MaxStock * HighStockFactor).

// SafetyStock calcula o estoque de segurança: round(minStock * 0.2).
// É o colchão mínimo usado como alvo de reposição emergencial.
func SafetyStock(minStock int) int {
	return int(math.Round(float64(minStock) * 0.2))
}

// OptimalRestock calcula o alvo de reposição saudável: round(minStock * 1.2).
func OptimalRestock(minStock int) int {
	return int(math.Round(float64(minStock) * 1.2))
}
