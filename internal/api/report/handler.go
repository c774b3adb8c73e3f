package report

import (
	"encoding/json"
	"net/http"
	"strconv"

	"clinistock/internal/domain"
	"clinistock/internal/pkg/logger"
)

// ReportService define o contrato que o Handler espera da camada de Serviço.
// Note que os métodos de relatório não retornam erro: por contrato eles
// degradam para resultados vazios/zerados em falha do store (a falha fica no log).
type ReportService interface {
	GetLowStock(ctx domain.Context) []domain.StockItem
	GetOutOfStock(ctx domain.Context) []domain.StockItem
	GetExpiringSoon(ctx domain.Context, windowDays int) []domain.StockItem
	GetCategories(ctx domain.Context) []string
	GetStats(ctx domain.Context) domain.Stats
}

// Handler agrupa os endpoints de relatório/painel do inventário.
type Handler struct {
	Service ReportService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ReportService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// writeJSON envia uma resposta de sucesso. Relatórios nunca retornam erro ao
// cliente; a resposta é sempre 200 com o payload (possivelmente vazio).
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("Falha ao codificar JSON de resposta", err)
	}
}

// StatsHandler lida com GET /v1/stats.
func (h *Handler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.Service.GetStats(r.Context()))
}

// CategoriesHandler lida com GET /v1/categories.
func (h *Handler) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.Service.GetCategories(r.Context()))
}

// LowStockHandler lida com GET /v1/reports/low-stock.
func (h *Handler) LowStockHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.Service.GetLowStock(r.Context()))
}

// OutOfStockHandler lida com GET /v1/reports/out-of-stock.
func (h *Handler) OutOfStockHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.Service.GetOutOfStock(r.Context()))
}

// ExpiringHandler lida com GET /v1/reports/expiring?window_days=N.
// window_days ausente ou inválido usa a janela padrão do serviço (30 dias).
func (h *Handler) ExpiringHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	windowDays := 0
	if raw := r.URL.Query().Get("window_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.Logger.Debug("window_days inválido; usando a janela padrão.", map[string]interface{}{"window_days": raw})
		} else {
			windowDays = parsed
		}
	}

	h.writeJSON(w, h.Service.GetExpiringSoon(r.Context(), windowDays))
}
