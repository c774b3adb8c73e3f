package item

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"clinistock/internal/domain"
	apperror "clinistock/internal/errors"
	"clinistock/internal/pkg/logger"
	"clinistock/internal/pkg/middleware"
)

// ItemService define o contrato que o Handler espera da camada de Serviço.
// Usamos a assinatura com o tipo abstrato domain.Context para manter a pureza do domínio.
type ItemService interface {
	CreateItem(ctx domain.Context, item domain.StockItem) (domain.StockItem, error)
	UpdateItem(ctx domain.Context, id string, patch domain.ItemPatch) (domain.StockItem, error)
	SetQuantity(ctx domain.Context, id string, quantity int) (domain.StockItem, error)
	SoftDelete(ctx domain.Context, id string) error
	GetItemByID(ctx domain.Context, id string) (domain.StockItem, error)
	ListActive(ctx domain.Context, search, category string) ([]domain.StockItem, error)
	ListForAudit(ctx domain.Context) ([]domain.StockItem, error)
	ApplySafetyStock(ctx domain.Context, id string) (domain.StockItem, error)
	ApplyOptimalRestock(ctx domain.Context, id string) (domain.StockItem, error)
	MarkRuptured(ctx domain.Context, id string) (domain.StockItem, error)
}

// Handler agrupa todos os métodos de Handler de itens de inventário.
type Handler struct {
	Service ItemService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ItemService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		// Sucesso
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				h.Logger.Error("Falha ao codificar JSON de resposta", jsonErr)
				http.Error(w, "Erro ao codificar resposta", http.StatusInternalServerError)
			}
		}
		return
	}

	// TRATAMENTO DE ERROS
	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= 500 {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	errorResponse := map[string]interface{}{
		"code":     status,
		"category": category,
		"message":  message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse)
}

// ItemsHandler lida com a coleção /v1/items:
// POST cria um item; GET lista os itens ativos (com ?search= e ?category=).
func (h *Handler) ItemsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodPost:
		if claims, ok := middleware.GetUserClaimsFromContext(ctx); ok {
			h.Logger.Info("Criação de item solicitada por operador.", map[string]interface{}{
				"user_id": claims.UserID,
				"role":    claims.Role,
			})
		}

		var item domain.StockItem
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
			return
		}

		created, err := h.Service.CreateItem(ctx, item)
		h.handleServiceResponse(w, r, created, err, http.StatusCreated)

	case http.MethodGet:
		query := r.URL.Query()
		items, err := h.Service.ListActive(ctx, query.Get("search"), query.Get("category"))
		h.handleServiceResponse(w, r, items, err, http.StatusOK)

	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// AuditItemsHandler lida com GET /v1/audit/items: a única leitura que inclui
// itens desativados (soft-deleted), para fins de auditoria/histórico.
func (h *Handler) AuditItemsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	items, err := h.Service.ListForAudit(r.Context())
	h.handleServiceResponse(w, r, items, err, http.StatusOK)
}

// ItemByIDHandler despacha as rotas /v1/items/{id}[/acao]:
//
//	GET    /v1/items/{id}                 busca
//	PUT    /v1/items/{id}                 atualização parcial (patch)
//	DELETE /v1/items/{id}                 soft delete
//	PUT    /v1/items/{id}/quantity        definição absoluta de quantidade
//	POST   /v1/items/{id}/safety-stock    ação rápida: estoque de segurança
//	POST   /v1/items/{id}/optimal-restock ação rápida: reposição ótima
//	POST   /v1/items/{id}/rupture         ação rápida: declarar ruptura
func (h *Handler) ItemByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	path := strings.TrimPrefix(r.URL.Path, "/v1/items/") // Assumes URL path like /v1/items/{id}[/action]
	segments := strings.Split(strings.Trim(path, "/"), "/")

	if len(segments) == 0 || segments[0] == "" {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("O ID do item é obrigatório na rota."), http.StatusBadRequest)
		return
	}
	id := segments[0]

	// Rotas de ação: /v1/items/{id}/<action>
	if len(segments) == 2 {
		h.dispatchAction(w, r, id, segments[1])
		return
	}
	if len(segments) > 2 {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		found, err := h.Service.GetItemByID(ctx, id)
		h.handleServiceResponse(w, r, found, err, http.StatusOK)

	case http.MethodPut:
		var patch domain.ItemPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
			return
		}
		updated, err := h.Service.UpdateItem(ctx, id, patch)
		h.handleServiceResponse(w, r, updated, err, http.StatusOK)

	case http.MethodDelete:
		err := h.Service.SoftDelete(ctx, id)
		h.handleServiceResponse(w, r, nil, err, http.StatusNoContent)

	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// dispatchAction trata as sub-rotas de ação de um item.
func (h *Handler) dispatchAction(w http.ResponseWriter, r *http.Request, id, action string) {
	ctx := r.Context()

	switch action {
	case "quantity":
		if r.Method != http.MethodPut {
			http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
			return
		}
		var req domain.SetQuantityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
			return
		}
		updated, err := h.Service.SetQuantity(ctx, id, req.Quantity)
		h.handleServiceResponse(w, r, updated, err, http.StatusOK)

	case "safety-stock":
		if r.Method != http.MethodPost {
			http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
			return
		}
		updated, err := h.Service.ApplySafetyStock(ctx, id)
		h.handleServiceResponse(w, r, updated, err, http.StatusOK)

	case "optimal-restock":
		if r.Method != http.MethodPost {
			http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
			return
		}
		updated, err := h.Service.ApplyOptimalRestock(ctx, id)
		h.handleServiceResponse(w, r, updated, err, http.StatusOK)

	case "rupture":
		if r.Method != http.MethodPost {
			http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
			return
		}
		updated, err := h.Service.MarkRuptured(ctx, id)
		h.handleServiceResponse(w, r, updated, err, http.StatusOK)

	default:
		http.NotFound(w, r)
	}
}
