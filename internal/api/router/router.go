package router

import (
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"clinistock/internal/api/item"
	"clinistock/internal/api/report"
	"clinistock/internal/domain"
	"clinistock/internal/pkg/cache"
	"clinistock/internal/pkg/middleware"
)

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
func NewRouter(
	itemHandler *item.Handler,
	reportHandler *report.Handler,
	tokenSvc middleware.TokenService,
	cacheClient cache.Client,
	rateLimitMax int,
	rateLimitPeriod time.Duration,
) http.Handler {

	// Usamos o ServeMux padrão do net/http para roteamento
	// Em projetos maiores, pode-se usar um mux de terceiros (e.g., gorilla/mux, chi)
	mux := http.NewServeMux()

	authenticate := middleware.NewAuthMiddleware(tokenSvc)
	requireOperator := middleware.PermissionMiddleware(domain.RoleAdmin, domain.RoleOperator)

	// --- 1. Rotas de Health Check e Documentação ---
	mux.HandleFunc("/ping", PingHandler)
	mux.Handle("/docs/", httpSwagger.WrapHandler)

	// --- 2. Rotas do Módulo de Itens (v1) ---
	// Todas exigem um chamador autenticado com role de operação; a autorização
	// em si (contas, emissão de token) vive fora deste serviço.

	// POST /v1/items (criar) | GET /v1/items (listar ativos)
	mux.HandleFunc("/v1/items", authenticate(requireOperator(itemHandler.ItemsHandler)))

	// GET/PUT/DELETE /v1/items/{id} e sub-rotas de ação rápida
	mux.HandleFunc("/v1/items/", authenticate(requireOperator(itemHandler.ItemByIDHandler)))

	// GET /v1/audit/items (inclui inativos; restrito a admin)
	mux.HandleFunc("/v1/audit/items", authenticate(middleware.PermissionMiddleware(domain.RoleAdmin)(itemHandler.AuditItemsHandler)))

	// --- 3. Rotas de Relatório (v1) ---
	// Consultivas e recomputadas a cada chamada; autenticadas, sem exigência de role.
	mux.HandleFunc("/v1/stats", authenticate(reportHandler.StatsHandler))
	mux.HandleFunc("/v1/categories", authenticate(reportHandler.CategoriesHandler))
	mux.HandleFunc("/v1/reports/low-stock", authenticate(reportHandler.LowStockHandler))
	mux.HandleFunc("/v1/reports/out-of-stock", authenticate(reportHandler.OutOfStockHandler))
	mux.HandleFunc("/v1/reports/expiring", authenticate(reportHandler.ExpiringHandler))

	// --- 4. Middlewares Globais ---
	// O rate limiter protege o serviço inteiro de rajadas de polling do painel.
	return middleware.RateLimiter(cacheClient, rateLimitMax, rateLimitPeriod)(mux)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
