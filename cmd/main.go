package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Nossos pacotes de infraestrutura e utilitários
	"clinistock/config"
	"clinistock/internal/pkg/cache"
	"clinistock/internal/pkg/database"
	"clinistock/internal/pkg/logger"
	"clinistock/internal/pkg/token"

	// Camadas do Inventário para Injeção de Dependências
	"clinistock/internal/api/item"   // Handlers de itens
	"clinistock/internal/api/report" // Handlers de relatório
	"clinistock/internal/api/router" // Roteador central
	"clinistock/internal/repository/itemrepo"
	"clinistock/internal/service/itemservice"
	"clinistock/internal/service/reportservice"
)

func main() {
	// 1. Configuração e Inicialização
	log.Println("⚡ Inicializando serviço CliniStock...")

	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	// O godotenv.Load() procura por um arquivo chamado .env na raiz.
	if err := godotenv.Load(); err != nil {
		// Se o arquivo .env não for encontrado, avisamos, mas continuamos,
		// pois as variáveis essenciais podem estar no ambiente do sistema (ex: Docker).
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	appLog := logger.NewLogger(cfg.LogLevel)
	appLog.Info("Configurações carregadas.", nil)

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	appLog.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache (Redis)
	cacheClient := cache.NewRedisClient(cfg.RedisAddr)
	appLog.Info("Conexão Redis estabelecida.", nil)

	// 3. INJEÇÃO DE DEPENDÊNCIAS (Montagem da Clean Architecture)
	// Ordem: Repository -> Service -> Handler

	// A. Repositório (Camada de Acesso a Dados)
	itemRepo := itemrepo.NewItemRepository(db, cacheClient, cfg.DBTimeout, appLog)
	appLog.Debug("Repositório de Itens inicializado.", nil)

	// B. Serviços (Camada de Lógica de Negócio)
	itemSvc := itemservice.NewService(itemRepo, appLog, cfg.MaxUnitPrice)
	reportSvc := reportservice.NewService(itemRepo, appLog, cfg.DefaultCategories, cfg.ExpiryWindowDays)
	appLog.Debug("Serviços de Inventário inicializados.", nil)

	// C. Serviço de Tokens (JWT) — borda da camada de autorização externa
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	appLog.Debug("Serviço de Tokens JWT inicializado.", nil)

	// D. Handlers (Camada de Apresentação)
	itemHandler := item.NewHandler(itemSvc, appLog)
	reportHandler := report.NewHandler(reportSvc, appLog)
	appLog.Debug("Handlers de Inventário inicializados.", nil)

	// 4. Configuração e Início do Roteador/Servidor
	r := router.NewRouter(itemHandler, reportHandler, tokenSvc, cacheClient,
		cfg.RateLimitMaxRequests, cfg.RateLimitPeriod)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		appLog.Info("Servidor CliniStock ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	// Lógica do Graceful Shutdown (captura de sinal)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	// Timeout para desligamento (usa o contexto)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}
