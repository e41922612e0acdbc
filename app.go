package main

import (
	"fmt"
	"net/http"
	"time"

	"autopay/config"
	"autopay/controllers"
	"autopay/database"
	"autopay/middleware"
	"autopay/services"
	"autopay/utils"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// app собирает зависимости процессора автоплатежей
type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	db      *database.Database
	metrics *utils.Metrics
	batch   *services.AutopayBatchService
}

func newApp(configFile string) (*app, error) {
	// Инициализируем конфигурацию
	cfg, err := config.NewConfig(configFile)
	if err != nil {
		return nil, err
	}
	log := utils.NewLogger(cfg.LogLevel)

	// Инициализируем подключение к базе данных
	db, err := database.Connect(cfg, log)
	if err != nil {
		return nil, err
	}

	metrics := utils.GetMetrics()
	batch := services.NewAutopayBatchService(
		database.NewLedgerStore(db.DB),
		newAwarder(cfg, log),
		log,
		metrics,
		services.BatchOptions{
			PageSize:     cfg.Autopay.PageSize,
			MaxFailures:  cfg.Autopay.MaxFailures,
			Location:     cfg.Location(),
			AwardTimeout: cfg.XnScore.Timeout,
		},
	)

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		metrics: metrics,
		batch:   batch,
	}, nil
}

func newAwarder(cfg *config.Config, log *logrus.Logger) services.ReputationAwarder {
	if cfg.XnScore.URL == "" {
		log.Info("XNSCORE_URL is not set, reputation awards are disabled")
		return services.NoopAwarder{}
	}
	return services.NewXnScoreClient(cfg.XnScore.URL, cfg.DB.ServiceKey, cfg.XnScore.Timeout, log)
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close database")
	}
}

// newRouter регистрирует маршруты API
func newRouter(controller *controllers.AutopayController, serviceKey []byte, limiter *utils.RateLimiter, log *logrus.Logger, metrics *utils.Metrics) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.LoggingMiddleware(log, metrics))

	// Публичные маршруты
	router.HandleFunc("/healthz", controller.Health).Methods(http.MethodGet)

	// Защищенные маршруты. CORS выполняется до проверки токена, чтобы preflight не требовал авторизации.
	protected := router.PathPrefix("/api/autopay").Subrouter()
	protected.Use(middleware.CORSMiddleware)
	protected.Use(middleware.RateLimit(limiter))
	protected.Use(middleware.ServiceAuthMiddleware(serviceKey))

	protected.HandleFunc("/process", controller.ProcessAutopays).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/metrics", controller.GetMetrics).Methods(http.MethodGet, http.MethodOptions)

	return router
}

func newServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
