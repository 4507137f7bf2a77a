package main

import (
	"log"
	"os"
	"time"

	"backend_telearenda/api"
	"backend_telearenda/config"
	"backend_telearenda/database"
	"backend_telearenda/middleware"
	"backend_telearenda/models"
	"backend_telearenda/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// initDB инициализирует подключение к базе данных
func initDB() {
	log.Println("🔧 Инициализация базы данных...")

	// Создаем базу данных, если она не существует
	if err := database.CreateDatabaseIfNotExists(); err != nil {
		log.Fatal("❌ Ошибка при создании базы данных:", err)
	}

	// Подключаемся к базе данных
	if err := database.ConnectDatabase(); err != nil {
		log.Fatal("❌ Ошибка подключения к базе данных:", err)
	}

	log.Println("✅ База данных успешно инициализирована")
}

// initNotificationSettings создает запись настроек уведомлений из
// окружения при первом запуске. В дальнейшем настройки живут в базе
func initNotificationSettings(cfg *config.Config) {
	var count int64
	if err := database.DB.Model(&models.NotificationSettings{}).Count(&count).Error; err != nil {
		log.Printf("⚠️  Не удалось проверить настройки уведомлений: %v", err)
		return
	}
	if count > 0 {
		return
	}

	settings := models.NotificationSettings{
		TelegramEnabled:            cfg.Telegram.BotToken != "",
		TelegramBotToken:           cfg.Telegram.BotToken,
		TelegramChatID:             cfg.Telegram.ChatID,
		NotifyBulkOperations:       true,
		NotifyExpiredSubscriptions: true,
	}
	if err := database.DB.Create(&settings).Error; err != nil {
		log.Printf("⚠️  Не удалось создать настройки уведомлений: %v", err)
		return
	}
	log.Println("✅ Настройки уведомлений созданы из окружения")
}

// corsConfig собирает настройки CORS из конфигурации приложения
func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}

	// Шаблон "*" несовместим с credentials, gin-contrib/cors требует
	// явного режима "все источники"
	if len(cfg.CORS.AllowedOrigins) == 1 && cfg.CORS.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	return corsCfg
}

func main() {
	// Загружаем переменные окружения из .env файла
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Файл .env не найден, используются системные переменные окружения")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("❌ Ошибка загрузки конфигурации:", err)
	}
	cfg.LogConfig()

	// Инициализируем базу данных
	initDB()
	initNotificationSettings(cfg)

	// Инициализируем Redis. Кэш не критичен: без него
	// сгруппированное представление пересчитывается на каждый запрос
	if err := database.InitRedis(); err != nil {
		log.Printf("⚠️  Redis недоступен, кэширование отключено: %v", err)
	}

	// Собираем сервисы
	cacheService := services.NewCacheService(database.GetRedis(), log.Default())
	store := services.NewAssociationStore(database.DB)
	associationService := services.NewAssociationService(database.DB, cacheService)
	groupingService := services.NewGroupingService(store, cacheService)
	notificationService := services.NewNotificationService(database.DB, cacheService)
	bulkService := services.NewBulkService(database.DB, associationService, cacheService, notificationService)
	reportService := services.NewReportService(database.DB, cacheService)

	authMiddleware := middleware.NewAuthMiddleware(cfg)

	api.InitAssociationAPI(associationService, groupingService, bulkService)
	api.InitReportsAPI(reportService)
	api.InitAuthAPI(authMiddleware)

	// Запускаем мониторинг истечения подписок
	monitor := services.NewSubscriptionMonitor(database.DB, notificationService, cacheService)
	if err := monitor.Start(); err != nil {
		log.Printf("⚠️  Не удалось запустить мониторинг подписок: %v", err)
	}
	defer monitor.Stop()

	// Настраиваем Gin router
	r := gin.Default()
	r.Use(cors.New(corsConfig(cfg)))

	// Базовые роуты
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":   "success",
			"message":  "pong",
			"database": "connected",
		})
	})

	// Аутентификация
	auth := r.Group("/api/auth")
	auth.POST("/login", middleware.AuthRateLimit(), api.Login)
	auth.GET("/me", authMiddleware.RequireAuth(), api.GetCurrentUser)

	// API роуты
	apiGroup := r.Group("/api")
	apiGroup.Use(authMiddleware.RequireAuth(), middleware.ModerateRateLimit())
	{
		// Привязки: сгруппированное представление и жизненный цикл
		apiGroup.GET("/associations", api.GetAssociations)
		apiGroup.POST("/associations", api.CreateAssociation)
		apiGroup.POST("/associations/batch", api.CreateAssociationBatch)
		apiGroup.POST("/associations/:id/end", api.EndAssociation)

		// Групповые операции
		apiGroup.POST("/associations/bulk/end-group", api.BulkEndGroup)
		apiGroup.POST("/associations/bulk/edit", api.BulkEdit)
		apiGroup.POST("/associations/bulk/change-kind", api.BulkChangeKind)
		apiGroup.POST("/associations/bulk/soft-delete", api.BulkSoftDelete)

		// Активы
		apiGroup.GET("/assets", api.GetAssets)
		apiGroup.GET("/assets/:id", api.GetAsset)
		apiGroup.POST("/assets", api.CreateAsset)
		apiGroup.PUT("/assets/:id", api.UpdateAsset)
		apiGroup.POST("/assets/:id/extend-subscription", api.ExtendSubscription)
		apiGroup.POST("/assets/return-to-stock", api.ReturnToStock)

		// Клиенты
		apiGroup.GET("/clients", api.GetClients)
		apiGroup.GET("/clients/:id", api.GetClient)
		apiGroup.POST("/clients", api.CreateClient)
		apiGroup.PUT("/clients/:id", api.UpdateClient)
		apiGroup.DELETE("/clients/:id", api.DeleteClient)

		// Отчеты
		apiGroup.GET("/reports/associations.xlsx", api.ExportAssociationsExcel)
		apiGroup.GET("/reports/associations.pdf", api.ExportAssociationsPDF)
	}

	// Получаем порт из переменных окружения
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = cfg.App.Port
	}

	log.Printf("🚀 Сервер запущен на порту %s", port)
	r.Run(":" + port)
}
