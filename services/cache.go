package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"backend_telearenda/database"
)

// CacheService предоставляет методы для кэширования сгруппированного
// представления привязок. Кэш только читается потребителями; после любой
// записи он инвалидируется целиком, а не правится по месту
type CacheService struct {
	redis  *redis.Client
	logger *log.Logger
}

// NewCacheService создает новый экземпляр CacheService
func NewCacheService(redisClient *redis.Client, logger *log.Logger) *CacheService {
	return &CacheService{
		redis:  redisClient,
		logger: logger,
	}
}

// Константы для TTL кэша
const (
	CacheTTLShort  = 5 * time.Minute  // Для часто изменяемых данных
	CacheTTLMedium = 15 * time.Minute // Для умеренно изменяемых данных
)

// associationsViewPrefix префикс ключей сгруппированного представления
const associationsViewPrefix = "associations:view"

// AssociationsViewKey генерирует ключ кэша для страницы сгруппированного
// представления привязок
func AssociationsViewKey(page, pageSize int, search string) string {
	return fmt.Sprintf("%s:%d:%d:%s", associationsViewPrefix, page, pageSize, search)
}

// AssociationsReportKey генерирует ключ кэша выгрузки реестра. Ключи
// живут под префиксом представления и инвалидируются вместе с ним
func AssociationsReportKey(format, search string) string {
	return fmt.Sprintf("%s:report:%s:%s", associationsViewPrefix, format, search)
}

// Get получает значение из кэша
func (cs *CacheService) Get(ctx context.Context, key string) (string, error) {
	if cs.redis == nil {
		return "", fmt.Errorf("Redis не подключен")
	}

	val, err := cs.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("ключ не найден")
	}
	return val, err
}

// Set сохраняет значение в кэш
func (cs *CacheService) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if cs.redis == nil {
		if cs.logger != nil {
			cs.logger.Printf("Redis не подключен, пропускаем кэширование для ключа: %s", key)
		}
		return nil // Не возвращаем ошибку, просто пропускаем кэширование
	}

	return cs.redis.Set(ctx, key, value, ttl).Err()
}

// CacheAssociationsView кэширует страницу сгруппированного представления
func (cs *CacheService) CacheAssociationsView(page, pageSize int, search string, view interface{}) error {
	if cs.redis == nil {
		return nil
	}
	return database.CacheSetJSON(AssociationsViewKey(page, pageSize, search), view, CacheTTLShort)
}

// GetCachedAssociationsView получает страницу сгруппированного
// представления из кэша
func (cs *CacheService) GetCachedAssociationsView(page, pageSize int, search string, dest interface{}) error {
	if cs.redis == nil {
		return fmt.Errorf("Redis не подключен")
	}
	return database.CacheGetJSON(AssociationsViewKey(page, pageSize, search), dest)
}

// InvalidateAssociationsView инвалидирует все страницы сгруппированного
// представления. Вызывается после каждой записи: представление целиком
// выводится из последнего чтения хранилища
func (cs *CacheService) InvalidateAssociationsView() error {
	if cs.redis == nil {
		return nil
	}

	pattern := associationsViewPrefix + ":*"
	keys, err := cs.redis.Keys(database.Ctx, pattern).Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		return cs.redis.Del(database.Ctx, keys...).Err()
	}

	return nil
}
