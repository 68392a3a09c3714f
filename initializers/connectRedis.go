package initializers

import (
	"context"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var RedisClient *redis.Client

// ConnectRedis поднимает клиент для кэша каталога.
// Redis необязателен: при недоступности кэширование просто отключается.
func ConnectRedis(config *Config) {
	if config.RedisUrl == "" {
		return
	}

	opt, err := redis.ParseURL(config.RedisUrl)
	if err != nil {
		log.WithError(err).Warn("некорректный REDIS_URL, кэш отключен")
		return
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.WithError(err).Warn("redis недоступен, кэш отключен")
		return
	}

	RedisClient = client
	log.Info("подключение к redis установлено")
}
