package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит все настройки приложения
// Включает конфигурацию для HTTP сервера, MongoDB, Redis, Kafka, JWT и аудита
type Config struct {
	Server ServerConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Kafka  KafkaConfig
	JWT    JWTConfig
	Audit  AuditConfig

	LogLevel string // Уровень логирования (debug/info/warn/error)
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Host string // Адрес хоста (по умолчанию 0.0.0.0)
	Port string // Порт сервера (по умолчанию 8080)
}

// MongoConfig - настройки подключения к MongoDB
// Используется для хранения категорий, товаров, заказов и пользователей
type MongoConfig struct {
	URI      string // Строка подключения mongodb://host:port
	Database string // Имя базы данных
}

// RedisConfig - настройки подключения к Redis для кеширования
// Используется для кеширования списка категорий
type RedisConfig struct {
	Host     string // Хост Redis
	Port     string // Порт Redis
	Password string // Пароль Redis (опционально)
	DB       int    // Номер БД Redis (0-15)
}

// KafkaConfig - настройки Kafka
// Consumer читает события оплаты заказов, producer отправляет
// события изменения товаров
type KafkaConfig struct {
	Brokers      []string // Список брокеров Kafka (формат: host:port)
	OrderTopic   string   // Топик событий ORDER_PAID
	ProductTopic string   // Топик событий PRODUCT_UPDATED
	GroupID      string   // Consumer group
}

// JWTConfig - настройки выпуска и проверки JWT токенов
type JWTConfig struct {
	Secret    string        // Секретный ключ подписи HS256
	AccessTTL time.Duration // Время жизни access токена
}

// AuditConfig - настройки периодического инвентарного аудита
type AuditConfig struct {
	Schedule string // Cron-расписание (по умолчанию каждые 30 минут)
}

// Load загружает конфигурацию из переменных окружения
// Возвращает ошибку, если не удалось распарсить значения
func Load() (*Config, error) {
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB value: %w", err)
	}

	accessTTL, err := time.ParseDuration(getEnv("JWT_ACCESS_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TTL value: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "market"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:      strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			OrderTopic:   getEnv("KAFKA_ORDER_TOPIC", "order_events"),
			ProductTopic: getEnv("KAFKA_PRODUCT_TOPIC", "product_events"),
			GroupID:      getEnv("KAFKA_GROUP_ID", "market-service"),
		},
		JWT: JWTConfig{
			// JWT Secret должен совпадать с остальными сервисами платформы
			Secret:    getEnv("JWT_SECRET", "your-secret-key-change-this-in-production"),
			AccessTTL: accessTTL,
		},
		Audit: AuditConfig{
			Schedule: getEnv("AUDIT_SCHEDULE", "*/30 * * * *"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}, nil
}

// Address возвращает адрес сервера в формате host:port для HTTP сервера
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Address возвращает адрес Redis в формате host:port для подключения
func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
