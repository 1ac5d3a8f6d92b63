// =============================================================================
// 📦 skillbridge 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Bot:       BotConfig{},
		Auth:      DefaultAuthConfig(),
		Streaming: DefaultStreamingConfig(),
		Client:    DefaultClientConfig(),
		State:     StateConfig{Backend: "memory"},
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Mongo:     DefaultMongoConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        3978,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		H2C:             true,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultAuthConfig 默认关闭鉴权，开启时必须配置 Secret
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Enabled:  false,
		Issuer:   "skillbridge",
		TokenTTL: 5 * time.Minute,
	}
}

// DefaultStreamingConfig 返回默认 websocket 配置
func DefaultStreamingConfig() StreamingConfig {
	return StreamingConfig{
		Enabled:      true,
		MaxChunkSize: 64 << 10,
		ReadLimit:    4 << 20,
		WriteTimeout: 10 * time.Second,
	}
}

// DefaultClientConfig 返回默认转发配置
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Transport:        "http",
		Timeout:          30 * time.Second,
		RateLimit:        50,
		Burst:            100,
		MaxResponseBytes: 1 << 20,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		KeyPrefix:    "skillbridge:state:",
		StateTTL:     24 * time.Hour,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "postgres",
		Host:            "localhost",
		Port:            5432,
		User:            "skillbridge",
		Password:        "",
		Name:            "skillbridge",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultMongoConfig 返回默认 MongoDB 配置
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		Database:   "skillbridge",
		Collection: "conversation_states",
		Timeout:    10 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "skillbridge",
		Environment:  "development",
		SampleRate:   0.1,
	}
}
