package testutils

import (
	"strings"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	gormpostgres "gorm.io/driver/postgres"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/db/dsn"
)

const (
	postgresContainer = "testcontainers-postgresql-shared"
	redisContainer    = "testcontainers-redis-shared"
)

// StartPostgresSQL runs a shared postgres container. A non nil cfg is
// updated with the mapped address.
func StartPostgresSQL(
	tb testing.TB,
	cfg *config.Database,
	opts ...testcontainers.ContainerCustomizer,
) {
	tb.Helper()

	var name string
	var user, secret commoncfg.SourceRef
	if cfg != nil && *cfg != (config.Database{}) {
		name = cfg.Name
		user = cfg.User
		secret = cfg.Secret
	} else {
		name = TestDB.Name
		user = TestDB.User
		secret = TestDB.Secret
	}

	// Do it like this so the user specified override the defaults
	options := append([]testcontainers.ContainerCustomizer{
		postgres.WithDatabase(name),
		postgres.WithUsername(user.Value),
		postgres.WithPassword(secret.Value),
		postgres.BasicWaitStrategies(),
		testcontainers.WithStartupCommand(testcontainers.NewRawCommand([]string{
			"postgres",
			"-c", "max_connections=1000",
		})),
		testcontainers.WithReuseByName(postgresContainer),
	}, opts...)

	service, err := postgres.Run(tb.Context(),
		"postgres:16-alpine",
		options...,
	)
	assert.NoError(tb, err)

	if cfg != nil {
		p, err := service.MappedPort(tb.Context(), nat.Port("5432"))
		assert.NoError(tb, err)

		host, err := service.Host(tb.Context())
		assert.NoError(tb, err)

		cfg.Port = p.Port()
		cfg.Name = name
		cfg.User = user
		cfg.Secret = secret
		cfg.Host = commoncfg.SourceRef{
			Value:  host,
			Source: commoncfg.EmbeddedSourceValue,
		}
	}
}

// StartRedis runs a shared redis container and points cfg at it.
func StartRedis(
	tb testing.TB,
	cfg *config.Redis,
	opts ...testcontainers.ContainerCustomizer,
) {
	tb.Helper()

	// Do it like this so the user specified override the defaults
	options := append([]testcontainers.ContainerCustomizer{
		testcontainers.WithReuseByName(redisContainer),
	}, opts...)

	redisContainer, err := redis.Run(tb.Context(),
		"redis:7",
		options...,
	)

	assert.NoError(tb, err)

	if cfg != nil {
		port, err := redisContainer.MappedPort(tb.Context(), nat.Port("6379"))
		assert.NoError(tb, err)

		host, err := redisContainer.Host(tb.Context())
		assert.NoError(tb, err)

		cfg.Port = port.Port()
		cfg.Host = commoncfg.SourceRef{
			Value:  host,
			Source: commoncfg.EmbeddedSourceValue,
		}
	}
}

// NewPostgresDB returns the config of a fresh database on the shared
// postgres container. The database is dropped when the test ends.
func NewPostgresDB(tb testing.TB) config.Database {
	tb.Helper()

	cfg := TestDB
	StartPostgresSQL(tb, &cfg)

	adminDSN, err := dsn.FromDBConfig(cfg)
	require.NoError(tb, err)

	admin, err := gorm.Open(gormpostgres.Open(adminDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(tb, err)

	name := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	require.NoError(tb, admin.Exec("CREATE DATABASE "+name).Error)

	tb.Cleanup(func() {
		_ = admin.Exec("DROP DATABASE IF EXISTS " + name + " WITH (FORCE)").Error

		sqlDB, err := admin.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg.Name = name

	return cfg
}
