package config

import (
	"errors"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/openkcm/compliance-hub/internal/errs"
)

var (
	ErrConfigurationValuesError = errors.New("configuration value error")
	ErrNonDefinedTaskType       = errors.New("task type is unknown")
	ErrRepeatedTaskType         = errors.New("task type is specified more than once")
	ErrUnknownCacheType         = errors.New("cache type must be local or redis")
	ErrNonPositiveCacheTTL      = errors.New("cache TTL must be positive")
	ErrTrialDaysOutOfRange      = errors.New("trial days must be between 1 and 90")
	ErrProbeAttempts            = errors.New("connection probe attempts must be at least 1")
	ErrLoadMTLSConfig           = errors.New("error loading mTLS config")
)

// Config holds all application configuration parameters
type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash"`

	Database         Database   `yaml:"database"`
	DatabaseReplicas []Database `yaml:"databaseReplicas"`
	Scheduler        Scheduler  `yaml:"scheduler"`
	HTTP             HTTPServer `yaml:"http"`
	Cache            Cache      `yaml:"cache"`
	Tenancy          Tenancy    `yaml:"tenancy"`
}

func (c *Config) Validate() error {
	err := c.Scheduler.Validate()
	if err != nil {
		return errs.Wrap(ErrConfigurationValuesError, err)
	}

	err = c.Cache.Validate()
	if err != nil {
		return errs.Wrap(ErrConfigurationValuesError, err)
	}

	err = c.Tenancy.Validate()
	if err != nil {
		return errs.Wrap(ErrConfigurationValuesError, err)
	}

	return nil
}

// Scheduler holds a scheduler config
type Scheduler struct {
	TaskQueue Redis
	Tasks     []Task
}

func (s *Scheduler) Validate() error {
	checkedTasks := make(map[string]struct{}, len(s.Tasks))
	for _, task := range s.Tasks {
		_, found := PeriodicTasks[task.TaskType]
		if !found {
			return ErrNonDefinedTaskType
		}

		_, found = checkedTasks[task.TaskType]
		if found {
			return ErrRepeatedTaskType
		}

		checkedTasks[task.TaskType] = struct{}{}
	}

	return nil
}

// Task holds a task config
type Task struct {
	Cronspec string
	TaskType string
	Retries  int
}

// Redis holds Redis client config
type Redis struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	Port      string              `yaml:"port"`
	DB        int                 `yaml:"db"`
	ACL       RedisACL            `yaml:"acl"`
	SecretRef commoncfg.SecretRef
}

type RedisACL struct {
	Enabled  bool                `yaml:"enabled"`
	Password commoncfg.SourceRef `yaml:"password"`
	Username commoncfg.SourceRef `yaml:"username"`
}

// Database holds database config
type Database struct {
	Name   string              `yaml:"name"`
	Port   string              `yaml:"port"`
	Host   commoncfg.SourceRef `yaml:"host"`
	User   commoncfg.SourceRef `yaml:"user"`
	Secret commoncfg.SourceRef `yaml:"secret"`

	// OperatingRole is granted usage on every tenant schema.
	OperatingRole string   `yaml:"operatingRole"`
	Migrator      Migrator `yaml:"migrator"`
}

type Migrator struct {
	Shared MigrationDirs `yaml:"shared"`
	Tenant MigrationDirs `yaml:"tenant"`
}

type MigrationDirs struct {
	Schema string `yaml:"schema"`
	Data   string `yaml:"data"`
}

// HTTPServer holds http server config
type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

type CacheType string

const (
	CacheLocal CacheType = "local"
	CacheRedis CacheType = "redis"
)

// Cache holds the tenant lookup cache config
type Cache struct {
	Type  CacheType     `yaml:"type"`
	TTL   time.Duration `yaml:"ttl"`
	Redis Redis         `yaml:"redis"`
}

func (c *Cache) Validate() error {
	if c.Type != CacheLocal && c.Type != CacheRedis {
		return ErrUnknownCacheType
	}

	if c.TTL <= 0 {
		return ErrNonPositiveCacheTTL
	}

	return nil
}

// Tenancy holds request admission and provisioning settings
type Tenancy struct {
	ExemptPrefixes     []string `yaml:"exemptPrefixes"`
	RequiredPatterns   []string `yaml:"requiredPatterns"`
	ReservedSubdomains []string `yaml:"reservedSubdomains"`
	TrialDays          int      `yaml:"trialDays"`

	// CredentialKey is the 32 byte key sealing tenant database passwords.
	CredentialKey commoncfg.SourceRef `yaml:"credentialKey"`
	// SigningKey verifies bearer tokens of inbound requests.
	SigningKey commoncfg.SourceRef `yaml:"signingKey"`

	Probe Probe `yaml:"probe"`
}

// Probe configures the round trip check on a new tenant connection.
type Probe struct {
	Attempts uint          `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
	Timeout  time.Duration `yaml:"timeout"`
}

const (
	minTrialDays = 1
	maxTrialDays = 90
)

func (t *Tenancy) Validate() error {
	if t.TrialDays < minTrialDays || t.TrialDays > maxTrialDays {
		return ErrTrialDaysOutOfRange
	}

	if t.Probe.Attempts < 1 {
		return ErrProbeAttempts
	}

	return nil
}
