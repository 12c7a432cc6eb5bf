package config

import (
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/samber/oops"

	"github.com/openkcm/compliance-hub/internal/constants"
)

//nolint:mnd
var defaultConfig = map[string]any{
	"Cache": map[string]any{
		"Type": string(CacheLocal),
		"TTL":  "30m",
	},
	"Tenancy": map[string]any{
		"TrialDays": constants.DefaultTrialDays,
		"ExemptPrefixes": []string{
			"/admin/", "/api/v2/admin/", "/api/v2/auth/", "/api/auth/", "/api/v1/templates/",
			"/api/docs/", "/api/redoc/", "/static/", "/media/", "/health/",
		},
		"RequiredPatterns": []string{
			"^/api/v1/company/", "^/api/v2/tenants/", "^/api/tenant/", "^/dashboard/", "^/compliance/",
		},
		"ReservedSubdomains": []string{"www", "app", "api", "admin", "localhost"},
		"Probe": map[string]any{
			"Attempts": 3,
			"Delay":    "200ms",
			"Timeout":  "5s",
		},
	},
}

func LoadConfig(opts ...commoncfg.Option) (*Config, error) {
	cfg := &Config{}

	// If loadconfig is called with one of the default ones but different values
	// these are overridden as only the last one takes efect
	options := make([]commoncfg.Option, 0, 3)
	options = append(options,
		commoncfg.WithDefaults(defaultConfig),
		commoncfg.WithPaths(
			constants.DefaultConfigPath1,
			constants.DefaultConfigPath2,
			".",
		),
		commoncfg.WithEnvOverride(constants.APIName),
	)

	options = append(options, opts...)

	loader := commoncfg.NewLoader(
		cfg,
		options...,
	)

	err := loader.LoadConfig()
	if err != nil {
		return nil, oops.Wrapf(err, "failed to load config")
	}

	err = cfg.Validate()
	if err != nil {
		return nil, oops.Wrapf(err, "failed to validate config")
	}

	return cfg, nil
}
