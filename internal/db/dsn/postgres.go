package dsn

import (
	"errors"
	"fmt"

	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/model"
)

var (
	ErrLoadingDatabaseHost     = errors.New("error loading database host")
	ErrLoadingDatabaseUser     = errors.New("error loading database user")
	ErrLoadingDatabasePassword = errors.New("error loading database password")
	ErrMissingTenantIdentity   = errors.New("tenant has no schema or database to connect to")
)

// FromDBConfig converts `config.Database` data to a DSN and returns it.
func FromDBConfig(conf config.Database) (string, error) {
	host, err := commoncfg.LoadValueFromSourceRef(conf.Host)
	if err != nil {
		return "", errs.Wrap(ErrLoadingDatabaseHost, err)
	}

	user, err := commoncfg.LoadValueFromSourceRef(conf.User)
	if err != nil {
		return "", errs.Wrap(ErrLoadingDatabaseUser, err)
	}

	password, err := commoncfg.LoadValueFromSourceRef(conf.Secret)
	if err != nil {
		return "", errs.Wrap(ErrLoadingDatabasePassword, err)
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s",
		host, user, string(password), conf.Name, conf.Port), nil
}

// ForTenant builds the DSN of a tenant store.
//
// SCHEMA tenants share the main database and credentials and are routed by
// search_path. DATABASE tenants connect to their own database with their own
// role; password is the decrypted role password.
func ForTenant(conf config.Database, params model.ConnectionParams, password string) (string, error) {
	switch params.IsolationMode {
	case model.IsolationDatabase:
		if params.DatabaseName == "" || params.DatabaseUser == "" {
			return "", ErrMissingTenantIdentity
		}

		host := params.DatabaseHost
		if host == "" {
			v, err := commoncfg.LoadValueFromSourceRef(conf.Host)
			if err != nil {
				return "", errs.Wrap(ErrLoadingDatabaseHost, err)
			}

			host = string(v)
		}

		port := params.DatabasePort
		if port == "" {
			port = conf.Port
		}

		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s search_path=public",
			host, params.DatabaseUser, password, params.DatabaseName, port), nil
	default:
		if params.SchemaName == "" {
			return "", ErrMissingTenantIdentity
		}

		base, err := FromDBConfig(conf)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("%s search_path=%s,public", base, params.SchemaName), nil
	}
}
