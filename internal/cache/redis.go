package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/redis/go-redis/v9"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/model"
)

var (
	ErrLoadingRedisHost = errors.New("error loading cache redis host")
	ErrRedisACL         = errors.New("error loading cache redis ACL credentials")
	ErrRedisTLS         = errors.New("error loading cache redis mTLS config")
	ErrRedisPing        = errors.New("cache redis did not answer ping")
)

// Redis stores TenantInfo as JSON under tenant_db_info:<slug>.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ TenantInfoCache = (*Redis)(nil)

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
	}
}

// NewRedisClient connects to the configured redis and pings it.
func NewRedisClient(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	host, err := commoncfg.LoadValueFromSourceRef(cfg.Host)
	if err != nil {
		return nil, errs.Wrap(ErrLoadingRedisHost, err)
	}

	opts := &redis.Options{
		Addr: net.JoinHostPort(string(host), cfg.Port),
		DB:   cfg.DB,
	}

	if cfg.ACL.Enabled {
		username, err := commoncfg.LoadValueFromSourceRef(cfg.ACL.Username)
		if err != nil {
			return nil, errs.Wrap(ErrRedisACL, err)
		}

		password, err := commoncfg.LoadValueFromSourceRef(cfg.ACL.Password)
		if err != nil {
			return nil, errs.Wrap(ErrRedisACL, err)
		}

		opts.Username = string(username)
		opts.Password = string(password)
	}

	if cfg.SecretRef.Type == commoncfg.MTLSSecretType {
		tlsConfig, err := commoncfg.LoadMTLSConfig(&cfg.SecretRef.MTLS)
		if err != nil {
			return nil, errs.Wrap(ErrRedisTLS, err)
		}

		opts.TLSConfig = tlsConfig
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()
		return nil, errs.Wrap(ErrRedisPing, err)
	}

	log.Info(ctx, "Connected tenant cache", slog.String("addr", opts.Addr))

	return client, nil
}

func (r *Redis) Get(ctx context.Context, slug string) (*model.TenantInfo, bool) {
	raw, err := r.client.Get(ctx, Key(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}

	if err != nil {
		log.Warn(ctx, "Tenant cache read failed", slog.String("tenant", slug), log.ErrorAttr(err))
		return nil, false
	}

	info := &model.TenantInfo{}

	err = json.Unmarshal(raw, info)
	if err != nil {
		log.Warn(ctx, "Dropping undecodable tenant cache entry", slog.String("tenant", slug), log.ErrorAttr(err))
		r.Invalidate(ctx, slug)

		return nil, false
	}

	return info, true
}

func (r *Redis) Set(ctx context.Context, info *model.TenantInfo) {
	if info == nil {
		return
	}

	raw, err := json.Marshal(info)
	if err != nil {
		log.Warn(ctx, "Tenant cache encode failed", slog.String("tenant", info.Slug), log.ErrorAttr(err))
		return
	}

	err = r.client.Set(ctx, Key(info.Slug), raw, r.ttl).Err()
	if err != nil {
		log.Warn(ctx, "Tenant cache write failed", slog.String("tenant", info.Slug), log.ErrorAttr(err))
	}
}

func (r *Redis) Invalidate(ctx context.Context, slug string) {
	err := r.client.Del(ctx, Key(slug)).Err()
	if err != nil {
		log.Warn(ctx, "Tenant cache invalidation failed", slog.String("tenant", slug), log.ErrorAttr(err))
	}
}
