package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/redis/go-redis/v9"
	"github.com/snr-automations/teamdash/config"
	"github.com/snr-automations/teamdash/internal/data"
)

// Allow-list and profile lookups are short point reads, so a small pool is plenty.
const (
	dbMaxOpenConns    = 10
	dbMaxIdleConns    = 5
	dbConnMaxLifetime = 5 * time.Minute
	connectTimeout    = 5 * time.Second
)

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// ConnectDB opens the Postgres pool that backs authorized_users and user_profiles.
func ConnectDB(cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DBConfig.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
		)
	}
	return db, nil
}

type redisMode string

const (
	redisDirect   redisMode = "direct"
	redisSentinel redisMode = "sentinel"
	redisCluster  redisMode = "cluster"
)

// redisPlan is the client shape resolved from RedisConfig. Addrs never carry
// credentials, so a plan is safe to log.
type redisPlan struct {
	Mode redisMode
	Opts *redis.UniversalOptions
}

func (p redisPlan) String() string {
	if p.Mode == redisSentinel {
		return fmt.Sprintf("sentinel:%s@%s", p.Opts.MasterName, strings.Join(p.Opts.Addrs, ","))
	}
	return string(p.Mode) + ":" + strings.Join(p.Opts.Addrs, ",")
}

//nolint:ireturn // the mode decides the concrete client.
func (p redisPlan) client() redis.UniversalClient {
	switch p.Mode {
	case redisCluster:
		return redis.NewClusterClient(p.Opts.Cluster())
	case redisSentinel:
		return redis.NewFailoverClient(p.Opts.Failover())
	default:
		return redis.NewClient(p.Opts.Simple())
	}
}

// planRedis picks cluster, then sentinel, then a direct connection. REDIS_URI
// may be host:port or a redis:// / rediss:// URL; a password in the URL wins
// over REDIS_PASSWORD.
func planRedis(cfg config.RedisConfig) (redisPlan, error) {
	switch {
	case cfg.UseCluster:
		addrs := nonEmpty(cfg.ClusterNodes)
		if len(addrs) == 0 {
			return redisPlan{}, errors.New("REDIS_USE_CLUSTER requires REDIS_CLUSTER_NODES")
		}
		return redisPlan{Mode: redisCluster, Opts: &redis.UniversalOptions{
			Addrs:    addrs,
			Password: cfg.Password,
		}}, nil

	case cfg.UseSentinel:
		nodes := nonEmpty(cfg.SentinelNodes)
		master := strings.TrimSpace(cfg.SentinelMasterName)
		if len(nodes) == 0 || master == "" {
			return redisPlan{}, errors.New("REDIS_USE_SENTINEL requires REDIS_SENTINEL_NODES and REDIS_SENTINEL_MASTER_NAME")
		}
		return redisPlan{Mode: redisSentinel, Opts: &redis.UniversalOptions{
			Addrs:            nodes,
			MasterName:       master,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
		}}, nil
	}

	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return redisPlan{}, errors.New("REDIS_URI is required")
	}
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		return redisPlan{Mode: redisDirect, Opts: &redis.UniversalOptions{
			Addrs:    []string{uri},
			Password: cfg.Password,
		}}, nil
	}

	opt, err := redis.ParseURL(uri)
	if err != nil {
		return redisPlan{}, fmt.Errorf("parse REDIS_URI: %w", err)
	}
	password := cfg.Password
	if opt.Password != "" {
		password = opt.Password
	}
	return redisPlan{Mode: redisDirect, Opts: &redis.UniversalOptions{
		Addrs:     []string{opt.Addr},
		Username:  opt.Username,
		Password:  password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}}, nil
}

// ConnectRedis connects the store behind provider sessions and recovery tokens.
//
//nolint:ireturn // callers only need the universal client.
func ConnectRedis(cfg DatabaseConfig) (redis.UniversalClient, error) {
	plan, err := planRedis(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	client := plan.client()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis (%s): %w", plan, pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected", "mode", plan.Mode, "addr", plan.String())
	}
	return client, nil
}

func nonEmpty(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := data.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}
	return nil
}
