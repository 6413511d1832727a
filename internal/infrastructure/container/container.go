package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"cointrack/internal/application/port"
	"cointrack/internal/infrastructure/config"
	"cointrack/internal/infrastructure/exchange"
	"cointrack/internal/infrastructure/storage"
	"cointrack/internal/infrastructure/storage/composite"
	pgrepo "cointrack/internal/infrastructure/storage/postgres"
	redisrepo "cointrack/internal/infrastructure/storage/redis"
	sqliterepo "cointrack/internal/infrastructure/storage/sqlite"
)

// Container 包含所有存储依赖
type Container struct {
	cfg         *config.Config
	redisClient *redis.Client
	sqliteRepo  *sqliterepo.Repo
	redisRepo   *redisrepo.Repo
	pgRepo      *pgrepo.Repo
	memStore    *storage.MemoryStore
	closeOnce   sync.Once
	closerChain []func() error
}

// New 创建新的容器实例
func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}

	if err := c.initStorage(); err != nil {
		// 清理已初始化的资源
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// initStorage 初始化存储层（Redis、SQLite、Postgres）
func (c *Container) initStorage() error {
	// Redis
	if c.cfg.Storage.Redis.Enabled {
		if err := c.initRedis(); err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
	}

	// SQLite
	if c.cfg.Storage.SQLite.Enabled {
		if err := c.initSQLite(); err != nil {
			return fmt.Errorf("sqlite init failed: %w", err)
		}
	} else {
		c.memStore = storage.NewMemoryStore()
		log.Warn().Msg("sqlite disabled, user state is kept in memory only")
	}

	// Postgres
	if c.cfg.Storage.Postgres.Enabled {
		if err := c.initPostgres(); err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
	}

	return nil
}

// initRedis 初始化 Redis 连接
func (c *Container) initRedis() error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.cfg.Storage.Redis.Addr,
		Password: c.cfg.Storage.Redis.Password,
		DB:       c.cfg.Storage.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisClient = rdb
	ttl := time.Duration(c.cfg.Storage.Redis.TTLSeconds) * time.Second

	c.redisRepo = redisrepo.New(
		rdb,
		exchange.NewCommonSymbolConverter(c.cfg.Valuation.FallbackQuotes...),
		c.cfg.Storage.Redis.Prefix,
		ttl,
		c.cfg.Storage.Redis.AlertStream,
		c.cfg.Storage.Redis.AlertChannel,
	)

	// 注册关闭回调
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", c.cfg.Storage.Redis.Addr).
		Int("db", c.cfg.Storage.Redis.DB).
		Msg("redis initialized")

	return nil
}

// initSQLite 初始化 SQLite 数据库
func (c *Container) initSQLite() error {
	repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path)
	if err != nil {
		return err
	}

	c.sqliteRepo = repo

	// 注册关闭回调
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().
		Str("path", c.cfg.Storage.SQLite.Path).
		Msg("sqlite initialized")

	return nil
}

func (c *Container) initPostgres() error {
	repo, err := pgrepo.New(c.cfg.Storage.Postgres.DSN)
	if err != nil {
		return err
	}
	c.pgRepo = repo
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})
	log.Info().Msg("postgres initialized")
	return nil
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// RedisClient 获取 Redis 客户端
func (c *Container) RedisClient() *redis.Client {
	return c.redisClient
}

// SQLiteRepo 获取 SQLite 仓储
func (c *Container) SQLiteRepo() *sqliterepo.Repo {
	return c.sqliteRepo
}

// Store is the persisted user state: SQLite when enabled, memory otherwise.
func (c *Container) Store() port.Store {
	if c.sqliteRepo != nil {
		return c.sqliteRepo
	}
	return c.memStore
}

// Snapshots fans portfolio snapshots out to every enabled backend.
func (c *Container) Snapshots() *composite.Repo {
	var repos []port.SnapshotRepository
	if c.sqliteRepo != nil {
		repos = append(repos, c.sqliteRepo)
	}
	if c.pgRepo != nil {
		repos = append(repos, c.pgRepo)
	}
	if c.redisRepo != nil {
		repos = append(repos, c.redisRepo)
	}
	if c.memStore != nil && len(repos) == 0 {
		repos = append(repos, c.memStore)
	}
	return composite.New(repos...)
}

// PriceCache 最新价格写入 SQLite 与 Redis；都未启用时为 noop
func (c *Container) PriceCache() port.PriceCache {
	var caches composite.PriceCaches
	if c.sqliteRepo != nil {
		caches = append(caches, c.sqliteRepo)
	}
	if c.redisRepo != nil {
		caches = append(caches, c.redisRepo)
	}
	if len(caches) == 0 {
		return storage.NoopPriceCache{}
	}
	return caches
}

// AlertSinks lists the external receivers of triggered alerts.
func (c *Container) AlertSinks() []port.AlertSink {
	if c.redisRepo == nil {
		return nil
	}
	return []port.AlertSink{c.redisRepo}
}

// Close 关闭所有资源（按后进先出顺序）
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
