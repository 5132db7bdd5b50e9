// Package storage открывает хранилище реестра и backends проверки
// данных по конфигурации.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/shaiso/exosphere/internal/config"
	"github.com/shaiso/exosphere/internal/existence"
	"github.com/shaiso/exosphere/internal/memstore"
	"github.com/shaiso/exosphere/internal/mongostore"
	"github.com/shaiso/exosphere/internal/redisstore"
	"github.com/shaiso/exosphere/internal/registry"
	"github.com/shaiso/exosphere/internal/repo"
)

// Storage — открытые соединения.
type Storage struct {
	// Store — хранилище реестра выбранного backend.
	Store registry.Store

	// Existence — backends для зависимостей от данных.
	Existence *existence.Checker

	// Addr — host:port хранилища реестра, цель замера задержки.
	Addr string

	closers []func()
}

// Open подключается к хранилищу cfg.StoreBackend.
//
// Реляционный backend проверки данных подключается, если задан DB_URL
// или реестр в PostgreSQL. Документный — если задан MONGO_URL.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Storage{}
	var relational, document existence.Backend

	var pool *pgxpool.Pool
	if cfg.StoreBackend == config.BackendPostgres || cfg.DBURL != "" {
		p, err := repo.NewPool(ctx, cfg.DBURL)
		if err != nil {
			if cfg.StoreBackend == config.BackendPostgres {
				s.Close()
				return nil, fmt.Errorf("connect postgres: %w", err)
			}
			logger.Warn("postgres not available, sql dependencies disabled", "error", err)
		} else {
			pool = p
			s.closers = append(s.closers, p.Close)
			relational = existence.NewPostgres(p)
		}
	}

	var mongoClient *mongo.Client
	if cfg.StoreBackend == config.BackendMongo || cfg.MongoURL != "" {
		c, err := mongostore.Connect(ctx, cfg.MongoURL)
		if err != nil {
			if cfg.StoreBackend == config.BackendMongo {
				s.Close()
				return nil, fmt.Errorf("connect mongo: %w", err)
			}
			logger.Warn("mongo not available, mongo dependencies disabled", "error", err)
		} else {
			mongoClient = c
			s.closers = append(s.closers, func() { _ = c.Disconnect(context.Background()) })
			document = existence.NewMongo(c)
		}
	}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if err := repo.EnsureSchema(ctx, pool); err != nil {
			s.Close()
			return nil, err
		}
		s.Store = repo.NewStore(pool)
		s.Addr = postgresAddr(cfg.DBURL)

	case config.BackendMongo:
		store := mongostore.New(mongoClient, cfg.MongoDatabase)
		if err := store.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.Store = store
		s.Addr = mongoAddr(cfg.MongoURL)

	case config.BackendRedis:
		client, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.Store = redisstore.New(client)
		s.Addr = redisAddr(cfg.RedisURL)

	case config.BackendMemory:
		s.Store = memstore.New()

	default:
		s.Close()
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalid, cfg.StoreBackend)
	}

	s.Existence = existence.New(existence.Config{
		Relational: relational,
		Document:   document,
		Logger:     logger,
	})

	if cfg.ProbeAddr != "" {
		s.Addr = cfg.ProbeAddr
	}
	return s, nil
}

// Close закрывает соединения в обратном порядке.
func (s *Storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func postgresAddr(dsn string) string {
	if dsn == "" {
		dsn = repo.DefaultDSN
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return ""
	}
	return net.JoinHostPort(cfg.ConnConfig.Host, strconv.Itoa(int(cfg.ConnConfig.Port)))
}

func mongoAddr(uri string) string {
	if uri == "" {
		uri = mongostore.DefaultURI
	}
	opts := options.Client().ApplyURI(uri)
	if len(opts.Hosts) == 0 {
		return ""
	}
	host := opts.Hosts[0]
	if _, _, err := net.SplitHostPort(host); err != nil {
		return net.JoinHostPort(host, "27017")
	}
	return host
}

func redisAddr(url string) string {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return ""
	}
	return opts.Addr
}
