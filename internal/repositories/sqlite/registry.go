package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ventia/api/internal/repositories"
)

// RegistryDeps bundles everything the SQLite registry needs. Redis is
// optional; when absent the readiness probe only checks the database.
type RegistryDeps struct {
	DB          *sql.DB
	Redis       *redis.Client
	Clock       func() time.Time
	IDGenerator func() string
}

// Registry wires the SQLite repositories behind the repositories.Registry
// interface.
type Registry struct {
	db          *sql.DB
	products    *ProductRepository
	orders      *OrderRepository
	transcripts *TranscriptRepository
	users       *UserRepository
	health      repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs the repository set over one database handle.
func NewRegistry(deps RegistryDeps) (*Registry, error) {
	if deps.DB == nil {
		return nil, errors.New("registry requires a database handle")
	}

	products, err := NewProductRepository(deps.DB)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(OrderRepositoryDeps{DB: deps.DB, Clock: deps.Clock, IDGenerator: deps.IDGenerator})
	if err != nil {
		return nil, err
	}
	transcripts, err := NewTranscriptRepository(TranscriptRepositoryDeps{DB: deps.DB, Clock: deps.Clock, IDGenerator: deps.IDGenerator})
	if err != nil {
		return nil, err
	}
	users, err := NewUserRepository(UserRepositoryDeps{DB: deps.DB, Clock: deps.Clock})
	if err != nil {
		return nil, err
	}

	checks := []repositories.DependencyCheck{
		{Name: "sqlite", Check: func(ctx context.Context) error { return deps.DB.PingContext(ctx) }},
	}
	if deps.Redis != nil {
		client := deps.Redis
		checks = append(checks, repositories.DependencyCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
	}
	var healthOpts []repositories.DependencyHealthOption
	if deps.Clock != nil {
		healthOpts = append(healthOpts, repositories.WithDependencyClock(deps.Clock))
	}
	health, err := repositories.NewDependencyHealthRepository(checks, healthOpts...)
	if err != nil {
		return nil, err
	}

	return &Registry{
		db:          deps.DB,
		products:    products,
		orders:      orders,
		transcripts: transcripts,
		users:       users,
		health:      health,
	}, nil
}

// Close releases the underlying database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Products returns the catalog repository.
func (r *Registry) Products() repositories.ProductRepository { return r.products }

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Transcripts returns the chat log repository.
func (r *Registry) Transcripts() repositories.TranscriptRepository { return r.transcripts }

// Users returns the account repository.
func (r *Registry) Users() repositories.UserRepository { return r.users }

// Health returns the dependency probe repository.
func (r *Registry) Health() repositories.HealthRepository { return r.health }
