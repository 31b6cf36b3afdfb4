package persist

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-flowx/cache"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// snapshotNamespace seeds the deterministic row ids derived from storage keys.
var snapshotNamespace = uuid.MustParse("6f1c3b8e-2f4a-4d55-9a57-7c0e0b1d9a10")

// Snapshot is one persisted store slice.
type Snapshot struct {
	bun.BaseModel `bun:"table:flowx_snapshots,alias:fs"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Key       string    `bun:"storage_key,notnull,unique" json:"key"`
	Codec     string    `bun:"codec,notnull" json:"codec"`
	Payload   []byte    `bun:"payload" json:"payload"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// SnapshotID is the row id a storage key always maps to.
func SnapshotID(key string) uuid.UUID {
	return uuid.NewSHA1(snapshotNamespace, []byte(key))
}

// SnapshotHandlers describes Snapshot to go-repository-bun.
func SnapshotHandlers() repository.ModelHandlers[*Snapshot] {
	return repository.ModelHandlers[*Snapshot]{
		NewRecord: func() *Snapshot { return &Snapshot{} },
		GetID: func(s *Snapshot) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *Snapshot, id uuid.UUID) {
			s.ID = id
		},
		GetIdentifier: func() string {
			return "storage_key"
		},
	}
}

// OpenBun opens the snapshot database for driver and makes sure the
// snapshot table exists.
func OpenBun(ctx context.Context, driver, dsn string) (*bun.DB, error) {
	var db *bun.DB
	switch driver {
	case DriverSQLite, "sqlite3":
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, err
		}
		// sqlite serialises writers; one connection avoids SQLITE_BUSY.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, err
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("persist: unsupported driver %q", driver)
	}

	if _, err := db.NewCreateTable().Model((*Snapshot)(nil)).IfNotExists().Exec(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("persist: create snapshot table: %w", err)
	}
	return db, nil
}

// NewSnapshotRepository builds the go-repository-bun repository for db.
func NewSnapshotRepository(db *bun.DB) repository.Repository[*Snapshot] {
	return repository.NewRepository[*Snapshot](db, SnapshotHandlers())
}

// BunStore persists snapshots as rows of flowx_snapshots. With a cache
// attached, loads read through it and saves invalidate the key.
type BunStore struct {
	repo   repository.Repository[*Snapshot]
	codec  Codec
	cache  cache.CacheService
	keys   cache.KeySerializer
	logger *slog.Logger
	now    func() time.Time
}

// BunOption configures a BunStore.
type BunOption func(*BunStore)

// WithCodec sets the payload encoding. JSON is the default.
func WithCodec(c Codec) BunOption {
	return func(s *BunStore) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithCache serves repeated loads of the same key from svc.
func WithCache(svc cache.CacheService, keys cache.KeySerializer) BunOption {
	return func(s *BunStore) {
		s.cache = svc
		if keys != nil {
			s.keys = keys
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) BunOption {
	return func(s *BunStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewBunStore returns a snapshot store over repo.
func NewBunStore(repo repository.Repository[*Snapshot], opts ...BunOption) *BunStore {
	s := &BunStore{
		repo:   repo,
		codec:  JSON(),
		keys:   cache.NewDefaultKeySerializer(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BunStore) cacheKey(key string) string {
	return s.keys.SerializeKey("snapshot", key)
}

// find returns the row stored under key, or nil.
func (s *BunStore) find(ctx context.Context, key string) (*Snapshot, error) {
	rows, _, err := s.repo.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.storage_key = ?", key).Limit(1)
	})
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row != nil && row.Key == key {
			return row, nil
		}
	}
	return nil, nil
}

func (s *BunStore) lookup(ctx context.Context, key string) (*Snapshot, error) {
	if s.cache == nil {
		return s.find(ctx, key)
	}
	return cache.GetOrFetch(ctx, s.cache, s.cacheKey(key), func(ctx context.Context) (*Snapshot, error) {
		return s.find(ctx, key)
	})
}

// Load decodes the snapshot under key into dest. It reports false when no row exists.
func (s *BunStore) Load(ctx context.Context, key string, dest any) (bool, error) {
	row, err := s.lookup(ctx, key)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryExternal, "load snapshot "+key)
	}
	if row == nil {
		return false, nil
	}

	codec, err := CodecByName(row.Codec)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "load snapshot "+key)
	}
	if err := codec.Unmarshal(row.Payload, dest); err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "decode snapshot "+key)
	}
	return true, nil
}

// Save upserts the snapshot row for key.
func (s *BunStore) Save(ctx context.Context, key string, value any) error {
	payload, err := s.codec.Marshal(value)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "encode snapshot "+key)
	}

	existing, err := s.find(ctx, key)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "save snapshot "+key)
	}

	row := &Snapshot{
		ID:        SnapshotID(key),
		Key:       key,
		Codec:     s.codec.Name(),
		Payload:   payload,
		UpdatedAt: s.now().UTC(),
	}
	if existing != nil {
		row.ID = existing.ID
		_, err = s.repo.Update(ctx, row)
	} else {
		_, err = s.repo.Create(ctx, row)
	}
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "save snapshot "+key)
	}

	s.invalidate(ctx, key)
	s.logger.Debug("snapshot saved", "key", key, "codec", row.Codec, "bytes", len(payload))
	return nil
}

// Delete removes the snapshot row for key, if any.
func (s *BunStore) Delete(ctx context.Context, key string) error {
	existing, err := s.find(ctx, key)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "delete snapshot "+key)
	}
	if existing == nil {
		return nil
	}
	if err := s.repo.Delete(ctx, existing); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "delete snapshot "+key)
	}
	s.invalidate(ctx, key)
	return nil
}

func (s *BunStore) invalidate(ctx context.Context, key string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, s.cacheKey(key))
	}
}
