package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/goliatone/go-flowx/api"
	"github.com/goliatone/go-flowx/cache"
	"github.com/goliatone/go-flowx/config"
	"github.com/goliatone/go-flowx/internal/cacheinfra"
	"github.com/goliatone/go-flowx/model"
	"github.com/goliatone/go-flowx/notify"
	"github.com/goliatone/go-flowx/persist"
	"github.com/goliatone/go-flowx/service"
	"github.com/goliatone/go-flowx/store"
	"github.com/goliatone/go-flowx/upload"
	"github.com/goliatone/go-flowx/workflow"
	"github.com/uptrace/bun"
)

// Persistable is implemented by stores that can snapshot their cache.
type Persistable interface {
	Persist(ctx context.Context) error
	Restore(ctx context.Context) (bool, error)
}

// Option customises how NewContainer builds the object graph.
type Option func(*settings)

type settings struct {
	logger     *slog.Logger
	logOutput  io.Writer
	httpClient *http.Client
	tokens     api.TokenSource
}

// WithLogger replaces the logger derived from the log configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithLogOutput sets where the configured logger writes. Defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(s *settings) {
		s.logOutput = w
	}
}

// WithHTTPClient is shared by the API client and the uploader.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		s.httpClient = hc
	}
}

// WithTokenSource takes precedence over the token in the configuration.
func WithTokenSource(ts api.TokenSource) Option {
	return func(s *settings) {
		s.tokens = ts
	}
}

// Container owns the object graph of one FlowX session: a single cache
// service shared by every store, the API client and services, the stores,
// the uploader, the notification listener and the multi-step flows.
type Container struct {
	config        config.Config
	logger        *slog.Logger
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	client        *api.Client

	members       *store.MemberStore
	tasks         *store.TaskStore
	projects      *store.ProjectStore
	directory     *store.DirectoryStore
	notifications *store.NotificationStore

	uploader *upload.Uploader
	listener *notify.Listener
	flows    *workflow.Flows

	db *bun.DB

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewContainer builds every component from cfg. The context bounds the
// opening of the snapshot database only.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	s := settings{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&s)
	}
	if s.tokens == nil && cfg.Auth.Token != "" {
		s.tokens = api.StaticToken(cfg.Auth.Token)
	}

	logger := s.logger
	if logger == nil {
		logger = NewLogger(cfg.Log, s.logOutput)
	}

	cacheService, err := cacheinfra.NewSturdycService(cfg.Cache)
	if err != nil {
		return nil, err
	}
	keySerializer := cache.NewDefaultKeySerializer()

	clientOpts := []api.Option{api.WithLogger(logger.With("component", "api"))}
	if s.tokens != nil {
		clientOpts = append(clientOpts, api.WithTokenSource(s.tokens))
	}
	if s.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(s.httpClient))
	}
	client, err := api.New(cfg.API, clientOpts...)
	if err != nil {
		return nil, err
	}

	c := &Container{
		config:        cfg,
		logger:        logger,
		cacheService:  cacheService,
		keySerializer: keySerializer,
		client:        client,
	}

	snapshots, err := c.openSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	storeOpts := func(name string) []store.Option {
		o := []store.Option{
			store.WithLogger(logger.With("component", name)),
			store.WithKeySerializer(keySerializer),
		}
		if snapshots != nil {
			o = append(o, store.WithSnapshots(snapshots))
		}
		return o
	}

	c.members = store.NewMemberStore(service.NewProjectMemberService(client), cacheService, storeOpts("members")...)
	c.tasks = store.NewTaskStore(service.NewTaskService(client), cacheService, storeOpts("tasks")...)
	c.projects = store.NewProjectStore(service.NewProjectService(client), cacheService, storeOpts("projects")...)
	c.directory = store.NewDirectoryStore(service.NewDirectory(client), cacheService, storeOpts("directory")...)
	c.notifications = store.NewNotificationStore(service.NewNotificationService(client), cacheService, storeOpts("notifications")...)

	uploadOpts := []upload.Option{upload.WithLogger(logger.With("component", "upload"))}
	if s.httpClient != nil {
		uploadOpts = append(uploadOpts, upload.WithHTTPClient(s.httpClient))
	}
	c.uploader = upload.New(service.NewFileService(client), uploadOpts...)

	if cfg.WebSocket.URL != "" {
		c.listener = notify.New(cfg.WebSocket.URL, s.tokens,
			notify.WithReconnectDelay(cfg.WebSocket.ReconnectDelay),
			notify.WithLogger(logger.With("component", "notify")),
		)
		c.listener.OnNotification(c.notifications.Push)
	}

	c.flows = workflow.NewFlows(c.projects, c.members, c.tasks, c.uploader, logger.With("component", "workflow"))
	return c, nil
}

func (c *Container) openSnapshots(ctx context.Context) (store.SnapshotStore, error) {
	p := c.config.Persistence
	codec, err := persist.CodecByName(p.Codec)
	if err != nil {
		return nil, err
	}

	switch p.Driver {
	case "", config.PersistNone:
		return nil, nil
	case config.PersistMemory:
		return persist.NewMemoryStore(codec), nil
	case config.PersistSQLite, config.PersistPostgres:
		db, err := persist.OpenBun(ctx, p.Driver, p.DSN)
		if err != nil {
			return nil, fmt.Errorf("open snapshot database: %w", err)
		}
		c.db = db
		return persist.NewBunStore(persist.NewSnapshotRepository(db),
			persist.WithCodec(codec),
			persist.WithCache(c.cacheService, c.keySerializer),
			persist.WithLogger(c.logger.With("component", "persist")),
		), nil
	default:
		return nil, fmt.Errorf("unknown persistence driver %q", p.Driver)
	}
}

// NewLogger builds the slog logger described by cfg.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// CacheService returns the cache shared by every store.
func (c *Container) CacheService() cache.CacheService { return c.cacheService }

// KeySerializer returns the serializer the stores build keys with.
func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

// Config returns a copy of the configuration the container was built from.
func (c *Container) Config() config.Config { return c.config }

// Logger returns the session logger.
func (c *Container) Logger() *slog.Logger { return c.logger }

// Client returns the authenticated API client.
func (c *Container) Client() *api.Client { return c.client }

// Members returns the project member store.
func (c *Container) Members() *store.MemberStore { return c.members }

// Tasks returns the task store.
func (c *Container) Tasks() *store.TaskStore { return c.tasks }

// Projects returns the project store.
func (c *Container) Projects() *store.ProjectStore { return c.projects }

// Directory returns the user and department store.
func (c *Container) Directory() *store.DirectoryStore { return c.directory }

// Notifications returns the notification feed store.
func (c *Container) Notifications() *store.NotificationStore { return c.notifications }

// Uploader returns the presigned file uploader.
func (c *Container) Uploader() *upload.Uploader { return c.uploader }

// Flows returns the multi-step flows.
func (c *Container) Flows() *workflow.Flows { return c.flows }

// Listener is nil when no WebSocket URL is configured.
func (c *Container) Listener() *notify.Listener { return c.listener }

func (c *Container) persistables() map[string]Persistable {
	return map[string]Persistable{
		"members":       c.members,
		"tasks":         c.tasks,
		"projects":      c.projects,
		"notifications": c.notifications,
	}
}

// PersistAll snapshots every persistable store. It is a no-op when
// persistence is disabled.
func (c *Container) PersistAll(ctx context.Context) error {
	var errs []error
	for name, p := range c.persistables() {
		if err := p.Persist(ctx); err != nil && !errors.Is(err, store.ErrNoSnapshots) {
			errs = append(errs, fmt.Errorf("persist %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// RestoreAll reloads every persistable store and returns how many found a
// snapshot.
func (c *Container) RestoreAll(ctx context.Context) (int, error) {
	restored := 0
	var errs []error
	for name, p := range c.persistables() {
		ok, err := p.Restore(ctx)
		if err != nil {
			if !errors.Is(err, store.ErrNoSnapshots) {
				errs = append(errs, fmt.Errorf("restore %s: %w", name, err))
			}
			continue
		}
		if ok {
			restored++
		}
	}
	return restored, errors.Join(errs...)
}

// StartNotifications runs the listener in the background until ctx ends or
// Close is called. Starting twice is a no-op.
func (c *Container) StartNotifications(ctx context.Context) error {
	if c.listener == nil {
		return errors.New("notifications: no websocket url configured")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		err := c.listener.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("notification listener stopped", "error", err)
		}
	}(c.done)
	return nil
}

// OnNotification adds fn after the store update for every pushed notification.
func (c *Container) OnNotification(fn func(model.Notification)) {
	if c.listener == nil {
		return
	}
	c.listener.OnNotification(func(n model.Notification) {
		c.notifications.Push(n)
		fn(n)
	})
}

// Close stops the listener and releases the snapshot database.
func (c *Container) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	c.mu.Lock()
	db := c.db
	c.db = nil
	c.mu.Unlock()
	if db != nil {
		return db.Close()
	}
	return nil
}
