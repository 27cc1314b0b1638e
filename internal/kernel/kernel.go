// Package kernel boots the motoadmin runtime: configuration, logging,
// storage disks, the admin session and the catalog repository.
//
// This package is INTERNAL. Commands receive a *Kernel and never build
// these pieces themselves.
package kernel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/app/repositories"
	"github.com/vmcmoto/motoportal/app/services"
	"github.com/vmcmoto/motoportal/config"
	"github.com/vmcmoto/motoportal/pkg/cache"
	"github.com/vmcmoto/motoportal/pkg/crypt"
	"github.com/vmcmoto/motoportal/pkg/event"
	"github.com/vmcmoto/motoportal/pkg/logger"
	"github.com/vmcmoto/motoportal/pkg/session"
	"github.com/vmcmoto/motoportal/pkg/storage"
)

const sessionCacheKey = "motoadmin:session"

// Options tweaks Boot.
type Options struct {
	Quiet     bool      // drop console logs
	LogOutput io.Writer // defaults to os.Stderr
}

// Kernel holds the booted services.
type Kernel struct {
	Repo       *repositories.CatalogRepository
	Sessions   *session.Manager
	Auth       *services.AuthService
	Categories *services.CategoryService
	Bus        *event.Bus

	closers []func()
}

// Boot wires everything from config. Optional pieces (MongoDB audit log,
// S3 disk) are skipped with a warning when unreachable; a missing Redis for
// SESSION_DRIVER=redis is an error.
func Boot(ctx context.Context, opts Options) (*Kernel, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("kernel: config: %w", err)
	}

	k := &Kernel{Bus: event.New()}
	k.bootLogger(ctx, opts)
	k.auditChanges()

	if err := storage.Connect(ctx); err != nil {
		return nil, fmt.Errorf("kernel: storage: %w", err)
	}
	disk, err := storage.Use("local")
	if err != nil {
		return nil, err
	}

	store, err := k.sessionStore(ctx, disk)
	if err != nil {
		k.Close()
		return nil, err
	}
	k.Sessions = session.NewManager(store)

	k.Repo = repositories.NewCatalogRepository(config.APIBaseURL(), k.Sessions,
		repositories.WithTimeout(config.APITimeout()),
		repositories.WithRetries(config.APIRetries()),
	)
	k.Auth = services.NewAuthService(k.Repo, k.Sessions)

	catDisk, err := storage.Default()
	if err != nil {
		catDisk = disk
	}
	k.Categories = services.NewCategoryService(catDisk, config.CategoriesPath(), k.Repo)
	return k, nil
}

// Editor returns a model editor configured from PHOTO_MAX_BYTES.
func (k *Kernel) Editor(opts ...services.EditorOption) *services.ModelEditor {
	opts = append([]services.EditorOption{
		services.WithEditorEvents(k.Bus),
		services.WithPhotoOptions(services.WithMaxBytes(config.PhotoMaxBytes())),
	}, opts...)
	return services.NewModelEditor(k.Repo, opts...)
}

// Close flushes the audit log and releases connections.
func (k *Kernel) Close() {
	for i := len(k.closers) - 1; i >= 0; i-- {
		k.closers[i]()
	}
	k.closers = nil
}

func (k *Kernel) bootLogger(ctx context.Context, opts Options) {
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	if opts.Quiet {
		out = io.Discard
	}
	console := logger.NewHandler(out, config.AppEnv())

	uri := config.LogMongoURI()
	if uri == "" {
		logger.SetDefault(slog.New(console))
		return
	}
	audit, err := logger.NewMongoHandler(ctx, uri, config.LogMongoDB())
	if err != nil {
		logger.SetDefault(slog.New(console))
		logger.Warn("audit log disabled", "error", err)
		return
	}
	logger.SetDefault(slog.New(logger.NewMultiHandler(console, audit)))
	k.closers = append(k.closers, audit.Close)
}

// auditChanges logs every catalog change fired on the bus.
func (k *Kernel) auditChanges() {
	k.Bus.Listen(services.EventModelSaved, func(p interface{}) {
		m := p.(models.Model)
		logger.Info("catalog changed", "op", services.EventModelSaved, "model_id", m.ID, "name", m.Name)
	})
	k.Bus.Listen(services.EventModelDeleted, func(p interface{}) {
		logger.Info("catalog changed", "op", services.EventModelDeleted, "model_id", p.(int64))
	})
	k.Bus.Listen(services.EventPhotosChanged, func(p interface{}) {
		c := p.(services.PhotosChanged)
		logger.Info("catalog changed", "op", services.EventPhotosChanged, "model_id", c.ModelID, "photos", len(c.Photos))
	})
	k.Bus.Listen(services.EventSpecsChanged, func(p interface{}) {
		logger.Info("catalog changed", "op", services.EventSpecsChanged, "model_id", p.(int64))
	})
}

func (k *Kernel) sessionStore(ctx context.Context, disk storage.Disk) (session.Store, error) {
	box, err := crypt.Default()
	if err != nil {
		return nil, fmt.Errorf("kernel: session key: %w", err)
	}

	switch config.SessionDriver() {
	case "redis":
		rdb, err := cache.Connect(ctx, config.RedisAddr(), config.RedisPassword())
		if err != nil {
			return nil, fmt.Errorf("kernel: session store: %w", err)
		}
		k.closers = append(k.closers, func() { _ = rdb.Close() })
		return session.NewCacheStore(rdb, sessionCacheKey, box), nil
	case "memory":
		return session.NewCacheStore(cache.NewMemoryStore(), sessionCacheKey, box), nil
	default:
		return session.NewFileStore(disk, config.SessionPath(), box), nil
	}
}
