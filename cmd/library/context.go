package main

import (
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/Dolverin/Anime-Library/internal/infrastructure/events/nats"
	"github.com/Dolverin/Anime-Library/internal/library/repository"
	"github.com/Dolverin/Anime-Library/internal/library/service"
	"github.com/Dolverin/Anime-Library/pkg/config"
	"github.com/Dolverin/Anime-Library/pkg/database"
	"github.com/Dolverin/Anime-Library/pkg/events"
	"github.com/Dolverin/Anime-Library/pkg/interfaces"
	"github.com/Dolverin/Anime-Library/pkg/logger"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.AppConfig
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.AppConfig, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// app is the wired component graph a command runs against.
type app struct {
	cfg      *config.AppConfig
	logger   *logger.ZapLogger
	db       *gorm.DB
	bus      *events.InMemoryEventBus
	library  *service.LibraryService
	migrated int
	cleanup  []func()
}

// openApp builds the logger, opens and migrates the catalog store and wires
// the library service. Callers must Close the result.
func (c *commandContext) openApp() (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	log, err := cfg.Logger.ToLoggerConfig().Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	a := &app{cfg: cfg, logger: log}
	a.cleanup = append(a.cleanup, func() { _ = log.Sync() })

	db, err := database.Open(cfg.Database.ToDatabaseConfig(), log.Zap().Named("gorm"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.db = db
	a.cleanup = append(a.cleanup, func() {
		if err := database.Close(db); err != nil {
			log.Warn("Failed to close database", interfaces.Error(err))
		}
	})

	a.migrated, err = database.NewMigrator(db, log.Zap(), repository.Migrations()...).Migrate()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.bus = events.NewInMemoryEventBus(log)
	if cfg.Events.NatsURL != "" {
		a.connectNats()
	}
	// Registered after the NATS drain so the bus stops first.
	a.cleanup = append(a.cleanup, func() { _ = a.bus.Stop() })

	a.library = service.NewLibraryService(repository.NewGormRepository(db), a.bus, log, service.Options{
		LockPath:        cfg.Library.LockPath,
		Extensions:      cfg.Library.Extensions,
		GenericDirNames: cfg.Library.GenericDirNames,
		HashFiles:       cfg.Library.HashFiles,
	})
	return a, nil
}

// connectNats forwards bus events to NATS. An unreachable broker only costs
// the notifications, so the run continues without it.
func (a *app) connectNats() {
	client, closeClient, err := nats.NewClient(nats.Config{
		URL:           a.cfg.Events.NatsURL,
		ClientID:      a.cfg.Service.Name,
		SubjectPrefix: a.cfg.Events.SubjectPrefix,
	}, a.logger.Zap())
	if err != nil {
		a.logger.Warn("Event forwarding disabled", interfaces.Error(err))
		return
	}
	a.cleanup = append(a.cleanup, closeClient)
	if err := a.bus.Subscribe(interfaces.AllEvents, nats.NewForwarder(client, client.Prefix(), a.logger)); err != nil {
		a.logger.Warn("Event forwarding disabled", interfaces.Error(err))
	}
}

// Close releases everything openApp acquired, newest first.
func (a *app) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}
