package bot

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"supportbot/core/bootstrap"
	coretelegram "supportbot/core/telegram"
	"supportbot/core/telegram/commands"
	"supportbot/core/telegram/middleware"
	"supportbot/core/telegram/router"
	"supportbot/support/dialog"
	"supportbot/support/engine"
)

// App owns the bot's infrastructure and domain components.
type App struct {
	cfg       *Config
	db        *sqlx.DB
	messenger *Messenger
	engine    *engine.Engine
}

// Bootstrap initializes logging, the database, migrations, and the
// conversation engine.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config provided")
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	messenger := NewMessenger()
	store := dialog.NewStore(res.DB)
	focus := dialog.NewFocusRegister()
	eng := engine.New(store, focus, messenger, cfg.Telegram.AdminID)

	return &App{
		cfg:       cfg,
		db:        res.DB,
		messenger: messenger,
		engine:    eng,
	}, nil
}

// TelegramRunOptions builds the runtime wiring consumed by the core runner.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	adminID := a.cfg.Telegram.AdminID
	reg := coretelegram.NewRegistry()
	h := NewHandlers(a.engine, adminID)

	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "Start a support conversation",
	})
	reg.RegisterCommand("/dialog", commands.Command{
		Handler:     h.DialogCommand,
		Description: "Open a dialog by user id",
		AdminOnly:   true,
		Hidden:      true,
	})

	if err := reg.RegisterCallback(engine.ActionOpenDialog, h.OpenDialogCallback); err != nil {
		return coretelegram.RunOptions{}, err
	}
	if err := reg.RegisterCallback(engine.ActionSetStatus, h.StatusCallback); err != nil {
		return coretelegram.RunOptions{}, err
	}
	if err := reg.RegisterCallback(engine.ActionCancel, h.CancelCallback); err != nil {
		return coretelegram.RunOptions{}, err
	}
	reg.SetTextFallback(h.Text)

	// Every callback in this bot is operator-only.
	guard := middleware.AdminOnlyMiddleware(middleware.AdminOptions{AdminID: adminID})

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: adminID})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{Guard: guard}))
	routes = append(routes, router.MessageRoutes(reg, router.MessageOptions{Photo: h.Photo})...)

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			a.messenger.Bind(rt.Bot)
			return nil
		},
		OnStop: func(_ context.Context, _ coretelegram.Runtime) error {
			return a.db.Close()
		},
	}, nil
}
