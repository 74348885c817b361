package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmcleod/adconsole/api"
	"github.com/jmcleod/adconsole/config"
	"github.com/jmcleod/adconsole/gateway"
	"github.com/jmcleod/adconsole/internal/util"
	"github.com/jmcleod/adconsole/navigation"
	"github.com/jmcleod/adconsole/notify"
	"github.com/jmcleod/adconsole/session"
	"github.com/jmcleod/adconsole/storage"
	bboltstorage "github.com/jmcleod/adconsole/storage/bbolt"
	"github.com/jmcleod/adconsole/storage/memory"
	redisstorage "github.com/jmcleod/adconsole/storage/redis"
)

// app is the wired console: one session store shared by the controller,
// the gateway and the router.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	out      io.Writer
	errOut   io.Writer
	notifier *notify.Console
	repo     storage.Repository
	store    *session.Store
	gw       *gateway.Gateway
	client   *api.Client
	ctrl     *session.Controller
	router   *navigation.Router
}

func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.apiURL != "" {
		cfg.API.BaseURL = opts.apiURL
	}
	if opts.lang != "" {
		cfg.UI.Language = opts.lang
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.noColor {
		off := false
		cfg.UI.Color = &off
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	color.NoColor = color.NoColor || !cfg.ColorEnabled()

	a := &app{
		cfg:    cfg,
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}
	a.logger = newLogger(a.errOut, cfg.Logging.Level)
	a.notifier = notify.NewConsole(a.errOut, notify.ParseLanguage(cfg.UI.Language))

	repo, deviceKey, err := openRepository(cmd, cfg)
	if err != nil {
		return nil, err
	}
	a.repo = repo
	defer util.WipeBytes(deviceKey)

	slot, err := session.NewSealedSlot(repo, deviceKey)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.store, err = session.NewStore(slot); err != nil {
		a.Close()
		return nil, err
	}

	table, err := navigation.NewTable(navigation.DefaultRoutes())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.router = navigation.NewRouter(table, a.store, navigation.WithRouterLogger(a.logger))

	a.gw, err = gateway.New(cfg.API.BaseURL, a.store,
		gateway.WithTimeout(cfg.API.Timeout),
		gateway.WithNotifier(a.notifier),
		gateway.WithNavigator(a.router),
		gateway.WithLogger(a.logger),
		gateway.WithUserAgent("adconsole/"+Version),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = api.NewClient(a.gw)
	a.ctrl = session.NewController(a.store, a.client.Auth,
		session.WithNotifier(a.notifier),
		session.WithLogger(a.logger),
	)
	a.gw.BindTeardown(a.ctrl)
	a.registerViews()
	return a, nil
}

// openRepository opens the configured token storage and the device key
// its entries are sealed with.
func openRepository(cmd *cobra.Command, cfg *config.Config) (storage.Repository, []byte, error) {
	var repo storage.Repository
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		key, err := util.NewAESKey()
		if err != nil {
			return nil, nil, err
		}
		return memory.NewRepository(), key, nil
	case config.BackendRedis:
		r, err := redisstorage.Dial(cmd.Context(), cfg.Storage.RedisAddr, cfg.Storage.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		repo = r
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		r, err := bboltstorage.NewRepositoryFromFile(cfg.Storage.Path, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session storage: %w", err)
		}
		repo = r
	}
	key, err := storage.LoadOrCreateDeviceKey(cfg.Storage.KeyFile)
	if err != nil {
		repo.Close()
		return nil, nil, err
	}
	return repo, key, nil
}

func (a *app) Close() error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Close()
}

// newLogger writes human-readable records to a terminal and JSON
// otherwise.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		lvl = slog.LevelWarn
	}
	options := &slog.HandlerOptions{Level: lvl}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

// withApp wraps a command body with application setup and teardown.
func withApp(opts *rootOptions, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}

// withWriteApp is withApp for commands that change backend state. The
// anti-forgery token lives only in memory, so a session restored from the
// token slot fetches a fresh one first.
func withWriteApp(opts *rootOptions, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
		snap := a.store.Snapshot()
		if snap.BearerToken != "" && snap.AntiForgeryToken == "" {
			if _, err := a.ctrl.RefreshAntiForgeryToken(cmd.Context()); err != nil {
				return reported(err)
			}
		}
		return run(cmd, a, args)
	})
}
