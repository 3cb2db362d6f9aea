package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	goruntime "runtime"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nginx-gists/unit/internal/config"
	"github.com/nginx-gists/unit/internal/credential"
	"github.com/nginx-gists/unit/internal/daemon"
	"github.com/nginx-gists/unit/internal/engine"
	"github.com/nginx-gists/unit/internal/events"
	"github.com/nginx-gists/unit/internal/logging"
	"github.com/nginx-gists/unit/internal/metrics"
	"github.com/nginx-gists/unit/internal/port"
	"github.com/nginx-gists/unit/internal/process"
	"github.com/nginx-gists/unit/internal/version"
)

var (
	runConfigPath string
	runForeground bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the unitd daemon",
	RunE:  runDaemon,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "config file path")
	runCmd.Flags().BoolVar(&runForeground, "foreground", false, "stay attached to the terminal")
	rootCmd.AddCommand(runCmd)
}

// quitCh is signaled when the main port receives a quit message.
var quitCh = make(chan struct{}, 1)

// isTerminal wraps the terminal probe. Test seam.
var isTerminal = term.IsTerminal

// shouldDetach decides whether run forks into the background: daemonize
// must be enabled, --foreground not set, and stderr attached to a
// terminal. Running under a supervisor already detaches stderr, so the
// skip is logged, not fatal.
func shouldDetach(daemonize, foreground bool, logger *slog.Logger) bool {
	if !daemonize || foreground {
		return false
	}
	if !isTerminal(int(os.Stderr.Fd())) {
		logger.Info("stderr not attached to a terminal, skipping detach")
		return false
	}
	return true
}

func runDaemon(cmd *cobra.Command, args []string) error {
	path, err := config.Resolve(runConfigPath)
	if err != nil {
		return err
	}
	cfg, warnings, err := config.LoadWithIncludes(path)
	if err != nil {
		return err
	}

	logCfg := logging.LogConfig{
		Level:  cfg.Runtime.LogLevel,
		Format: cfg.Runtime.LogFormat,
	}
	if cfg.Runtime.Logfile != "" {
		if err := logging.RotateIfNeeded(cfg.Runtime.Logfile, logging.RotationConfig{
			Maxbytes: cfg.Runtime.LogMaxbytes,
			Backups:  cfg.Runtime.LogBackups,
		}); err != nil {
			return fmt.Errorf("rotate log: %w", err)
		}
		f, err := os.OpenFile(cfg.Runtime.Logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
		logCfg.Output = f
	}
	logger := logging.New(logCfg)
	for _, w := range warnings {
		logger.Warn(w)
	}

	m := metrics.New()
	m.SetBuildInfo(version.Version, goruntime.Version())

	bus := events.NewBus(logger)
	bus.Subscribe(events.ProcessReady, func(e events.Event) {
		logger.Info("process ready", "role", e.Data["role"], "pid", e.Data["pid"])
	})

	rt := process.NewRuntime(process.Config{
		EngineName: cfg.Runtime.Engine,
		Batch:      cfg.Runtime.Batch,
		AuxThreads: cfg.Runtime.AuxiliaryThreads,
		Logger:     logger,
		Bus:        bus,
		Metrics:    m,
	})

	if shouldDetach(*cfg.Runtime.Daemonize, runForeground, logger) {
		parent, err := rt.Daemonize()
		if err != nil {
			return fmt.Errorf("daemonize: %w", err)
		}
		if parent {
			os.Exit(0)
		}
	}

	if err := daemon.WritePIDFile(cfg.Runtime.Pidfile); err != nil {
		return err
	}
	defer daemon.RemovePIDFile(cfg.Runtime.Pidfile)

	self := rt.RegisterSelf(&process.RoleInit{Name: "main", Type: process.TypeMain})
	mainPort := self.FirstPort()
	rt.SetMainPort(mainPort)
	rt.Transport().Enable(mainPort, port.HandlerTable{
		port.MsgReady: func(msg port.Message) {
			logger.Debug("ready notification", "stream", msg.Stream)
		},
		port.MsgQuit: func(port.Message) {
			select {
			case quitCh <- struct{}{}:
			default:
			}
		},
	})

	child, err := spawnRoles(rt, cfg, logger)
	if err != nil {
		return err
	}
	if child {
		// Forked continuation: serve the role until told to stop.
		return waitForShutdown(logger)
	}

	if cfg.Metrics.Enabled {
		srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: m.Handler()}
		go func() {
			logger.Info("metrics listening", "addr", cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	logger.Info("unitd started", "pid", rt.Ctx().Pid(), "roles", len(cfg.Roles))
	err = waitForShutdown(logger)
	broadcastQuit(rt)
	return err
}

// spawnRoles launches every configured role. It reports child=true in a
// forked worker continuation, which must not spawn further roles.
func spawnRoles(rt *process.Runtime, cfg *config.Config, logger *slog.Logger) (child bool, err error) {
	names := make([]string, 0, len(cfg.Roles))
	for name := range cfg.Roles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		role := cfg.Roles[name]

		user, group := role.User, role.Group
		if user == "" {
			user, group = cfg.Runtime.User, cfg.Runtime.Group
		}
		var cred *credential.Credential
		if user != "" {
			cred, err = credential.Resolve(user, group, logger)
			if err != nil {
				return false, fmt.Errorf("role %q: %w", name, err)
			}
		}

		for i := 0; i < role.Count; i++ {
			if role.Spawn == "exec" {
				if _, err := rt.SpawnExec(role.Command, role.Args, buildEnv(role.Env)); err != nil {
					return false, err
				}
				continue
			}

			init := &process.RoleInit{
				Name:     name,
				Type:     roleType(role.Type),
				UserCred: cred,
				Signals:  engine.SignalSet{syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT},
				Stream:   role.Stream,
				PortHandlers: port.HandlerTable{
					port.MsgQuit: func(port.Message) {
						select {
						case quitCh <- struct{}{}:
						default:
						}
					},
				},
			}
			pid, err := rt.SpawnForked(init)
			if err != nil {
				return false, err
			}
			if pid == rt.Ctx().Pid() {
				return true, nil
			}
		}
	}
	return false, nil
}

func waitForShutdown(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
	case <-quitCh:
		logger.Info("quit message received, shutting down")
	}
	return nil
}

// broadcastQuit tells every live peer to stop.
func broadcastQuit(rt *process.Runtime) {
	rt.Table().Each(func(r *process.Record) {
		if r.Pid() == rt.Ctx().Pid() {
			return
		}
		if p := r.FirstPort(); p != nil {
			_ = rt.Transport().Send(p, port.MsgQuit, nil, 0)
		}
	})
}
