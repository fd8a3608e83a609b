package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"croon/pkg/account"
	"croon/pkg/browser"
	"croon/pkg/config"
	"croon/pkg/engine"
	"croon/pkg/history"
	"croon/pkg/session"
)

// newRunCmd creates the "croon run" subcommand.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [queue-id...]",
		Short: "Execute queues against live browser sessions",
		Long:  "Runs the given queues, or every pending and paused queue in\ncreation order when none are named. Ctrl-C cancels the current\nqueue after the in-flight item finishes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, paths, err := openStore()
			if err != nil {
				return err
			}
			cfg, err := config.Load(paths.ConfigPath)
			if err != nil {
				return err
			}
			reg, err := account.Open(paths.AccountsPath, paths.ProfilesDir)
			if err != nil {
				return err
			}

			ids := args
			if len(ids) == 0 {
				for _, e := range store.Runnable() {
					ids = append(ids, e.ID)
				}
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to run")
				return nil
			}

			hist, err := history.Open(paths.HistoryDBPath)
			if err != nil {
				return err
			}
			defer hist.Close()

			logDest := cmd.ErrOrStderr()
			if f, err := openRunLog(paths); err == nil {
				defer f.Close()
				logDest = io.MultiWriter(logDest, f)
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "run log unavailable: %v\n", err)
			}
			logger := log.New(logDest, "", log.LstdFlags)

			driver := browser.NewDriver(browser.Config{
				ExecPath:  cfg.Browser.ExecPath,
				Headless:  cfg.Browser.Headless,
				CreateURL: cfg.Browser.CreateURL,
				UserAgent: cfg.Browser.UserAgent,
			})
			sessions := session.NewManager(reg, driver, logger)
			sessions.SetTokenTimeout(cfg.Session.TokenTimeout())

			filler := browser.NewFiller(browser.Config{
				CreateURL: cfg.Browser.CreateURL,
			})

			out := cmd.OutOrStdout()
			eng := engine.New(store, sessions, filler, engine.Options{
				Sink: func(ev engine.ProgressEvent) {
					fmt.Fprintln(out, ev.String())
				},
				Pacer:        engine.NewHumanPacer(cfg.Pacing.MinInterval(), cfg.Pacing.MaxJitter()),
				Recorder:     history.NewRecorder(hist, func(err error) { logger.Printf("history: %v", err) }),
				Logger:       logger,
				RestartEvery: cfg.Browser.RestartEvery,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return eng.Run(ctx, ids)
		},
	}
}

// openRunLog opens today's append-only run log under $CROON_HOME/logs.
func openRunLog(paths *Paths) (*os.File, error) {
	if err := os.MkdirAll(paths.LogsDir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("run-%s.log", time.Now().Format("2006-01-02"))
	return os.OpenFile(filepath.Join(paths.LogsDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
