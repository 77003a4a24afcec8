package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/existflow/ironnote/internal/api"
	"github.com/existflow/ironnote/internal/cache"
	"github.com/existflow/ironnote/internal/config"
	"github.com/existflow/ironnote/internal/logger"
	"github.com/existflow/ironnote/internal/reconcile"
	"github.com/existflow/ironnote/internal/store"
	"github.com/spf13/cobra"
)

// app bundles what a command needs to talk to the API through the store
type app struct {
	cfg    *config.Config
	client *api.Client
	cache  *cache.Cache
	rec    *reconcile.Reconciler
	out    io.Writer
	in     *bufio.Reader
}

// reportedError marks an error the notifier has already shown
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err}
}

func newClient(cfg *config.Config) (*api.Client, error) {
	sessionPath, err := config.SessionPath()
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.APIURL, sessionPath), nil
}

// openApp wires config, API client, cache and reconciler for one command.
// A cache that cannot be opened is logged and skipped.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg := currentConfig()
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		client: client,
		out:    cmd.OutOrStdout(),
		in:     bufio.NewReader(cmd.InOrStdin()),
	}

	var snapshots store.SnapshotCache
	if cfg.CachePath != "" {
		c, err := cache.Open(cfg.CachePath)
		if err != nil {
			logger.Warn("Cache unavailable", logger.F("path", cfg.CachePath), logger.F("error", err))
		} else {
			a.cache = c
			snapshots = c
		}
	}

	a.rec = reconcile.New(client, snapshots, reconcile.Options{
		Timeout:         cfg.RequestTimeout,
		Notifier:        printNotifier(a.out),
		OnLoginRequired: func() { fmt.Fprintln(a.out, "🔑 Not logged in. Run 'ironnote auth login' first.") },
	})
	return a, nil
}

func (a *app) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Warn("Failed to close cache", logger.F("error", err))
		}
	}
}

func (a *app) store() *store.Store { return a.rec.Store() }

// confirm asks a yes/no question, defaulting to no
func (a *app) confirm(question string) bool {
	fmt.Fprintf(a.out, "%s [y/N]: ", question)
	answer, _ := a.in.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// deleteFlow runs the two-phase delete: mark, ask, then confirm or cancel
func (a *app) deleteFlow(cmd *cobra.Command, kind, label string, request func() error,
	confirm func() error, cancel func()) error {

	if err := request(); err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	if a.cfg.ConfirmDelete && !force {
		fmt.Fprintf(a.out, "About to delete %s: %q\n", kind, label)
		if !a.confirm("Are you sure?") {
			cancel()
			fmt.Fprintln(a.out, "Cancelled.")
			return nil
		}
	}
	return reported(confirm())
}

func printNotifier(w io.Writer) reconcile.Notifier {
	return reconcile.NotifierFunc(func(n reconcile.Notification) {
		switch n.Level {
		case reconcile.Success:
			fmt.Fprintf(w, "✓ %s\n", n.Message)
		case reconcile.Warning:
			fmt.Fprintf(w, "⚠️  %s\n", n.Message)
		default:
			fmt.Fprintf(w, "✗ %s\n", n.Message)
		}
	})
}

// errorAlreadyShown reports whether err was printed by the notifier
func errorAlreadyShown(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}
