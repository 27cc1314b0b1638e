package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmcmoto/motoportal/app/services"
	"github.com/vmcmoto/motoportal/internal/kernel"
	httpc "github.com/vmcmoto/motoportal/pkg/http"
	"github.com/vmcmoto/motoportal/pkg/logger"
	"github.com/vmcmoto/motoportal/pkg/metrics"
	"github.com/vmcmoto/motoportal/pkg/reqid"
)

// adminAnnotation marks commands that need a logged-in admin. It is
// inherited by subcommands.
const adminAnnotation = "admin"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli{}
	err := explain(newRootCmd(app).ExecuteContext(ctx))
	app.finish()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// cli carries the booted kernel and the global flags.
type cli struct {
	kern *kernel.Kernel

	yes         bool
	quiet       bool
	metricsFile string
}

func newRootCmd(app *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "motoadmin",
		Short:         "Catalog administration for the dealer portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.boot(cmd)
		},
	}

	root.PersistentFlags().BoolVarP(&app.yes, "yes", "y", false, "approve destructive actions without asking")
	root.PersistentFlags().BoolVar(&app.quiet, "quiet", false, "silence log output")
	root.PersistentFlags().StringVar(&app.metricsFile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")

	// Session
	root.AddCommand(newLoginCmd(app))
	root.AddCommand(newLogoutCmd(app))
	root.AddCommand(newWhoamiCmd(app))

	// Catalog
	root.AddCommand(newModelsCmd(app))
	root.AddCommand(newPhotosCmd(app))
	root.AddCommand(newSpecsCmd(app))
	root.AddCommand(newCategoriesCmd(app))

	// Portal
	root.AddCommand(newSectionsCmd(app))
	root.AddCommand(newNewsCmd(app))
	root.AddCommand(newRegulationsCmd(app))
	root.AddCommand(newEmployeesCmd(app))
	return root
}

// boot starts the kernel once per run and applies the session guard to
// admin commands.
func (a *cli) boot(cmd *cobra.Command) error {
	ctx := reqid.Ensure(cmd.Context())
	cmd.SetContext(ctx)

	if a.kern == nil {
		k, err := kernel.Boot(ctx, kernel.Options{Quiet: a.quiet, LogOutput: cmd.ErrOrStderr()})
		if err != nil {
			return err
		}
		a.kern = k
	}
	if needsAdmin(cmd) {
		if err := a.kern.Sessions.Require(ctx); err != nil {
			return fmt.Errorf("%w (run: motoadmin login)", err)
		}
	}
	return nil
}

func (a *cli) finish() {
	if a.metricsFile != "" {
		if err := metrics.WriteTextfile(a.metricsFile); err != nil {
			logger.Warn("metrics textfile not written", "path", a.metricsFile, "error", err)
		}
	}
	if a.kern != nil {
		a.kern.Close()
		a.kern = nil
	}
}

// confirm returns the ConfirmFunc for destructive commands: --yes approves
// everything, otherwise the operator is asked on stdin.
func (a *cli) confirm(cmd *cobra.Command) services.ConfirmFunc {
	if a.yes {
		return services.AlwaysConfirm
	}
	return func(prompt string) bool {
		fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
		answer, _ := readLine(cmd.InOrStdin())
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true
		}
		return false
	}
}

// explain points the operator at login when the backend refused the stored
// token.
func explain(err error) error {
	if httpc.IsStatus(err, http.StatusUnauthorized) {
		return fmt.Errorf("%w: session expired or rejected (run: motoadmin login)", err)
	}
	return err
}

func needsAdmin(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[adminAnnotation] == "true" {
			return true
		}
	}
	return false
}

func adminOnly() map[string]string { return map[string]string{adminAnnotation: "true"} }

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, len(args))
	for i, s := range args {
		id, err := parseID(s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// parsePosition reads a 1-based list position and returns it zero-based.
func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position %q (positions start at 1)", s)
	}
	return n - 1, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func day(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func rule(n int) string { return strings.Repeat("-", n) }
