// Command folioctl inspects and repairs the site document and runs the
// publish workflow from a shell.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/folio/folio/backend/go-services/internal/bootstrap"
	"github.com/folio/folio/backend/go-services/internal/config"
	"github.com/folio/folio/backend/go-services/internal/deploy"
	"github.com/folio/folio/backend/go-services/internal/document"
	"github.com/folio/folio/backend/go-services/internal/document/repository"
	"github.com/folio/folio/backend/go-services/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "folioctl",
		Short:         "Operate on the portfolio site document",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&cfg.Storage.DataFile, "file", cfg.Storage.DataFile, "path of the local data file")

	root.AddCommand(checkCmd(cfg), restoreCmd(cfg), exportCmd(cfg), deployCmd(cfg))
	return root
}

func checkCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the data file and its backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			rep := repository.NewFileTarget(cfg.Storage.DataFile).Check()
			if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			if !rep.PrimaryOK {
				return errors.New("data file is not readable")
			}
			return nil
		},
	}
}

func restoreCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Replace the data file with its backup revision",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := repository.NewFileTarget(cfg.Storage.DataFile)
			if err := t.Restore(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s from %s\n", t.Path(), t.BackupPath())
			return nil
		},
	}
}

func exportCmd(cfg *config.Config) *cobra.Command {
	var out string
	var redact bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch the document from the configured storage target and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			target, cleanup, err := bootstrap.Target(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			doc, err := target.Fetch(ctx)
			if err != nil {
				return fmt.Errorf("fetch from %s: %w", target.Name(), err)
			}
			if redact {
				doc = doc.Redacted()
			}
			b, err := document.Encode(doc)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			return os.WriteFile(out, b, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&redact, "redact", true, "omit the admin password")
	return cmd
}

func deployCmd(cfg *config.Config) *cobra.Command {
	var proxy string
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Commit the data file and push it to the remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			rep, err := bootstrap.Workflow(cfg.Deploy).Run(ctx, proxy)
			if err != nil {
				var de *deploy.Error
				if errors.As(err, &de) {
					fmt.Fprintln(cmd.ErrOrStderr(), de.Output)
					return errors.New(de.Message())
				}
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVar(&proxy, "proxy", "", "http(s) proxy for git; empty clears it")
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
