package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"kadrisk/internal/check"
	"kadrisk/pkg/models"
)

type checkFlags struct {
	participant     string
	participantType string
	maxPages        int
	maxCases        int
	pretty          bool
}

func checkCmd() *cobra.Command {
	var f checkFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check one participant and print {facts, signals} as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.CheckRequest{
				Participant:     f.participant,
				ParticipantType: f.participantType,
				MaxPages:        f.maxPages,
				MaxCases:        f.maxCases,
			}
			req.Normalize(uuid.NewString)
			if err := models.ValidateCheckRequest(&req); err != nil {
				return err
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx, false); err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer func() { _ = app.Shutdown(context.Background()) }()

			res := app.runner.Run(ctx, req)
			return writeResult(cmd.OutOrStdout(), res, f.pretty)
		},
	}

	cmd.Flags().StringVar(&f.participant, "participant", "", "Participant name or INN (required)")
	cmd.Flags().StringVar(&f.participantType, "type", "", "Participant side filter: plaintiff, defendant, third_party, other")
	cmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "Search pages to fetch (0 = config default)")
	cmd.Flags().IntVar(&f.maxCases, "max-cases", 0, "Cases to enrich (0 = config default)")
	cmd.Flags().BoolVar(&f.pretty, "pretty", true, "Indent JSON output")
	_ = cmd.MarkFlagRequired("participant")

	return cmd
}

func writeResult(w io.Writer, res check.Result, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res)
}
