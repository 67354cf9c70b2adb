package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/J-ANet/prototipo/internal/cli/formatter"
	"github.com/J-ANet/prototipo/internal/planner"
	"github.com/J-ANet/prototipo/internal/report"
)

// exitCodeError signals a non-zero exit without an extra error line; the
// envelope already carries the details.
type exitCodeError struct{ code int }

func (e exitCodeError) Error() string { return fmt.Sprintf("exit code %d", e.code) }

func (e exitCodeError) ExitCode() int { return e.code }

func newPlanCmd(app *App) *cobra.Command {
	var requestPath string
	var outputPath string
	var pretty bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate a plan from a plan_request JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			envelope, exit := app.Runner.Run(requestPath)

			if err := writeEnvelope(outputPath, envelope); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}

			if pretty || isatty.IsTerminal(os.Stdout.Fd()) {
				fmt.Fprint(cmd.OutOrStdout(), formatter.FormatEnvelope(envelope))
			}

			if exit != planner.ExitOK {
				return exitCodeError{code: exit}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&requestPath, "request", "", "Path to plan_request.json")
	cmd.Flags().StringVar(&outputPath, "output", "", "Path to plan_output.json")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Print a human-readable summary to stdout")
	_ = cmd.MarkFlagRequired("request")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// writeEnvelope writes the JSON envelope with stable two-space indentation
// and a trailing newline.
func writeEnvelope(path string, envelope report.Envelope) error {
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
