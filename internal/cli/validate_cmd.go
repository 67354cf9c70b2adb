package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/J-ANet/prototipo/internal/cli/formatter"
	"github.com/J-ANet/prototipo/internal/config"
	"github.com/J-ANet/prototipo/internal/planner"
	"github.com/J-ANet/prototipo/internal/validation"
)

func newValidateCmd(app *App) *cobra.Command {
	var requestPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a plan request and its referenced inputs without planning",
		RunE: func(cmd *cobra.Command, args []string) error {
			request, raw, err := planner.ReadRequest(requestPath)
			if err != nil {
				return fmt.Errorf("reading request: %w", err)
			}
			if issues := planner.ValidateRequest(raw); len(issues) > 0 {
				fmt.Fprint(cmd.OutOrStdout(), formatter.FormatIssues(issues))
				return exitCodeError{code: planner.ExitError}
			}

			inputs, loadIssues := planner.LoadInputs(requestPath, request)
			if len(loadIssues) > 0 {
				fmt.Fprint(cmd.OutOrStdout(), formatter.FormatIssues(loadIssues))
				return exitCodeError{code: planner.ExitError}
			}

			validationReport := validation.NewReport()
			global := inputs.GlobalConfig
			global.Clamp(validationReport)
			config.Resolve(global, inputs.Subjects, validationReport)

			validationReport.Extend(validation.ValidateDomain(validation.DomainInputs{
				GlobalConfig:   inputs.GlobalConfigRaw,
				Subjects:       inputs.Subjects,
				ManualSessions: inputs.ManualSessions,
			}))
			validationReport.Extend(validation.ValidateStructural(validation.StructuralInputs{
				Subjects:            inputs.Subjects,
				CalendarConstraints: inputs.CalendarConstraints,
				ManualSessions:      inputs.ManualSessions,
			}))

			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatValidationReport(validationReport))
			if validationReport.HasErrors() {
				return exitCodeError{code: planner.ExitError}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&requestPath, "request", "", "Path to plan_request.json")
	_ = cmd.MarkFlagRequired("request")

	return cmd
}
