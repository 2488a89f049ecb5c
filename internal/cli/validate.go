package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tohu/internal/blueprint"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                        `json:"valid"`
	Blueprint string                      `json:"blueprint,omitempty"`
	Items     string                      `json:"items,omitempty"`
	Fields    []string                    `json:"fields,omitempty"`
	Helpers   int                         `json:"helpers,omitempty"`
	Errors    blueprint.ValidationErrors `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <blueprint>",
		Short: "Validate a blueprint without generating",
		Long: `Validate a YAML or CUE blueprint.

Checks the schema, names, references, reference cycles, generator
parameters and apply functions, and reports every problem found.

Exit codes:
  0 - Blueprint is valid
  1 - Blueprint has validation errors
  2 - Command error (file not found, unreadable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	formatter.VerboseLog("Validating %s", path)

	lb, err := loadBlueprint(path)
	if err != nil {
		return reportLoadError(formatter, err)
	}

	bp := lb.Compiled.Blueprint
	result := ValidationResult{
		Valid:     true,
		Blueprint: bp.Name,
		Items:     lb.Compiled.Class.ItemsName(),
		Helpers:   len(bp.Helpers),
	}
	for _, f := range lb.Compiled.Class.Fields() {
		result.Fields = append(result.Fields, f.Name)
	}
	if len(bp.FieldOrder) > 0 {
		result.Fields = append([]string(nil), bp.FieldOrder...)
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Blueprint valid: %s -> %s(%s)\n", result.Blueprint, result.Items, joinNames(result.Fields))
	if result.Helpers > 0 {
		fmt.Fprintf(formatter.Writer, "  %d helper(s)\n", result.Helpers)
	}
	return nil
}
