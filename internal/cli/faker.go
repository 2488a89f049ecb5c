package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/tohu/internal/faker"
)

// FakerOptions holds flags for the faker command.
type FakerOptions struct {
	*RootOptions
	Category string
}

// NewFakerCommand creates the faker command.
func NewFakerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FakerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "faker",
		Short: "List faker methods usable in blueprints",
		Long: `List the methods a "faker" generator can call, with their category and
an example value. Method names are matched case-insensitively and
underscores are ignored, so "first_name" calls "firstname".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFaker(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "only methods of this category")

	return cmd
}

func runFaker(opts *FakerOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	methods := faker.Methods(opts.Category)
	if len(methods) == 0 {
		msg := fmt.Sprintf("no faker methods in category %q", opts.Category)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if formatter.IsJSON() {
		return formatter.Success(methods)
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tCATEGORY\tEXAMPLE")
	for _, m := range methods {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, m.Category, m.Example)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	formatter.VerboseLog("%d method(s)", len(methods))
	return nil
}
