package cli

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/tohu/internal/gen"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Dot bool
}

// NodeInfo describes one generator of a compiled blueprint.
type NodeInfo struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	ID     string   `json:"id"`
	Field  bool     `json:"field"`
	Parent string   `json:"parent,omitempty"` // clone parent
	Inputs []string `json:"inputs,omitempty"`
}

// InspectResult is the generator graph of a blueprint instance.
type InspectResult struct {
	Blueprint string     `json:"blueprint"`
	Items     string     `json:"items"`
	Fields    []string   `json:"fields"`
	Nodes     []NodeInfo `json:"nodes"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <blueprint>",
		Short: "Show the generator graph of a blueprint",
		Long: `Compile a blueprint, instantiate it once and list every generator the
instance owns: record fields, helpers and anonymous inputs, with their
clone parents and inputs. Anonymous generators are shown as ANON_<id>.

With --dot the graph is written in Graphviz DOT syntax.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Dot, "dot", false, "write the graph as Graphviz DOT")

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	lb, err := loadBlueprint(path)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	g, err := lb.Compiled.New()
	if err != nil {
		return generateError(formatter, err)
	}
	result := describe(lb.Compiled.Blueprint.Name, g)

	switch {
	case opts.Dot:
		writeDot(formatter.Writer, result)
		return nil
	case formatter.IsJSON():
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s -> %s(%s)\n\n", result.Blueprint, result.Items, joinNames(result.Fields))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tCLONE OF\tINPUTS")
	for _, n := range result.Nodes {
		name := n.Name
		if n.Field {
			name += " *"
		}
		parent := n.Parent
		if parent == "" {
			parent = "-"
		}
		inputs := joinNames(n.Inputs)
		if inputs == "" {
			inputs = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, n.Kind, parent, inputs)
	}
	return tw.Flush()
}

// describe lists the generators owned by a custom generator, in namespace
// order.
func describe(blueprintName string, g *gen.Custom) InspectResult {
	ns := g.Namespace()
	fields := g.FieldNames()
	nameOf := func(x gen.Generator) string {
		if name, ok := ns.NameOf(x); ok {
			return name
		}
		return x.ID()
	}

	result := InspectResult{
		Blueprint: blueprintName,
		Items:     g.Type().Name(),
		Fields:    fields,
	}
	for _, x := range ns.All() {
		n := NodeInfo{
			Name:  nameOf(x),
			Kind:  x.Kind(),
			ID:    x.ID(),
			Field: slices.Contains(fields, nameOf(x)),
		}
		if p := x.Parent(); p != nil {
			n.Parent = nameOf(p)
		}
		for _, in := range x.Inputs() {
			n.Inputs = append(n.Inputs, nameOf(in))
		}
		result.Nodes = append(result.Nodes, n)
	}
	return result
}

func writeDot(w io.Writer, r InspectResult) {
	fmt.Fprintf(w, "digraph %q {\n", r.Blueprint)
	for _, n := range r.Nodes {
		shape := "ellipse"
		if n.Field {
			shape = "box"
		}
		fmt.Fprintf(w, "  %q [label=%q, shape=%s];\n", n.Name, n.Name+" ("+n.Kind+")", shape)
	}
	for _, n := range r.Nodes {
		for _, in := range n.Inputs {
			fmt.Fprintf(w, "  %q -> %q;\n", in, n.Name)
		}
		if n.Parent != "" {
			fmt.Fprintf(w, "  %q -> %q [style=dashed];\n", n.Parent, n.Name)
		}
	}
	fmt.Fprintln(w, "}")
}
