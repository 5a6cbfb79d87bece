package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/imbui/internal/scene"
	"github.com/conneroisu/imbui/pkg/cast"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect <scene.yml> [template...]",
	Aliases: []string{"i"},
	Short:   "Show compiled templates and their parts",
	Long: `Compile the templates of a scene and print, for each one, the stamped
markup it compiles to and the parts found in it. With no template names every
template is shown.

Examples:
  imbui inspect todo.yml               # All templates
  imbui inspect todo.yml item          # Only the "item" template
  imbui inspect todo.yml item --raw    # Dump the part blueprints`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
			return err
		}
		return ValidateFileExists(args[0])
	},
	RunE: runInspect,
}

var inspectRaw bool

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectRaw, "raw", false, "Dump part blueprints instead of a table")
}

func runInspect(cmd *cobra.Command, args []string) error {
	_, logger, err := loadConfig()
	if err != nil {
		return err
	}

	sc, err := scene.Load(args[0])
	if err != nil {
		return err
	}

	names := args[1:]
	if len(names) == 0 {
		names = sc.TemplateNames()
	}

	rt := cast.NewRuntime(cast.WithLogger(logger))
	out := cmd.OutOrStdout()
	for i, name := range names {
		tpl, ok := sc.Templates[name]
		if !ok {
			return fmt.Errorf("template %q not found in %s (have: %s)",
				name, args[0], strings.Join(sc.TemplateNames(), ", "))
		}
		bp, err := rt.Compile(tpl)
		if err != nil {
			return fmt.Errorf("compiling %s: %w", name, err)
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := writeBlueprint(out, name, name == sc.RootName(), bp); err != nil {
			return err
		}
	}
	return nil
}

func writeBlueprint(w io.Writer, name string, root bool, bp *cast.Blueprint) error {
	header := "Template " + name
	if root {
		header += " (root)"
	}
	fmt.Fprintf(w, "%s\n  markup: %s\n", header, bp.HTML())

	if len(bp.Parts) == 0 {
		_, err := fmt.Fprintln(w, "  no parts")
		return err
	}

	if inspectRaw {
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
		cfg.Fdump(w, bp.Parts)
		return nil
	}

	title := cases.Title(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  #\tKIND\tNAME\tHOLES\tPATH")
	for i, p := range bp.Parts {
		name := p.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%v\n", i, title.String(p.Kind.String()), name, holes(p), p.Path)
	}
	return tw.Flush()
}

// holes lists the value indices a part reads.
func holes(p cast.PartBlueprint) string {
	if len(p.Indices) == 0 {
		return fmt.Sprint(p.Index)
	}
	s := make([]string, len(p.Indices))
	for i, idx := range p.Indices {
		s[i] = fmt.Sprint(idx)
	}
	return strings.Join(s, ",")
}
