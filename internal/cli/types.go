package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cohort/internal/compiler"
	"github.com/roach88/cohort/internal/instance"
	"github.com/roach88/cohort/internal/lattice"
)

// TypesOptions holds flags for the types command.
type TypesOptions struct {
	*RootOptions
	TypeName  string
	Known     []string
	AllErrors bool
}

// TypeSummary is one line of the type listing.
type TypeSummary struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Supertype  string `json:"supertype,omitempty"`
	Attributes int    `json:"attributes"`
}

// TypesResult is the listing of a whole typedefs directory.
type TypesResult struct {
	Types []TypeSummary              `json:"types"`
	Lint  []compiler.ValidationError `json:"lint,omitempty"`
}

// AttributeView is a resolved attribute as shown to the user.
type AttributeView struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Cardinality string `json:"cardinality"`
	Unique      bool   `json:"unique,omitempty"`
}

// TypeDetail describes one type with its inherited attributes.
type TypeDetail struct {
	Name       string          `json:"name"`
	GUID       string          `json:"guid"`
	Category   string          `json:"category"`
	Ancestors  []string        `json:"ancestors"`
	Subtypes   []string        `json:"subtypes"`
	Attributes []AttributeView `json:"attributes"`

	// Set when --known is given.
	Known    []string `json:"known,omitempty"`
	Resolved string   `json:"resolved,omitempty"`
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TypesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "types <typedefs-dir>",
		Short: "Load, lint and inspect type definitions",
		Long: `Compile the CUE type definitions in a directory into a type lattice.

Without --type, lists every type and any lint findings. With --type, prints
the type's ancestors, direct subtypes and resolved attributes (inherited
first). Adding --known resolves the most specific subtype of --type that a
repository advertising those types could store.

Example:
  cohort types ./typedefs
  cohort types ./typedefs --type Asset --known DataFile,Process`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTypes(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.TypeName, "type", "t", "", "type to describe")
	cmd.Flags().StringSliceVar(&opts.Known, "known", nil, "types the repository supports (with --type)")
	cmd.Flags().BoolVar(&opts.AllErrors, "all-errors", false, "report every typedef error instead of the first")

	return cmd
}

func runTypes(opts *TypesOptions, dir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	if len(opts.Known) > 0 && opts.TypeName == "" {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "--known requires --type", nil)
	}

	mode := LoadModeFailFast
	if opts.AllErrors {
		mode = LoadModeCollectAll
	}
	result, errs := LoadTypes(dir, mode)
	if len(errs) > 0 {
		if len(errs) == 1 {
			return failLoad(f, errs[0])
		}
		messages := make([]string, len(errs))
		for i, err := range errs {
			messages[i] = err.Error()
		}
		return f.Fail(ExitCommandError, ErrCodeTypedef,
			fmt.Sprintf("%d typedef errors", len(errs)), messages)
	}
	f.VerboseLog("Loaded %d type(s) from %d CUE file(s) in %s", result.Types.Len(), result.FileCount, dir)

	if opts.TypeName == "" {
		listing := listTypes(result)
		return f.Render(listing, func(w io.Writer) error {
			return renderTypes(w, listing)
		})
	}

	detail, err := describeType(result.Types, opts.TypeName, opts.Known)
	if err != nil {
		if lattice.IsTypeNotFound(err) {
			return f.Fail(ExitCommandError, ErrCodeUnknownType, err.Error(), nil)
		}
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	return f.Render(detail, func(w io.Writer) error {
		return renderTypeDetail(w, detail)
	})
}

func listTypes(result *LoadResult) TypesResult {
	out := TypesResult{Types: []TypeSummary{}, Lint: result.Lint}
	for _, name := range result.Types.Names(instance.CategoryUnknown) {
		def, _ := result.Types.Lookup(name)
		out.Types = append(out.Types, TypeSummary{
			Name:       def.Name,
			Category:   def.Category.String(),
			Supertype:  def.Supertype,
			Attributes: len(def.Attributes),
		})
	}
	return out
}

func describeType(types *lattice.Lattice, name string, known []string) (TypeDetail, error) {
	def, ok := types.Lookup(name)
	if !ok {
		return TypeDetail{}, &lattice.TypeNotFoundError{Name: name}
	}
	ancestors, err := types.Ancestors(name)
	if err != nil {
		return TypeDetail{}, err
	}
	subtypes, err := types.Subtypes(name)
	if err != nil {
		return TypeDetail{}, err
	}
	attrs, err := types.ResolveAttributes(name)
	if err != nil {
		return TypeDetail{}, err
	}

	detail := TypeDetail{
		Name:       def.Name,
		GUID:       def.GUID,
		Category:   def.Category.String(),
		Ancestors:  nonNil(ancestors),
		Subtypes:   nonNil(subtypes),
		Attributes: make([]AttributeView, len(attrs)),
	}
	for i, a := range attrs {
		detail.Attributes[i] = AttributeView{
			Name:        a.Name,
			Type:        attributeType(a),
			Cardinality: a.Cardinality.String(),
			Unique:      a.Unique,
		}
	}

	if len(known) > 0 {
		detail.Known = known
		if resolved, ok := types.MostSpecificKnownSubtype(name, lattice.NewNameSet(known...)); ok {
			detail.Resolved = resolved
		}
	}
	return detail, nil
}

func attributeType(a lattice.AttributeDef) string {
	if a.Category == lattice.AttributePrimitive {
		return a.Primitive.String()
	}
	return a.Category.String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func renderTypes(w io.Writer, r TypesResult) error {
	fmt.Fprintf(w, "%d type(s)\n", len(r.Types))
	for _, t := range r.Types {
		line := fmt.Sprintf("  %-28s %-14s", t.Name, t.Category)
		if t.Supertype != "" {
			line += " < " + t.Supertype
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	if len(r.Lint) == 0 {
		_, err := fmt.Fprintln(w, "✓ No lint findings")
		return err
	}
	fmt.Fprintf(w, "%d lint finding(s)\n", len(r.Lint))
	for _, l := range r.Lint {
		fmt.Fprintf(w, "  %s\n", l.Error())
	}
	return nil
}

func renderTypeDetail(w io.Writer, d TypeDetail) error {
	fmt.Fprintf(w, "%s (%s) %s\n", d.Name, d.Category, d.GUID)
	if len(d.Ancestors) > 0 {
		fmt.Fprintf(w, "  ancestors: %s\n", strings.Join(d.Ancestors, " > "))
	}
	if len(d.Subtypes) > 0 {
		fmt.Fprintf(w, "  subtypes:  %s\n", strings.Join(d.Subtypes, ", "))
	}
	fmt.Fprintf(w, "  attributes:\n")
	for _, a := range d.Attributes {
		flags := a.Cardinality
		if a.Unique {
			flags += ", unique"
		}
		fmt.Fprintf(w, "    %-24s %-10s %s\n", a.Name, a.Type, flags)
	}
	if len(d.Known) > 0 {
		resolved := d.Resolved
		if resolved == "" {
			resolved = "none"
		}
		fmt.Fprintf(w, "  most specific known subtype of %s in [%s]: %s\n",
			d.Name, strings.Join(d.Known, ", "), resolved)
	}
	return nil
}
