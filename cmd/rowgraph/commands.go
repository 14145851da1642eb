package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"rowgraph/internal/diagnostic"
	"rowgraph/internal/mapping"
	"rowgraph/internal/store/sqlite"
	"rowgraph/node"
)

type setupFunc func(cmd *cobra.Command) (*app, error)

// selectEntities keeps the entities named in names, or all of them.
func selectEntities(entities []*mapping.Entity, names []string) ([]*mapping.Entity, error) {
	if len(names) == 0 {
		return entities, nil
	}

	out := make([]*mapping.Entity, 0, len(names))
	for _, name := range names {
		i := slices.IndexFunc(entities, func(e *mapping.Entity) bool { return e.Name == name })
		if i < 0 {
			return nil, fmt.Errorf("unknown entity %q", name)
		}

		out = append(out, entities[i])
	}

	return out, nil
}

func newColumnsCmd(setup setupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "columns [entity...]",
		Short: "List the storage columns of entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			entities, err := a.build()
			if err != nil {
				return err
			}

			entities, err = selectEntities(entities, args)
			if err != nil {
				return err
			}

			for _, e := range entities {
				fmt.Fprintf(a.out, "%s (%s)\n", e.Name, e.Table)

				for _, c := range e.Columns() {
					fmt.Fprintf(a.out, "  %s\n", c)
				}
			}

			return nil
		},
	}
}

func newDDLCmd(setup setupFunc) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "ddl [entity...]",
		Short: "Print SQLite CREATE TABLE statements for entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			entities, err := a.build()
			if err != nil {
				return err
			}

			entities, err = selectEntities(entities, args)
			if err != nil {
				return err
			}

			for _, e := range entities {
				table, err := sqlite.NewTable(e.Table, key, e.Columns())
				if err != nil {
					return fmt.Errorf("%s: %w", e.Name, err)
				}

				fmt.Fprintf(a.out, "%s;\n", sqlite.DDL(table))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Primary key column (default: first column)")

	return cmd
}

func newCheckCmd(setup setupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate a mapping file and print its diagnostics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			_, diags := mapping.Build(a.file, mapping.Options{SchemaOnly: true})
			printDiagnostics(a.out, diags)

			if diags.HasErrors() {
				return fmt.Errorf("%s: %d error(s)", a.settings.Mapping, len(diags.Errors))
			}

			fmt.Fprintf(a.out, "%s: ok, %d entities\n", a.settings.Mapping, len(a.file.Entities))

			return nil
		},
	}
}

func printDiagnostics(w io.Writer, diags *diagnostic.Diagnostics) {
	for _, d := range diags.All() {
		fmt.Fprintf(w, "%s: %s\n", d.Severity, d)

		for _, s := range d.Suggestions {
			fmt.Fprintf(w, "  did you mean %q?\n", s)
		}
	}
}

// readRow decodes a JSON object from path, or from in when path is "-".
func readRow(path string, in io.Reader) (node.FlatData, error) {
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read row file %s: %w", path, err)
		}
		defer f.Close()

		in = f
	}

	var row map[string]any
	if err := gojson.NewDecoder(in).Decode(&row); err != nil {
		return nil, fmt.Errorf("failed to parse row: %w", err)
	}

	return node.FlatData(row), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := gojson.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// report prints the error diagnostics and turns them into an error.
func report(a *app, diags *diagnostic.Diagnostics) error {
	if !diags.HasErrors() {
		return nil
	}

	printDiagnostics(a.errOut, diags)

	return diags.Error()
}

func newResolveCmd(setup setupFunc) *cobra.Command {
	var rowPath string

	cmd := &cobra.Command{
		Use:   "resolve <entity>",
		Short: "Hydrate the fields of an entity from a JSON row and print them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			d, err := a.driver()
			if err != nil {
				return err
			}

			row, err := readRow(rowPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			values, diags := d.Resolve(args[0], row)
			if err := report(a, diags); err != nil {
				return err
			}

			return writeJSON(a.out, values)
		},
	}

	cmd.Flags().StringVar(&rowPath, "row", "-", "Path to a JSON row, - for stdin")

	return cmd
}

func newSaveCmd(setup setupFunc) *cobra.Command {
	var rowPath, key string

	cmd := &cobra.Command{
		Use:   "save <entity>",
		Short: "Normalize a JSON row through the entity mapping and store it in SQLite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			d, err := a.driver()
			if err != nil {
				return err
			}

			row, err := readRow(rowPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			values, diags := d.Resolve(args[0], row)
			if err := report(a, diags); err != nil {
				return err
			}

			stored, diags := d.Revert(args[0], values)
			if err := report(a, diags); err != nil {
				return err
			}

			e, err := d.Entity(args[0])
			if err != nil {
				return err
			}

			table, err := sqlite.NewTable(e.Table, key, e.Columns())
			if err != nil {
				return err
			}

			store, err := sqlite.Open(a.settings.Database, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if err := store.CreateTable(ctx, table); err != nil {
				return err
			}

			if err := store.Save(ctx, table, stored); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "saved %s %v\n", e.Name, stored[table.Key])

			return nil
		},
	}

	cmd.Flags().StringVar(&rowPath, "row", "-", "Path to a JSON row, - for stdin")
	cmd.Flags().StringVar(&key, "key", "", "Primary key column (default: first column)")

	return cmd
}

func newShowCmd(setup setupFunc) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "show <entity> <id>",
		Short: "Load a stored row and print the hydrated fields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}

			d, err := a.driver()
			if err != nil {
				return err
			}

			e, err := d.Entity(args[0])
			if err != nil {
				return err
			}

			table, err := sqlite.NewTable(e.Table, key, e.Columns())
			if err != nil {
				return err
			}

			store, err := sqlite.Open(a.settings.Database, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			row, err := store.Load(ctx, table, args[1])
			if err != nil {
				return err
			}

			values, diags := d.Resolve(e.Name, row)
			if err := report(a, diags); err != nil {
				return err
			}

			return writeJSON(a.out, values)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Primary key column (default: first column)")

	return cmd
}
