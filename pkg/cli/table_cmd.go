package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gps-report/internal/domain"
)

func newTableCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Inspect and change store tables",
	}
	cmd.AddCommand(newTableListCmd(g))
	cmd.AddCommand(newTableDescribeCmd(g))
	cmd.AddCommand(newTableCreateCmd(g))
	cmd.AddCommand(newTableAddColumnCmd(g))
	cmd.AddCommand(newTableDropColumnCmd(g))
	return cmd
}

func newTableListCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tables, err := g.store().ListTables(cmd.Context())
			if err != nil {
				return err
			}
			if g.json() {
				return printJSON(cmd.OutOrStdout(), map[string]any{"tables": tables})
			}
			return printList(cmd.OutOrStdout(), "table", tables)
		},
	}
}

func newTableDescribeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>",
		Short: "Show the columns and primary key of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := g.store().Columns(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if g.json() {
				return printJSON(cmd.OutOrStdout(), map[string]any{"table": args[0], "columns": cols})
			}
			rows := make([][]any, len(cols))
			for i, c := range cols {
				var def any
				if c.Default != nil {
					def = *c.Default
				}
				var pk any
				if c.PKPosition > 0 {
					pk = c.PKPosition
				}
				rows[i] = []any{c.Name, c.Type, c.NotNull, def, pk}
			}
			return printTable(cmd.OutOrStdout(), []string{"column", "type", "not null", "default", "pk"}, rows)
		},
	}
}

// parseColumnDefs parses "name:TYPE" pairs; a missing type means TEXT.
func parseColumnDefs(specs []string) ([]domain.ColumnDef, error) {
	defs := make([]domain.ColumnDef, 0, len(specs))
	for _, s := range specs {
		name, typ, ok := strings.Cut(s, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid column %q: want name:TYPE", s)
		}
		typ = strings.TrimSpace(typ)
		if !ok || typ == "" {
			typ = "TEXT"
		}
		defs = append(defs, domain.ColumnDef{Name: name, Type: strings.ToUpper(typ)})
	}
	return defs, nil
}

func newTableCreateCmd(g *globals) *cobra.Command {
	var (
		columns    []string
		primaryKey []string
	)

	cmd := &cobra.Command{
		Use:   "create <table>",
		Short: "Create a table if it does not exist",
		Long: `Create a table from --column name:TYPE definitions and an optional
composite --primary-key. An existing table is left untouched.`,
		Example: `  gpsr table create stats --column date:TEXT --column Player:TEXT --column Distance:REAL --primary-key date,Player`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := parseColumnDefs(columns)
			if err != nil {
				return err
			}
			desc := domain.TableDescriptor{Name: args[0], Columns: defs, PrimaryKey: primaryKey}
			if err := g.store().CreateTable(cmd.Context(), desc); err != nil {
				return err
			}
			return printStatus(cmd, g, map[string]any{"status": "ok", "table": args[0]},
				fmt.Sprintf("Table %q ready\n", args[0]))
		},
	}

	cmd.Flags().StringArrayVar(&columns, "column", nil, "Column as name:TYPE (repeatable)")
	cmd.Flags().StringSliceVar(&primaryKey, "primary-key", nil, "Primary key columns, in order")
	_ = cmd.MarkFlagRequired("column")

	return cmd
}

func newTableAddColumnCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "add-column <table> <column> [TYPE]",
		Short: "Add a column unless it already exists",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ := "TEXT"
			if len(args) == 3 {
				typ = strings.ToUpper(args[2])
			}
			added, err := g.store().AddColumn(cmd.Context(), args[0], args[1], typ)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("Column %q added to %q\n", args[1], args[0])
			if !added {
				msg = fmt.Sprintf("Column %q already exists in %q\n", args[1], args[0])
			}
			return printStatus(cmd, g, map[string]any{"changed": added, "table": args[0], "column": args[1]}, msg)
		},
	}
}

func newTableDropColumnCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "drop-column <table> <column>",
		Short: "Drop a column if it exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dropped, err := g.store().DropColumn(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("Column %q dropped from %q\n", args[1], args[0])
			if !dropped {
				msg = fmt.Sprintf("Column %q does not exist in %q\n", args[1], args[0])
			}
			return printStatus(cmd, g, map[string]any{"changed": dropped, "table": args[0], "column": args[1]}, msg)
		},
	}
}

// printStatus prints v as JSON or msg as plain text, depending on --output.
func printStatus(cmd *cobra.Command, g *globals, v any, msg string) error {
	if g.json() {
		return printJSON(cmd.OutOrStdout(), v)
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), msg)
	return err
}
