package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gps-report/internal/domain"
)

func newSelectCmd(g *globals) *cobra.Command {
	var (
		columns []string
		where   string
	)

	cmd := &cobra.Command{
		Use:   "select <table>",
		Short: "Read rows from a table",
		Long: `Read rows from a table. --where is passed to SQLite verbatim, so only
use it with trusted input.`,
		Example: `  gpsr select stats --columns date,Player,Distance --where "type = 'Full Match'"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := g.store().SelectFrom(cmd.Context(), args[0], columns, where)
			if err != nil {
				return err
			}
			if g.json() {
				return printJSON(cmd.OutOrStdout(), res.Records())
			}
			return printTable(cmd.OutOrStdout(), res.Columns, res.Rows)
		},
	}

	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to read (default all)")
	cmd.Flags().StringVar(&where, "where", "", "SQL condition, without the WHERE keyword")

	return cmd
}

// parseJoinClause parses TABLE[:TYPE]:col=other.col[,col=other.col...].
// TYPE defaults to INNER.
func parseJoinClause(s string) (domain.JoinClause, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return domain.JoinClause{}, fmt.Errorf("invalid join %q: want TABLE[:TYPE]:col=other.col", s)
	}
	clause := domain.JoinClause{Table: strings.TrimSpace(parts[0]), Type: domain.JoinInner}
	conds := parts[len(parts)-1]
	if len(parts) == 3 {
		jt, err := domain.ParseJoinType(parts[1])
		if err != nil {
			return domain.JoinClause{}, err
		}
		clause.Type = jt
	}
	for _, c := range strings.Split(conds, ",") {
		col, other, ok := strings.Cut(c, "=")
		otherTable, otherCol, ok2 := strings.Cut(strings.TrimSpace(other), ".")
		if !ok || !ok2 {
			return domain.JoinClause{}, fmt.Errorf("invalid join condition %q: want col=other_table.col", c)
		}
		clause.On = append(clause.On, domain.JoinCondition{
			Column:      strings.TrimSpace(col),
			OtherTable:  otherTable,
			OtherColumn: otherCol,
		})
	}
	return clause, nil
}

func newJoinCmd(g *globals) *cobra.Command {
	var joins []string

	cmd := &cobra.Command{
		Use:   "join <main-table>",
		Short: "Join tables and show every column tagged by its table",
		Example: `  gpsr join stats --join "file_available:LEFT:date=stats.date"
  gpsr join a --join "b:date=a.date,Player=a.Player" --join "c:FULL:id=b.id"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := domain.JoinSpec{Main: args[0]}
			for _, j := range joins {
				clause, err := parseJoinClause(j)
				if err != nil {
					return err
				}
				spec.Joins = append(spec.Joins, clause)
			}

			res, err := g.store().MakeJoin(cmd.Context(), spec)
			if err != nil {
				return err
			}
			if g.json() {
				return printJSON(cmd.OutOrStdout(), map[string]any{"columns": res.Columns, "rows": res.Rows})
			}
			headers := make([]string, len(res.Columns))
			for i, c := range res.Columns {
				headers[i] = c.Table + "." + c.Column
			}
			return printTable(cmd.OutOrStdout(), headers, res.Rows)
		},
	}

	cmd.Flags().StringArrayVar(&joins, "join", nil, "Joined table as TABLE[:TYPE]:col=other.col (repeatable, in order)")
	_ = cmd.MarkFlagRequired("join")

	return cmd
}
