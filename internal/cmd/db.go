package cmd

import (
	"database/sql"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// dbCmd groups database maintenance subcommands
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Direct database access",
}

// dbSQLCmd represents the db sql command
var dbSQLCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Execute SQL directly against the Dolt database",
	Long: `Execute arbitrary SQL queries against the ragdoll Dolt database.

Provides direct access to Dolt tables, system tables, and SQL functions.
Useful for advanced queries, debugging, and accessing Dolt-specific
features such as index history.

Common Dolt system tables:
  dolt_log          Commit history
  dolt_branches     Branch information
  dolt_status       Working set status
  dolt_diff()       Compare changes between refs

Examples:
  ragdoll db sql "SELECT * FROM entities LIMIT 5"
  ragdoll db sql "SELECT COUNT(*) FROM dependencies"
  ragdoll db sql "SELECT * FROM dolt_log LIMIT 10"
  ragdoll db sql "SELECT * FROM DOLT_DIFF('HEAD~1', 'HEAD', 'entities')"`,
	Args: cobra.ExactArgs(1),
	RunE: runDBSQL,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbSQLCmd)
}

// SQLResult represents the output of a SQL query
type SQLResult struct {
	Columns []string                 `yaml:"columns" json:"columns"`
	Rows    []map[string]interface{} `yaml:"rows" json:"rows"`
	Count   int                      `yaml:"count" json:"count"`
}

func runDBSQL(cmd *cobra.Command, args []string) error {
	query := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	db := st.DB()

	trimmed := strings.TrimSpace(strings.ToUpper(query))
	isQuery := strings.HasPrefix(trimmed, "SELECT") ||
		strings.HasPrefix(trimmed, "SHOW") ||
		strings.HasPrefix(trimmed, "DESCRIBE") ||
		strings.HasPrefix(trimmed, "EXPLAIN")

	if isQuery {
		return runSQLQuery(cmd, db, query)
	}
	return runSQLExec(cmd, db, query)
}

func runSQLQuery(cmd *cobra.Command, db *sql.DB, query string) error {
	rows, err := db.Query(query)
	if err != nil {
		return fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	result := SQLResult{
		Columns: columns,
		Rows:    make([]map[string]interface{}, 0),
	}

	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = normalizeSQLValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}
	result.Count = len(result.Rows)

	if outputFormat == "yaml" || outputFormat == "" {
		// Table output reads better for ad-hoc SQL; --format json
		// still yields the structured form.
		return printSQLTable(cmd, result)
	}
	return render(cmd.OutOrStdout(), result)
}

func runSQLExec(cmd *cobra.Command, db *sql.DB, query string) error {
	res, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("exec error: %w", err)
	}
	affected, _ := res.RowsAffected()
	fmt.Fprintf(cmd.OutOrStdout(), "OK, %d row(s) affected\n", affected)
	return nil
}

// normalizeSQLValue converts driver byte slices to strings for output.
func normalizeSQLValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func printSQLTable(cmd *cobra.Command, result SQLResult) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(result.Columns, "\t"))

	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cells[i] = fmt.Sprintf("%v", row[col])
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d row(s)\n", result.Count)
	return nil
}
