package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tsfans/sql-lineage/config"
	"github.com/tsfans/sql-lineage/lineage"
	"github.com/tsfans/sql-lineage/parser"
	"go.mongodb.org/mongo-driver/bson"
)

type parseOptions struct {
	ConfigPath     string
	Platform       string
	Database       string
	Schema         string
	SQLMode        string
	FullTableNames bool
	OutputFormat   string
}

func newParseCommand() *cobra.Command {
	opts := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Print source, target, renamed and dropped tables of a query",
		Long: `Parse SQL text from a file, or from stdin when no file is given, and print
the tables it reads, writes, renames and drops.`,
		Example: `  # Lineage of a single script
  sqllineage parse etl/daily.sql --database analytics --schema public

  # Snowflake COPY statements, JSON output
  echo "COPY INTO raw.events FROM @stage" | sqllineage parse --platform snowflake -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to config.yaml")
	cmd.Flags().StringVar(&opts.Platform, "platform", "", "SQL platform (default|mysql|snowflake)")
	cmd.Flags().StringVar(&opts.Database, "database", "", "Profile database used to qualify table names")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "Profile schema used to qualify table names")
	cmd.Flags().StringVar(&opts.SQLMode, "sql-mode", "", "MySQL sql_mode for the parser, e.g. ANSI_QUOTES")
	cmd.Flags().BoolVar(&opts.FullTableNames, "full-names", false, "Qualify table names with the database")
	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "text", "Output format (text|json|bson)")

	return cmd
}

// 命令行参数覆盖配置文件
func resolveConfig(cmd *cobra.Command, opts *parseOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.LoadConfig(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("platform") {
		cfg.Platform = opts.Platform
	}
	if flags.Changed("database") {
		cfg.Profile.Database = opts.Database
	}
	if flags.Changed("schema") {
		cfg.Profile.Schema = opts.Schema
	}
	if flags.Changed("sql-mode") {
		cfg.SQLMode = opts.SQLMode
	}
	if flags.Changed("full-names") {
		cfg.FullTableNames = opts.FullTableNames
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runParse(cmd *cobra.Command, args []string, opts *parseOptions) error {
	if opts.OutputFormat != "text" && opts.OutputFormat != "json" && opts.OutputFormat != "bson" {
		return fmt.Errorf("unknown output format: %s", opts.OutputFormat)
	}

	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}
	if err := cfg.ApplyLogLevel(); err != nil {
		return err
	}

	sqlText, err := readSQL(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	platform, err := lineage.PlatformByType(cfg.Platform)
	if err != nil {
		return err
	}
	analyzer := parser.NewMySQLAnalyzer()
	if cfg.SQLMode != "" {
		analyzer, err = parser.NewMySQLAnalyzerWithSQLMode(cfg.SQLMode)
		if err != nil {
			return err
		}
	}

	query := lineage.NewQuery(sqlText, nil, cfg.Profile.Database, cfg.Profile.Schema,
		lineage.WithPlatform(platform), lineage.WithAnalyzer(analyzer))
	found, err := query.Parse(cfg.FullTableNames)
	if err != nil {
		return fmt.Errorf("failed to parse query: %w", err)
	}
	if !found {
		log.Debugf("no lineage found")
	}

	out := cmd.OutOrStdout()
	switch opts.OutputFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(query.LineageDict())
	case "bson":
		// 原始BSON文档，可直接用mongoimport等工具写入MongoDB
		data, err := bson.Marshal(query)
		if err != nil {
			return fmt.Errorf("failed to marshal bson: %w", err)
		}
		_, err = out.Write(data)
		return err
	}
	return printLineageText(out, query)
}

func readSQL(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read sql file: %w", err)
	}
	return string(data), nil
}

func printLineageText(out io.Writer, query *lineage.Query) error {
	sections := []struct {
		title  string
		tables []string
	}{
		{"Source tables", query.SourceTables.Sorted()},
		{"Target tables", query.TargetTables.Sorted()},
		{"Dropped tables", query.DroppedTables.Sorted()},
	}
	for _, section := range sections {
		fmt.Fprintf(out, "%s (%d):\n", section.title, len(section.tables))
		for _, table := range section.tables {
			fmt.Fprintf(out, "  - %s\n", table)
		}
	}

	renamed := query.RenamedTables.Sorted()
	fmt.Fprintf(out, "Renamed tables (%d):\n", len(renamed))
	for _, pair := range renamed {
		fmt.Fprintf(out, "  - %s -> %s\n", pair.Old, pair.New)
	}
	return nil
}
