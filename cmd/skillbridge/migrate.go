package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/BaSui01/skillbridge/config"
	"github.com/BaSui01/skillbridge/internal/migration"
)

// =============================================================================
// Database Migration Commands
// =============================================================================

// runMigrate handles `migrate <subcommand> [args] [flags]`
func runMigrate(args []string) {
	if len(args) < 1 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printMigrateUsage()
		if len(args) < 1 {
			os.Exit(1)
		}
		return
	}

	subcommand, positional, flagArgs := splitMigrateArgs(args)

	fs := flag.NewFlagSet("migrate "+subcommand, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dbType := fs.String("db-type", "", "Database type (postgres, mysql, sqlite)")
	dbURL := fs.String("db-url", "", "Database connection URL")
	_ = fs.Parse(flagArgs)

	logCfg := config.DefaultLogConfig()
	logCfg.Format = "console"
	logger, _ := initLogger(logCfg)
	defer func() { _ = logger.Sync() }()

	migrator, err := createMigrator(*configPath, *dbType, *dbURL, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrator: %v\n", err)
		os.Exit(1)
	}
	defer migrator.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := migration.NewCLI(migrator).Run(ctx, subcommand, positional); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", subcommand, err)
		os.Exit(1)
	}
}

// splitMigrateArgs 拆分子命令、位置参数与 flag；位置参数必须位于 flag 之前
func splitMigrateArgs(args []string) (string, []string, []string) {
	subcommand := args[0]
	rest := args[1:]
	i := 0
	for i < len(rest) && (!strings.HasPrefix(rest[i], "-") || isNegativeNumber(rest[i])) {
		i++
	}
	return subcommand, rest[:i], rest[i:]
}

func isNegativeNumber(s string) bool {
	if len(s) < 2 || s[0] != '-' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// createMigrator 优先使用 --db-type/--db-url，否则从配置构建
func createMigrator(configPath, dbType, dbURL string, logger *zap.Logger) (*migration.DefaultMigrator, error) {
	if dbType != "" && dbURL != "" {
		return migration.NewMigratorFromURL(dbType, dbURL, logger)
	}

	_, cfg := loadConfig(configPath)
	if dbType != "" {
		cfg.Database.Driver = dbType
	}
	return migration.NewMigratorFromDatabaseConfig(cfg.Database, logger)
}

// printMigrateUsage prints the usage information for migrate command
func printMigrateUsage() {
	fmt.Print(`Database Migration Commands

Usage:
  skillbridge migrate <subcommand> [args] [options]

Subcommands:
`)
	migration.Usage(os.Stdout)
	fmt.Println(`  help  Show this help message

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database type: postgres, mysql, sqlite (default: from config)
  --db-url <url>      Database connection URL (default: from config)

Examples:
  skillbridge migrate up --config /etc/skillbridge/config.yaml
  skillbridge migrate down
  skillbridge migrate goto 1
  skillbridge migrate status --db-type sqlite --db-url file:state.db`)
}
