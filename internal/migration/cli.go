package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
)

// ErrUnknownCommand 未知的 migrate 子命令
var ErrUnknownCommand = errors.New("unknown migrate command")

// CLI 把 Migrator 的结果格式化输出到终端，供 skillbridge migrate 子命令使用
type CLI struct {
	migrator Migrator
	output   io.Writer
}

// NewCLI 创建 CLI，默认输出到 stdout
func NewCLI(migrator Migrator) *CLI {
	return &CLI{migrator: migrator, output: os.Stdout}
}

func (c *CLI) SetOutput(w io.Writer) {
	c.output = w
}

// =============================================================================
// 📋 子命令表
// =============================================================================

type command struct {
	name  string
	args  string
	usage string
	run   func(ctx context.Context, c *CLI, args []string) error
}

var commands = []command{
	{"up", "", "Apply all pending conversation state migrations", func(ctx context.Context, c *CLI, _ []string) error {
		return c.change(ctx, "Applying pending migrations", c.migrator.Up)
	}},
	{"down", "[all]", "Roll back the last migration, or all of them", func(ctx context.Context, c *CLI, args []string) error {
		if len(args) > 0 && args[0] == "all" {
			return c.change(ctx, "Rolling back all migrations", c.migrator.DownAll)
		}
		return c.change(ctx, "Rolling back the last migration", c.migrator.Down)
	}},
	{"steps", "<n>", "Apply n migrations; negative n rolls back", func(ctx context.Context, c *CLI, args []string) error {
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return c.change(ctx, fmt.Sprintf("Moving %+d step(s)", n), func(ctx context.Context) error {
			return c.migrator.Steps(ctx, n)
		})
	}},
	{"goto", "<v>", "Migrate to a specific version", func(ctx context.Context, c *CLI, args []string) error {
		n, err := intArg(args)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("goto: version must not be negative, got %d", n)
		}
		return c.change(ctx, fmt.Sprintf("Migrating to version %d", n), func(ctx context.Context) error {
			return c.migrator.Goto(ctx, uint(n))
		})
	}},
	{"force", "<v>", "Force the recorded version after a failed migration", func(ctx context.Context, c *CLI, args []string) error {
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return c.change(ctx, fmt.Sprintf("Forcing version %d", n), func(ctx context.Context) error {
			return c.migrator.Force(ctx, n)
		})
	}},
	{"status", "", "List migrations and whether they are applied", func(ctx context.Context, c *CLI, _ []string) error {
		return c.RunStatus(ctx)
	}},
	{"version", "", "Show the current schema version", func(ctx context.Context, c *CLI, _ []string) error {
		return c.RunVersion(ctx)
	}},
	{"info", "", "Show applied/pending counts", func(ctx context.Context, c *CLI, _ []string) error {
		return c.RunInfo(ctx)
	}},
}

// Run 按子命令名分发；args 为子命令之后的位置参数
func (c *CLI) Run(ctx context.Context, name string, args []string) error {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd.run(ctx, c, args)
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// Usage 输出子命令列表
func Usage(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, cmd := range commands {
		fmt.Fprintf(tw, "  %s %s\t%s\n", cmd.name, cmd.args, cmd.usage)
	}
	_ = tw.Flush()
}

// change 执行一次改变 schema 的操作，并报告操作后的版本
func (c *CLI) change(ctx context.Context, what string, op func(context.Context) error) error {
	fmt.Fprintf(c.output, "%s...\n", what)
	if err := op(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	info, err := c.migrator.Info(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.output, "Done. Current version: %d\n", info.CurrentVersion)
	return nil
}

// =============================================================================
// 🔎 只读子命令
// =============================================================================

// RunVersion 输出当前版本
func (c *CLI) RunVersion(ctx context.Context) error {
	version, dirty, err := c.migrator.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	if version == 0 {
		fmt.Fprintln(c.output, "No migrations applied yet.")
		return nil
	}
	suffix := ""
	if dirty {
		suffix = " (dirty)"
	}
	fmt.Fprintf(c.output, "Current version: %d%s\n", version, suffix)
	return nil
}

// RunStatus 以表格列出每个迁移的状态
func (c *CLI) RunStatus(ctx context.Context) error {
	statuses, err := c.migrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if len(statuses) == 0 {
		fmt.Fprintln(c.output, "No migrations found.")
		return nil
	}

	tw := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATUS")
	for _, s := range statuses {
		fmt.Fprintf(tw, "%06d\t%s\t%s\n", s.Version, s.Name, statusLabel(s))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	info, err := c.migrator.Info(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.output, "\nTotal: %d, Applied: %d, Pending: %d\n",
		info.TotalMigrations, info.AppliedMigrations, info.PendingMigrations)
	return nil
}

// RunInfo 输出迁移汇总
func (c *CLI) RunInfo(ctx context.Context) error {
	info, err := c.migrator.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get info: %w", err)
	}
	tw := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "current version\t%d\n", info.CurrentVersion)
	fmt.Fprintf(tw, "dirty\t%v\n", info.Dirty)
	fmt.Fprintf(tw, "total\t%d\n", info.TotalMigrations)
	fmt.Fprintf(tw, "applied\t%d\n", info.AppliedMigrations)
	fmt.Fprintf(tw, "pending\t%d\n", info.PendingMigrations)
	return tw.Flush()
}

func statusLabel(s MigrationStatus) string {
	switch {
	case s.Dirty:
		return "Dirty"
	case s.Applied:
		return "Applied"
	default:
		return "Pending"
	}
}

func intArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("missing numeric argument")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid numeric argument %q: %w", args[0], err)
	}
	return n, nil
}
