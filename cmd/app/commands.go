package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/starford/maxwell/internal"
	"github.com/starford/maxwell/internal/index"
	"github.com/starford/maxwell/internal/memory"
	"github.com/starford/maxwell/internal/models"
	pkgconfig "github.com/starford/maxwell/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// withEngine loads the config, opens the engine with logs on stderr, and
// runs fn against it.
func withEngine(cmd *cli.Command, fn func(*internal.Engine, *internal.Config) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
	eng, err := internal.OpenEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()
	return fn(eng, cfg)
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func printJSON(cmd *cli.Command, v any) error {
	enc := json.NewEncoder(output(cmd))
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printText(cmd *cli.Command, s string) error {
	_, err := fmt.Fprintln(output(cmd), s)
	return err
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API and re-index notes as they change",
		Action: serve,
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve memory tools over MCP stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return internal.RunMCP(ctx, internal.WithConfig(cfg))
		},
	}
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Index new and changed notes",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verify", Usage: "Run the full-text index integrity check afterwards"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withEngine(cmd, func(eng *internal.Engine, _ *internal.Config) error {
				rep, err := eng.Service.IndexAll()
				if err != nil {
					return err
				}
				if cmd.Bool("verify") {
					if err := eng.DB.Verify(); err != nil {
						return fmt.Errorf("verify: %w", err)
					}
				}
				return printJSON(cmd, rep)
			})
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Index notes, then keep re-indexing them as they change",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withEngine(cmd, func(eng *internal.Engine, cfg *internal.Config) error {
				if _, err := eng.Service.IndexAll(); err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
				return index.Watch(ctx, eng.Indexer, cfg.Notes.Root, logger, func(kind, path string) {
					_ = printText(cmd, kind+" "+path)
				})
			})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search observations, grouped by entity",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Max entities (1-100)"},
			&cli.BoolFlag{Name: "recency", Usage: "Discount older observations"},
			&cli.FloatFlag{Name: "half-life", Usage: "Recency half-life in days"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := strings.Join(cmd.Args().Slice(), " ")
			if query == "" {
				return fmt.Errorf("search: query is required")
			}
			return withEngine(cmd, func(eng *internal.Engine, cfg *internal.Config) error {
				recency := cfg.Search.Recency
				if cmd.IsSet("recency") {
					recency = cmd.Bool("recency")
				}
				results, err := eng.Service.Search(query, memory.SearchOptions{
					Limit:        int(cmd.Int("limit")),
					Recency:      recency,
					HalfLifeDays: cmd.Float("half-life"),
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, results)
			})
		},
	}
}

func contextCommand() *cli.Command {
	return &cli.Command{
		Name:  "context",
		Usage: "Print an assembled markdown context bundle",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Search query"},
			&cli.StringFlag{Name: "entity", Aliases: []string{"e"}, Usage: "Entity name or permalink"},
			&cli.StringFlag{Name: "date", Usage: "Daily note date (YYYY-MM-DD)"},
			&cli.IntFlag{Name: "recent-days", Usage: "Include the last N days"},
			&cli.BoolFlag{Name: "tasks", Usage: "Include pending tasks"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Max observations"},
			&cli.BoolFlag{Name: "curated", Usage: "Prefix the bundle with RESET.md, MEMORY.md and USER.md"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withEngine(cmd, func(eng *internal.Engine, cfg *internal.Config) error {
				res, err := eng.Service.BuildContext(memory.ContextQuery{
					Query:               cmd.String("query"),
					Entity:              cmd.String("entity"),
					Date:                cmd.String("date"),
					RecentDays:          int(cmd.Int("recent-days")),
					IncludePendingTasks: cmd.Bool("tasks"),
					Limit:               int(cmd.Int("limit")),
					Recency:             cfg.Search.Recency,
				})
				if err != nil {
					return err
				}
				text := res.Formatted
				if cmd.Bool("curated") {
					curated, err := eng.Service.CuratedMemory()
					if err != nil {
						return err
					}
					if curated != "" {
						text = curated + "\n\n---\n\n" + text
					}
				}
				return printText(cmd, text)
			})
		},
	}
}

func tasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "List open tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "entity", Aliases: []string{"e"}, Usage: "Scope to one entity"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 50, Usage: "Max tasks"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withEngine(cmd, func(eng *internal.Engine, _ *internal.Config) error {
				var scope string
				if name := cmd.String("entity"); name != "" {
					e, err := eng.Service.FindEntity(name)
					if err != nil {
						return fmt.Errorf("entity %q: %w", name, err)
					}
					scope = e.ID
				}
				tasks, err := eng.Service.PendingTasks(scope, int(cmd.Int("limit")))
				if err != nil {
					return err
				}
				for _, t := range tasks {
					if err := printText(cmd, fmt.Sprintf("- [ ] %s (%s:%d)", t.Content, t.SourceFile, t.SourceLine)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Count entities, observations and relations",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withEngine(cmd, func(eng *internal.Engine, _ *internal.Config) error {
				st, err := eng.Service.Stats()
				if err != nil {
					return err
				}
				return printJSON(cmd, st)
			})
		},
	}
}

func digestCommand() *cli.Command {
	def := memory.DefaultDigestOptions()
	return &cli.Command{
		Name:  "digest",
		Usage: "Summarise recent comms and code activity",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", DefaultText: fmt.Sprint(def.Days), Usage: "Window in days"},
			&cli.IntFlag{Name: "limit", DefaultText: fmt.Sprint(def.Limit), Usage: "Max items per source"},
			&cli.BoolFlag{Name: "comms", Value: def.IncludeComms, Usage: "Include comms actions"},
			&cli.BoolFlag{Name: "code", Value: def.IncludeCode, Usage: "Include code events"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withEngine(cmd, func(eng *internal.Engine, _ *internal.Config) error {
				opts := memory.DigestOptions{
					Days:         def.Days,
					Limit:        def.Limit,
					IncludeComms: cmd.Bool("comms"),
					IncludeCode:  cmd.Bool("code"),
				}
				if cmd.IsSet("days") {
					opts.Days = int(cmd.Int("days"))
				}
				if cmd.IsSet("limit") {
					opts.Limit = int(cmd.Int("limit"))
				}
				d, err := eng.Service.BuildActivityDigest(opts)
				if err != nil {
					return err
				}
				return printText(cmd, d.Summary)
			})
		},
	}
}

func logCommand() *cli.Command {
	return &cli.Command{
		Name:      "log",
		Usage:     "Append lines to a daily note section, or record an integration event",
		ArgsUsage: "<line>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "header", Value: "Log", Usage: "Section header in the daily note"},
			&cli.StringFlag{Name: "date", Usage: "Daily note date (default today)"},
			&cli.BoolFlag{Name: "event", Usage: "Record the arguments as one integration event instead"},
			&cli.StringFlag{Name: "kind", Usage: "Event kind (with --event)"},
			&cli.StringFlag{Name: "project", Usage: "Event project (with --event)"},
			&cli.StringFlag{Name: "repo", Usage: "Event repository (with --event)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) == 0 {
				return fmt.Errorf("log: at least one line is required")
			}
			return withEngine(cmd, func(eng *internal.Engine, _ *internal.Config) error {
				if cmd.Bool("event") {
					ev, err := eng.Service.RecordIntegrationEvent(models.IntegrationEvent{
						Date:    cmd.String("date"),
						Kind:    cmd.String("kind"),
						Project: cmd.String("project"),
						Repo:    cmd.String("repo"),
						Line:    strings.Join(args, " "),
					})
					if err != nil {
						return err
					}
					return printJSON(cmd, ev)
				}
				n, err := eng.Service.LogToDailyNote(cmd.String("date"), cmd.String("header"), args)
				if err != nil {
					return err
				}
				return printText(cmd, fmt.Sprintf("appended %d line(s)", n))
			})
		},
	}
}
