package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/mindmarks/mindmarks-go/internal"
	"github.com/mindmarks/mindmarks-go/internal/content"
	"github.com/mindmarks/mindmarks-go/internal/mcpserver"
	"github.com/mindmarks/mindmarks-go/internal/models"
	pkgconfig "github.com/mindmarks/mindmarks-go/pkg/config"
)

func newApp(cmd *cli.Command) (*internal.App, error) {
	cfg := internal.NewDefaultConfig()
	configPath := cmd.String("config")
	if configPath != "" {
		if err := pkgconfig.Load(configPath, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if base := cmd.String("api-url"); base != "" {
		cfg.API.BaseURL = base
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return internal.NewApp(internal.WithConfig(cfg))
}

func withApp(fn func(ctx context.Context, app *internal.App, cmd *cli.Command) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, app, cmd)
	}
}

func printItems(items []models.ContentItem) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tCOLUMN\tTAGS")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.Name, it.Type, it.Column, strings.Join(it.Tags, ","))
	}
	w.Flush()
}

func main() {
	cmd := &cli.Command{
		Name:  "mindmarks",
		Usage: "Track books, articles, videos, and courses on a reading kanban board",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "none",
				Sources:     cli.EnvVars("MINDMARKS_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Mindmarks API base URL",
				Sources: cli.EnvVars("MINDMARKS_API_URL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "login",
				Usage:     "Sign in and store the session",
				ArgsUsage: "<email>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "password",
						Usage:   "Account password",
						Sources: cli.EnvVars("MINDMARKS_PASSWORD"),
					},
				},
				Action: withApp(func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					email := cmd.Args().First()
					if email == "" {
						return fmt.Errorf("usage: mindmarks login <email>")
					}
					password := cmd.String("password")
					if password == "" {
						return fmt.Errorf("set --password or MINDMARKS_PASSWORD")
					}
					if err := app.Login(ctx, email, password); err != nil {
						return err
					}
					fmt.Printf("Signed in as %s\n", email)
					return nil
				}),
			},
			{
				Name:      "register",
				Usage:     "Create an account and sign in",
				ArgsUsage: "<email>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "password",
						Sources: cli.EnvVars("MINDMARKS_PASSWORD"),
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Full name",
					},
				},
				Action: withApp(func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					email := cmd.Args().First()
					if email == "" {
						return fmt.Errorf("usage: mindmarks register <email>")
					}
					if err := app.Register(ctx, email, cmd.String("password"), cmd.String("name")); err != nil {
						return err
					}
					fmt.Printf("Registered and signed in as %s\n", email)
					return nil
				}),
			},
			{
				Name:  "logout",
				Usage: "Clear the stored session",
				Action: withApp(func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					if err := app.Logout(); err != nil {
						return err
					}
					fmt.Println("Signed out")
					return nil
				}),
			},
			{
				Name:  "whoami",
				Usage: "Show the signed-in account",
				Action: withApp(func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					account, err := app.API.Me(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("%s (%s)\n", account.User().Name, account.Email)
					return nil
				}),
			},
			{
				Name:  "list",
				Usage: "List your content",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "offline",
						Usage: "Read from the local snapshot instead of the API",
					},
				},
				Action: withApp(func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					items, err := app.List(ctx, cmd.Bool("offline"))
					if err != nil {
						return err
					}
					printItems(items)
					return nil
				}),
			},
			{
				Name:  "board",
				Usage: "Show the kanban board grouped by column",
				Action: withApp(func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					items, err := app.List(ctx, false)
					if err != nil {
						return err
					}
					for _, col := range models.DefaultColumns() {
						fmt.Printf("## %s\n", col.Name)
						for _, it := range items {
							if it.Column == col.ID {
								fmt.Printf("  %s  %s [%s]\n", it.ID, it.Name, it.Type)
							}
						}
						fmt.Println()
					}
					return nil
				}),
			},
			{
				Name:      "add",
				Usage:     "Add a piece of content",
				ArgsUsage: "<title>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Value: "book", Usage: "book, article, video, podcast, course, or other"},
					&cli.StringFlag{Name: "url"},
					&cli.StringFlag{Name: "summary"},
					&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
				},
				Action: withApp(func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					title := strings.Join(cmd.Args().Slice(), " ")
					if title == "" {
						return fmt.Errorf("usage: mindmarks add <title>")
					}
					var tags []string
					if raw := cmd.String("tags"); raw != "" {
						for _, tag := range strings.Split(raw, ",") {
							tags = append(tags, strings.TrimSpace(tag))
						}
					}
					item, err := app.Add(ctx, content.CreateInput{
						Title:   title,
						Type:    models.ContentType(cmd.String("type")),
						URL:     cmd.String("url"),
						Summary: cmd.String("summary"),
						Tags:    tags,
					})
					if err != nil {
						return err
					}
					fmt.Printf("Added %s (%s)\n", item.Name, item.ID)
					return nil
				}),
			},
			{
				Name:      "move",
				Usage:     "Move an item to another board column",
				ArgsUsage: "<id> <column>",
				Action: withApp(func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					id, column := cmd.Args().Get(0), cmd.Args().Get(1)
					if id == "" || column == "" {
						return fmt.Errorf("usage: mindmarks move <id> <column>")
					}
					item, err := app.Move(ctx, id, column)
					if err != nil {
						return err
					}
					fmt.Printf("Moved %s to %s\n", item.Name, item.Column)
					return nil
				}),
			},
			{
				Name:      "show",
				Usage:     "Show one content page",
				ArgsUsage: "<id>",
				Action: withApp(func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					id := cmd.Args().First()
					if id == "" {
						return fmt.Errorf("usage: mindmarks show <id>")
					}
					page, err := app.Show(ctx, id)
					if err != nil {
						return err
					}
					if page == nil {
						return fmt.Errorf("content %s not found", id)
					}
					fmt.Printf("# %s\n\ntype: %s\nstatus: %s\n", page.Title, page.Type, page.Status)
					if page.URL != "" {
						fmt.Printf("url: %s\n", page.URL)
					}
					if len(page.Tags) > 0 {
						fmt.Printf("tags: %s\n", strings.Join(page.Tags, ", "))
					}
					if page.Summary != "" {
						fmt.Printf("\n%s\n", page.Summary)
					}
					return nil
				}),
			},
			{
				Name:      "remove",
				Usage:     "Delete a piece of content",
				ArgsUsage: "<id>",
				Action: withApp(func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					id := cmd.Args().First()
					if id == "" {
						return fmt.Errorf("usage: mindmarks remove <id>")
					}
					if err := app.Remove(ctx, id); err != nil {
						return err
					}
					fmt.Printf("Removed %s\n", id)
					return nil
				}),
			},
			{
				Name:      "import",
				Usage:     "Scrape a web page into a new article",
				ArgsUsage: "<url>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "selector",
						Usage: "Limit extraction to a #id, .class, or tag",
					},
				},
				Action: withApp(func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					url := cmd.Args().First()
					if url == "" {
						return fmt.Errorf("usage: mindmarks import <url>")
					}
					item, err := app.ImportURL(ctx, url, cmd.String("selector"))
					if err != nil {
						return err
					}
					fmt.Printf("Imported %s (%s)\n", item.Name, item.ID)
					return nil
				}),
			},
			{
				Name:  "sync",
				Usage: "Download all content into the offline snapshot",
				Action: withApp(func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					n, err := app.Sync(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("Synced %d items\n", n)
					return nil
				}),
			},
			{
				Name:  "mcp",
				Usage: "Serve the MCP tool interface on stdio",
				Action: withApp(func(ctx context.Context, app *internal.App, cmd *cli.Command) error {
					return mcpserver.New(app.Store).ServeStdio()
				}),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
