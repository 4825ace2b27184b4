package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/waystation/internal"
	"github.com/starford/waystation/internal/apperr"
	"github.com/starford/waystation/internal/export"
	"github.com/starford/waystation/internal/models"
	"github.com/starford/waystation/internal/waystation"
)

func jsonFlag(usage string) cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: usage}
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "new",
			Aliases:   []string{"n"},
			Usage:     "Back up the current Waystation and start a new one",
			ArgsUsage: "<name>",
			Action:    withApp(newWaystation),
		},
		markCommand(),
		{
			Name:    "list",
			Aliases: []string{"l"},
			Usage:   "List the marks of the current Waystation",
			Action:  withApp(listMarks),
		},
		{
			Name:      "open",
			Aliases:   []string{"o"},
			Usage:     "Make a saved Waystation current, or list recent ones",
			ArgsUsage: "[id]",
			Flags: []cli.Flag{
				jsonFlag("Print recent Waystations as JSON"),
				&cli.BoolFlag{Name: "project", Usage: "Only Waystations associated with the working directory"},
			},
			Action: withApp(openWaystation),
		},
		{
			Name:      "tag",
			Aliases:   []string{"t"},
			Usage:     "Add a tag to the current Waystation",
			ArgsUsage: "[tag]",
			Action:    withApp(addTag),
		},
		{
			Name:      "rename",
			Usage:     "Rename the current Waystation",
			ArgsUsage: "<name>",
			Action:    withApp(rename),
		},
		{
			Name:  "export",
			Usage: "Write the current Waystation as Markdown",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "html", Usage: "Write HTML instead of Markdown"},
			},
			Action: withApp(exportCurrent),
		},
		{
			Name:      "validate",
			Usage:     "Check a Waystation JSON document without saving it",
			ArgsUsage: "<json|->",
			Action:    withApp(validate),
		},
		{
			Name:      "update",
			Usage:     "Replace the current Waystation with a JSON document",
			ArgsUsage: "<json|->",
			Action:    withApp(update),
		},
		{
			Name:      "search",
			Usage:     "Search saved Waystations",
			ArgsUsage: "<query>",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum number of results"},
			},
			Action: withApp(search),
		},
		{
			Name:   "watch",
			Usage:  "Keep the search index in step with files changed on disk",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error { return app.Watch(ctx) }),
		},
		{
			Name:   "mcp",
			Usage:  "Serve Waystation tools over MCP on stdin and stdout",
			Action: withApp(func(_ context.Context, _ *cli.Command, app *internal.App) error { return app.ServeMCP(version) }),
		},
	}
}

func markCommand() *cli.Command {
	return &cli.Command{
		Name:      "mark",
		Aliases:   []string{"m"},
		Usage:     "Add a mark to the current Waystation",
		ArgsUsage: "<path[:line[:column[:text]]]> [name]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Name of the new mark"},
		},
		Action: withApp(addMark),
		Commands: []*cli.Command{
			{
				Name:      "note",
				Usage:     "Attach a note to a mark",
				ArgsUsage: "<index> <text>",
				Action: withApp(onMark(func(ctx context.Context, app *internal.App, i int, args []string) (models.Waystation, error) {
					return app.Service.AddNote(ctx, i, strings.Join(args, " "))
				})),
			},
			{
				Name:      "url",
				Usage:     "Attach an http(s) URL to a mark",
				ArgsUsage: "<index> <url>",
				Action: withApp(onMark(func(ctx context.Context, app *internal.App, i int, args []string) (models.Waystation, error) {
					raw, err := arg(args, 0, "url")
					if err != nil {
						return models.Waystation{}, err
					}
					return app.Service.AddURL(ctx, i, raw)
				})),
			},
			{
				Name:      "station",
				Usage:     "Link a saved Waystation to a mark",
				ArgsUsage: "<index> <id>",
				Action: withApp(onMark(func(ctx context.Context, app *internal.App, i int, args []string) (models.Waystation, error) {
					id, err := arg(args, 0, "id")
					if err != nil {
						return models.Waystation{}, err
					}
					return app.Service.AddStation(ctx, i, id)
				})),
			},
			{
				Name:      "subway",
				Usage:     "Branch a new Waystation off a mark",
				ArgsUsage: "<index> [name]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "open", Usage: "Make the new Waystation current"},
				},
				Action: withApp(subway),
			},
			{
				Name:      "remove",
				Usage:     "Remove a mark",
				ArgsUsage: "<index>",
				Action: withApp(onMark(func(ctx context.Context, app *internal.App, i int, _ []string) (models.Waystation, error) {
					return app.Service.RemoveMark(ctx, i)
				})),
			},
			{
				Name:      "resource",
				Usage:     "Remove every resource with the given name from a mark",
				ArgsUsage: "<index> <name>",
				Action: withApp(onMark(func(ctx context.Context, app *internal.App, i int, args []string) (models.Waystation, error) {
					return app.Service.RemoveResource(ctx, i, strings.Join(args, " "))
				})),
			},
			{
				Name:      "order",
				Usage:     "Move a mark to another position",
				ArgsUsage: "<from> <to>",
				Action: withApp(onMark(func(ctx context.Context, app *internal.App, i int, args []string) (models.Waystation, error) {
					raw, err := arg(args, 0, "to")
					if err != nil {
						return models.Waystation{}, err
					}
					to, err := parseIndex(raw)
					if err != nil {
						return models.Waystation{}, err
					}
					return app.Service.ReorderMarks(ctx, i, to)
				})),
			},
			{
				Name:      "up",
				Usage:     "Move a mark one position up",
				ArgsUsage: "<index>",
				Action: withApp(onMark(func(ctx context.Context, app *internal.App, i int, _ []string) (models.Waystation, error) {
					return app.Service.MoveMarkUp(ctx, i)
				})),
			},
			{
				Name:      "down",
				Usage:     "Move a mark one position down",
				ArgsUsage: "<index>",
				Action: withApp(onMark(func(ctx context.Context, app *internal.App, i int, _ []string) (models.Waystation, error) {
					return app.Service.MoveMarkDown(ctx, i)
				})),
			},
			{
				Name:      "edit",
				Usage:     "Set one field (name, body, path, line, column) of a mark",
				ArgsUsage: "<index> <field> <value>",
				Action: withApp(onMark(func(ctx context.Context, app *internal.App, i int, args []string) (models.Waystation, error) {
					name, err := arg(args, 0, "field")
					if err != nil {
						return models.Waystation{}, err
					}
					field, err := waystation.ParseMarkField(name)
					if err != nil {
						return models.Waystation{}, err
					}
					return app.Service.EditMark(ctx, i, field, strings.Join(args[1:], " "))
				})),
			},
		},
	}
}

// onMark adapts a mark subcommand taking an index as its first argument.
// The updated mark list is printed afterwards.
func onMark(fn func(ctx context.Context, app *internal.App, index int, args []string) (models.Waystation, error)) action {
	return func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
		args := cmd.Args().Slice()
		raw, err := arg(args, 0, "index")
		if err != nil {
			return err
		}
		i, err := parseIndex(raw)
		if err != nil {
			return err
		}
		w, err := fn(ctx, app, i, args[1:])
		if err != nil {
			return err
		}
		printMarks(out(cmd), w)
		return nil
	}
}

func showCurrent(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	w, err := app.Service.Current(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return printJSON(out(cmd), w)
	}
	recent, err := app.Service.Recent(ctx)
	if err != nil {
		return err
	}
	wr := out(cmd)
	fmt.Fprintf(wr, "Current: %s\n", w.DisplayName())
	for i, m := range w.Marks {
		fmt.Fprintf(wr, "  %d) %s (%s)\n", i, m.DisplayName(), m.ID)
	}
	if len(recent) > 0 {
		fmt.Fprintln(wr, "Recent:")
		for _, r := range recent {
			fmt.Fprintf(wr, "  %s\n", r.DisplayName())
		}
	}
	return nil
}

func listMarks(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	w, err := app.Service.Current(ctx)
	if err != nil {
		return err
	}
	printMarks(out(cmd), w)
	return nil
}

func newWaystation(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	name := strings.Join(cmd.Args().Slice(), " ")
	w, err := app.Service.NewWaystation(ctx, name, app.WorkingDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "Created %s (%s)\n", w.DisplayName(), w.ID)
	return nil
}

func addMark(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	args := cmd.Args().Slice()
	input, err := arg(args, 0, "path")
	if err != nil {
		return err
	}
	name := cmd.String("name")
	if name == "" && len(args) > 1 {
		name = strings.Join(args[1:], " ")
	}
	_, mark, err := app.Service.AddMark(ctx, input, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "Added %s %s\n", mark.DisplayName(), waystation.MarkWithPath(mark))
	return nil
}

func subway(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	args := cmd.Args().Slice()
	raw, err := arg(args, 0, "index")
	if err != nil {
		return err
	}
	i, err := parseIndex(raw)
	if err != nil {
		return err
	}
	_, child, err := app.Service.AddSubway(ctx, i, strings.Join(args[1:], " "), cmd.Bool("open"))
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "Created %s (%s)\n", child.DisplayName(), child.ID)
	return nil
}

type summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func openWaystation(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	if id := cmd.Args().First(); id != "" {
		w, err := app.Service.Open(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "Opened %s (%s)\n", w.DisplayName(), w.ID)
		return nil
	}

	var (
		list []models.Waystation
		err  error
	)
	if cmd.Bool("project") {
		list, err = app.Service.ProjectRecent(ctx, app.WorkingDir)
	} else {
		list, err = app.Service.Recent(ctx)
	}
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		rows := make([]summary, 0, len(list))
		for _, w := range list {
			rows = append(rows, summary{ID: w.ID, Name: w.Name})
		}
		return printJSON(out(cmd), rows)
	}
	for _, w := range list {
		fmt.Fprintf(out(cmd), "%s  %s\n", w.ID, w.DisplayName())
	}
	return nil
}

func addTag(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	w, err := app.Service.AddTag(ctx, strings.Join(cmd.Args().Slice(), " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "%s: [%s]\n", w.DisplayName(), strings.Join(w.Tags, ", "))
	return nil
}

func rename(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	name := strings.Join(cmd.Args().Slice(), " ")
	if name == "" {
		return errors.New("rename: missing name")
	}
	w, err := app.Service.Rename(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "Renamed to %s\n", w.DisplayName())
	return nil
}

func exportCurrent(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	f := export.FormatMarkdown
	if cmd.Bool("html") {
		f = export.FormatHTML
	}
	path, err := app.Service.Export(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintln(out(cmd), path)
	return nil
}

func validate(_ context.Context, cmd *cli.Command, app *internal.App) error {
	data, err := readDocument(cmd)
	if err != nil {
		return err
	}
	res := app.Service.Validate(data)
	if err := printJSON(out(cmd), res); err != nil {
		return err
	}
	if !res.Success {
		return errors.New("validate: document is not a valid Waystation")
	}
	return nil
}

func update(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	data, err := readDocument(cmd)
	if err != nil {
		return err
	}
	w, err := app.Service.Update(ctx, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "Updated %s (%s)\n", w.DisplayName(), w.ID)
	return nil
}

func search(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if query == "" {
		return errors.New("search: missing query")
	}
	results, err := app.Service.Search(ctx, query, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(out(cmd), "%s  %s\n", r.ID, r.Name)
	}
	return nil
}

// readDocument returns the first argument, or stdin when it is "-".
func readDocument(cmd *cli.Command) ([]byte, error) {
	raw, err := arg(cmd.Args().Slice(), 0, "json")
	if err != nil {
		return nil, err
	}
	if raw == "-" {
		return io.ReadAll(cmd.Root().Reader)
	}
	return []byte(raw), nil
}

func printMarks(w io.Writer, ws models.Waystation) {
	fmt.Fprintf(w, "%s\n", ws.DisplayName())
	for i, m := range ws.Marks {
		fmt.Fprintf(w, "  %d) %s\n     %s\n", i, m.DisplayName(), waystation.MarkWithPath(m))
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func out(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}

func arg(args []string, i int, name string) (string, error) {
	if i >= len(args) || args[i] == "" {
		return "", fmt.Errorf("missing <%s> argument", name)
	}
	return args[i], nil
}

func parseIndex(raw string) (int, error) {
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", apperr.ErrInvalidIndex, raw)
	}
	return i, nil
}
