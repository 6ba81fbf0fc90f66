package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aschmelyun/snipscrub/config"
	"github.com/aschmelyun/snipscrub/internal/insights"
	"github.com/aschmelyun/snipscrub/internal/media"
	"github.com/aschmelyun/snipscrub/internal/schedule"
	"github.com/aschmelyun/snipscrub/internal/store"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "snipscrub [snippet-id | file]",
		Short: "Scrub, trim and bookmark short screen recordings",
		Long: "snipscrub opens a recorded snippet on a scrubbable timeline. Drag the trim handles " +
			"to keep the part that matters, bookmark moments and apply the trim to the recording.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runOpen(cmd.Context(), args[0])
		},
	}
	rootCmd.Version = VERSION
	rootCmd.SetVersionTemplate(BulletStyle.Render("└") + TextStyle.Render("{{.Version}}") + "\n")

	rootCmd.AddCommand(newOpenCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newTrimCmd())
	rootCmd.AddCommand(newInsightsCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// withApp loads the configuration and store for a command that runs without
// the TUI. Warnings go to stderr.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// resolveSnippet treats arg as a snippet ID, or imports it when it names a
// file on disk.
func (a *app) resolveSnippet(ctx context.Context, arg string) (*store.Snippet, error) {
	sn, err := a.store.GetSnippet(ctx, arg)
	if err == nil {
		return sn, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if _, statErr := os.Stat(arg); statErr != nil {
		return nil, fmt.Errorf("no snippet or file named '%s'", arg)
	}
	return a.importFile(ctx, arg, "")
}

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <snippet-id | file>",
		Short: "Open a snippet on the interactive timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(cmd.Context(), args[0])
		},
	}
}

func runOpen(ctx context.Context, arg string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so everything is logged to a file.
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := tea.LogToFile(cfg.LogFile, "snipscrub")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sn, err := a.resolveSnippet(ctx, arg)
	if err != nil {
		return err
	}

	apiKey, err := insights.LookupAPIKey(insights.SystemUser())
	if err != nil {
		logger.Warn("api key lookup failed", "error", err)
	}

	loop := schedule.NewLoop(logger)
	s, err := a.openSession(ctx, loop, sn)
	if err != nil {
		return err
	}
	s.loop = loop
	defer s.shutdown()

	p := tea.NewProgram(newModel(a, sn, s, apiKey), tea.WithAltScreen(), tea.WithMouseCellMotion())
	loop.Bind(func(fired schedule.Fired) { p.Send(fired) })

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	if m, ok := final.(model); ok && m.quitting {
		fmt.Print(styleOutput(append(m.statuses, "Closed "+sn.Title+".")))
	}
	return nil
}

func newImportCmd() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store a video or an editor recording log as a snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				sn, err := a.importFile(ctx, args[0], title)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, BulletStyle.Render("┌")+TextStyle.Render("Imported "+sn.Title))
				fmt.Fprintln(out, BulletStyle.Render("└")+DimTextStyle.Render(sn.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title for the snippet (defaults to the file name)")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snippets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				snippets, err := a.store.ListSnippets(ctx)
				if err != nil {
					return err
				}
				printSnippets(cmd.OutOrStdout(), snippets)
				return nil
			})
		},
	}
}

func printSnippets(w io.Writer, snippets []*store.Snippet) {
	if len(snippets) == 0 {
		fmt.Fprintln(w, BulletStyle.Render("└")+TextStyle.Render("No snippets yet. Import one with 'snipscrub import <file>'."))
		return
	}
	for i, sn := range snippets {
		bullet := "├"
		switch {
		case i == 0:
			bullet = "┌"
		case i == len(snippets)-1:
			bullet = "└"
		}
		line := TextStyle.Render(sn.Title) + DimTextStyle.Render(fmt.Sprintf("  %s  %s  %s",
			sn.Kind, formatClock(sn.Duration), sn.ID))
		if sn.TrimStart > 0 || sn.TrimEnd < sn.Duration {
			line += UnsavedStyle.Render(fmt.Sprintf("  trim %s - %s", formatClock(sn.TrimStart), formatClock(sn.TrimEnd)))
		}
		fmt.Fprintln(w, BulletStyle.Render(bullet)+line)
	}
}

func newReplayCmd() *cobra.Command {
	var at float64
	cmd := &cobra.Command{
		Use:   "replay <snippet-id>",
		Short: "Print a code snippet as it stood at a point in time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				sn, err := a.store.GetSnippet(ctx, args[0])
				if err != nil {
					return err
				}
				if sn.Kind != store.KindCode {
					return fmt.Errorf("snippet '%s' is a video, only code snippets can be replayed", sn.Title)
				}
				ctrl, err := a.loadController(ctx, schedule.NewManual(time.Now()), sn)
				if err != nil {
					return err
				}
				defer ctrl.Dispose()
				if !cmd.Flags().Changed("at") {
					at = ctrl.Trim().End
				}
				ctrl.SeekTo(at)
				fmt.Fprintln(cmd.OutOrStdout(), ctrl.Content())
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&at, "at", 0, "Seconds into the recording (defaults to the trim end)")
	return cmd
}

func newTrimCmd() *cobra.Command {
	var start, end float64
	var apply bool
	cmd := &cobra.Command{
		Use:   "trim <snippet-id>",
		Short: "Set a snippet's trim region, optionally applying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				sn, err := a.store.GetSnippet(ctx, args[0])
				if err != nil {
					return err
				}
				ctrl, err := a.loadController(ctx, schedule.NewManual(time.Now()), sn)
				if err != nil {
					return err
				}
				defer ctrl.Dispose()

				r := ctrl.Trim()
				if cmd.Flags().Changed("start") {
					r.Start = start
				}
				if cmd.Flags().Changed("end") {
					r.End = end
				}
				ctrl.SetTrim(r.Start, r.End)
				r = ctrl.Trim()

				out := cmd.OutOrStdout()
				if !apply {
					if err := a.store.SaveTrim(ctx, sn.ID, r.Start, r.End); err != nil {
						return err
					}
					fmt.Fprintln(out, BulletStyle.Render("└")+TextStyle.Render(fmt.Sprintf("Saved trim %s - %s", formatClock(r.Start), formatClock(r.End))))
					return nil
				}

				req, err := ctrl.PrepareTrim()
				if err != nil {
					return err
				}
				res, err := req.Run(ctx)
				if err != nil {
					return err
				}
				if err := a.persistTrim(ctx, sn, res); err != nil {
					return err
				}
				if err := ctrl.CommitTrim(req, res); err != nil {
					return err
				}
				fmt.Fprintln(out, BulletStyle.Render("┌")+TextStyle.Render(fmt.Sprintf("Trimmed to %s - %s", formatClock(r.Start), formatClock(r.End))))
				if res.URI != "" {
					fmt.Fprintln(out, BulletStyle.Render("├")+TextStyle.Render("Saved output to "+res.URI))
				}
				fmt.Fprintln(out, BulletStyle.Render("└")+DimTextStyle.Render("New length "+formatClock(res.Duration)))
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&start, "start", 0, "Trim start in seconds")
	cmd.Flags().Float64Var(&end, "end", 0, "Trim end in seconds")
	cmd.Flags().BoolVar(&apply, "apply", false, "Cut the recording down to the region")
	return cmd
}

func newInsightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insights <snippet-id>",
		Short: "Summarise a snippet with an OpenAI model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				sn, err := a.store.GetSnippet(ctx, args[0])
				if err != nil {
					return err
				}

				user := insights.SystemUser()
				apiKey, err := insights.LookupAPIKey(user)
				if err != nil {
					return err
				}
				if apiKey == "" {
					apiKey, err = insights.PromptAPIKey(int(os.Stdin.Fd()), cmd.OutOrStdout(), user)
					if err != nil {
						return err
					}
				}

				ctrl, err := a.loadController(ctx, schedule.NewManual(time.Now()), sn)
				if err != nil {
					return err
				}
				defer ctrl.Dispose()
				marks, err := a.store.ListBookmarks(ctx, sn.ID)
				if err != nil {
					return err
				}

				ctx, cancel := context.WithTimeout(ctx, insightsTimeout)
				defer cancel()
				c := &insights.Client{
					Endpoint: a.cfg.InsightsEndpoint,
					Model:    a.cfg.InsightsModel,
					APIKey:   apiKey,
				}
				res, err := c.Generate(ctx, buildPayload(sn, ctrl, marks))
				if err != nil {
					return fmt.Errorf("failed to generate insights: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, BulletStyle.Render("┌")+TitleStyle.Render(sn.Title))
				for _, line := range strings.Split(res.Summary, "\n") {
					fmt.Fprintln(out, BulletStyle.Render("│")+TextStyle.Render(line))
				}
				fmt.Fprintln(out, BulletStyle.Render("└"))
				return nil
			})
		},
	}
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the programs snipscrub drives are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, BulletStyle.Render("┌")+TextStyle.Render("Requirements:"))

			dependencies := []string{cfg.FFmpegPath, cfg.FFprobePath, cfg.MPVPath}
			for _, dependency := range dependencies {
				status := SuccessStyle.Render("✔ installed")
				if !media.CheckDependency(dependency) {
					status = ErrorStyle.Render("✗ missing")
				}
				spaces := strings.Repeat(" ", max(10-len(dependency), 1))
				fmt.Fprintln(out, BulletStyle.Render("├────")+TextStyle.Render(dependency)+spaces+status)
			}

			fmt.Fprintln(out, BulletStyle.Render("│"))
			fmt.Fprintln(out, BulletStyle.Render("├")+TextStyle.Render("Database:")+DimTextStyle.Render(" "+cfg.DBPath))
			fmt.Fprintln(out, BulletStyle.Render("├")+TextStyle.Render("Log file:")+DimTextStyle.Render(" "+cfg.LogFile))
			fmt.Fprintln(out, BulletStyle.Render("└")+TextStyle.Render("Supported formats:")+DimTextStyle.Render(" "+strings.Join(validExtensions, ", ")+", .json"))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), BulletStyle.Render("└")+TextStyle.Render(VERSION))
		},
	}
}
