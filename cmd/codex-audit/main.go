package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codex-audit/internal/analysis"
	"codex-audit/internal/clipboard"
	"codex-audit/internal/config"
	"codex-audit/internal/export"
	"codex-audit/internal/logging"
	"codex-audit/internal/render"
	"codex-audit/internal/source"
)

// app carries state resolved once in the root command's pre-run hook.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        config.AppConfig
	logger     *log.Logger
	stdin      io.Reader
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	a := &app{v: config.New(), stdin: os.Stdin}
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "codex-audit",
		Short:         "Analyze Codex agent session logs",
		Long:          "codex-audit turns Codex rollout logs and audit reports into timelines, transcripts, tool-call and token statistics.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
			if cfg.ConfigFile != "" {
				a.logger.Debug("config loaded", "file", cfg.ConfigFile)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/codex-audit/config.yaml)")
	if err := config.RegisterFlags(root.PersistentFlags(), a.v); err != nil {
		panic(err)
	}

	root.AddCommand(a.analyzeCmd())
	root.AddCommand(a.summaryCmd())
	root.AddCommand(a.timelineCmd())
	root.AddCommand(a.transcriptCmd())
	root.AddCommand(a.tokensCmd())
	root.AddCommand(a.exportCmd())
	return root
}

func (a *app) analyzer() *analysis.Analyzer {
	return analysis.New(a.cfg.AnalysisOptions(a.logger))
}

// load reads the report at the first argument, or CODEX_HOME when omitted.
func (a *app) load(ctx context.Context, args []string) (analysis.Report, error) {
	path := a.cfg.CodexHome
	if len(args) > 0 {
		path = args[0]
	}
	report, stats, err := source.New(a.stdin, a.logger).Load(ctx, path)
	if err != nil {
		return analysis.Report{}, err
	}
	a.logger.Info("loaded", "path", path, "sessions", len(report.Sessions), "files", stats.Files, "skipped_lines", stats.Skipped)
	return report, nil
}

// pickSession selects a session by exact id or unique prefix. With no id a
// single-session report selects its only session.
func pickSession(r analysis.Report, id string) (analysis.Session, error) {
	if id == "" {
		if len(r.Sessions) == 1 {
			return r.Sessions[0], nil
		}
		return analysis.Session{}, fmt.Errorf("report has %d sessions; choose one with --session", len(r.Sessions))
	}
	var matches []analysis.Session
	for _, s := range r.Sessions {
		if s.SessionID == id {
			return s, nil
		}
		if strings.HasPrefix(s.SessionID, id) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return analysis.Session{}, fmt.Errorf("session %q not found", id)
	case 1:
		return matches[0], nil
	default:
		return analysis.Session{}, fmt.Errorf("session prefix %q matches %d sessions", id, len(matches))
	}
}

func (a *app) analyzeOne(ctx context.Context, args []string, id string) (analysis.Session, analysis.SessionAnalysis, error) {
	report, err := a.load(ctx, args)
	if err != nil {
		return analysis.Session{}, analysis.SessionAnalysis{}, err
	}
	s, err := pickSession(report, id)
	if err != nil {
		return analysis.Session{}, analysis.SessionAnalysis{}, err
	}
	sa, err := a.analyzer().AnalyzeSession(s)
	return s, sa, err
}

func (a *app) analyzeCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "analyze [PATH]",
		Short: "Print the analysis of a report or one session as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out any
			if sessionID != "" {
				_, sa, err := a.analyzeOne(cmd.Context(), args, sessionID)
				if err != nil {
					return err
				}
				out = sa
			} else {
				report, err := a.load(cmd.Context(), args)
				if err != nil {
					return err
				}
				ra, err := a.analyzer().AnalyzeReport(cmd.Context(), report)
				if err != nil {
					return err
				}
				out = ra
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "analyze only this session (id or prefix)")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary [PATH]",
		Short: "Show report KPIs and a per-session table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.load(cmd.Context(), args)
			if err != nil {
				return err
			}
			sum := a.analyzer().Summarize(report)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), render.SummaryTable(sum))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func (a *app) timelineCmd() *cobra.Command {
	var (
		sessionID string
		category  string
		width     int
	)
	cmd := &cobra.Command{
		Use:   "timeline [PATH]",
		Short: "List a session's events in time order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sa, err := a.analyzeOne(cmd.Context(), args, sessionID)
			if err != nil {
				return err
			}
			out := render.SessionHeader(sa) + render.Timeline(sa.Timeline, analysis.Category(category), width)
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id or prefix")
	cmd.Flags().StringVarP(&category, "category", "c", "", "only show one category (messages, reasoning, tools, meta, files, other)")
	cmd.Flags().IntVarP(&width, "width", "w", 0, "cut lines to this many columns")
	return cmd
}

func (a *app) transcriptCmd() *cobra.Command {
	var (
		sessionID   string
		grep        string
		ctxLines    int
		tools       bool
		noReasoning bool
		copyOut     bool
		raw         bool
	)
	cmd := &cobra.Command{
		Use:   "transcript [PATH]",
		Short: "Render a session's conversation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sa, err := a.analyzeOne(cmd.Context(), args, sessionID)
			if err != nil {
				return err
			}
			opts := export.DefaultOptions()
			opts.IncludeTools = tools
			opts.IncludeReasoning = !noReasoning
			md := export.BuildTranscriptMarkdown(sa, opts)

			if copyOut {
				if err := clipboard.Copy(cmd.Context(), md); err != nil {
					if errors.Is(err, clipboard.ErrToolNotFound) {
						return fmt.Errorf("copy transcript: install pbcopy, wl-copy or xclip: %w", err)
					}
					return fmt.Errorf("copy transcript: %w", err)
				}
				a.logger.Info("transcript copied", "session", sa.SessionID, "bytes", len(md))
			}

			out := md
			if !raw {
				out, err = render.Markdown(md, a.cfg.MarkdownStyle, a.cfg.Wrap)
				if err != nil {
					a.logger.Warn("markdown render failed; showing raw", "err", err)
				}
			}
			if grep != "" {
				res := render.GrepLines(out, grep, ctxLines, func(s string) string { return render.MatchStyle.Render(s) })
				if res.Count == 0 {
					return fmt.Errorf("no matches for %q", grep)
				}
				out = res.Text + "\n"
				a.logger.Info("matches", "query", grep, "count", res.Count)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id or prefix")
	cmd.Flags().StringVarP(&grep, "grep", "g", "", "only show lines containing this text")
	cmd.Flags().IntVarP(&ctxLines, "context", "C", 0, "lines of context around --grep matches")
	cmd.Flags().BoolVar(&tools, "tools", false, "include tool calls")
	cmd.Flags().BoolVar(&noReasoning, "no-reasoning", false, "hide reasoning")
	cmd.Flags().BoolVar(&copyOut, "copy", false, "copy the markdown transcript to the clipboard")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal rendering")
	return cmd
}

func (a *app) tokensCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "tokens [PATH]",
		Short: "Show a session's token usage series",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sa, err := a.analyzeOne(cmd.Context(), args, sessionID)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), render.SessionHeader(sa)+render.TokenTable(sa.TokenPoints))
			return err
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id or prefix")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var (
		sessionID string
		outDir    string
		tools     bool
	)
	cmd := &cobra.Command{
		Use:   "export [PATH]",
		Short: "Write a session transcript to markdown",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, sa, err := a.analyzeOne(cmd.Context(), args, sessionID)
			if err != nil {
				return err
			}
			dir := outDir
			if dir == "" {
				dir = a.cfg.ExportDir
			}
			exp, err := export.New(dir)
			if err != nil {
				return err
			}
			opts := export.DefaultOptions()
			opts.IncludeTools = tools
			path, err := exp.Export(sa, s.Cwd, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id or prefix")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default <repo>/docs/codex)")
	cmd.Flags().BoolVar(&tools, "tools", false, "include tool calls")
	return cmd
}
