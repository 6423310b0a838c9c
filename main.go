package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/mcatbot/internal/ai"
	"github.com/example/mcatbot/internal/auth"
	"github.com/example/mcatbot/internal/bot"
	"github.com/example/mcatbot/internal/catalog"
	"github.com/example/mcatbot/internal/config"
	"github.com/example/mcatbot/internal/database"
	"github.com/example/mcatbot/internal/importer"
	"github.com/example/mcatbot/internal/logger"
	"github.com/example/mcatbot/internal/metrics"
	"github.com/example/mcatbot/internal/progress"
	"github.com/example/mcatbot/internal/quiz"
	"github.com/example/mcatbot/internal/report"
	"github.com/example/mcatbot/internal/scheduler"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mcatbot",
		Short:         "Telegram bot for MCAT practice with per-concept progress tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		RunE:  runServe,
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the question bank from the questions directory",
		RunE:  runSeed,
	}
	seedCmd.Flags().String("book", "", "Seed only this book id")
	seedCmd.Flags().Bool("clear-only", false, "Clear all data and exit")
	seedCmd.Flags().Bool("no-clear", false, "Keep existing data")
	seedCmd.Flags().Bool("stats", false, "Print row counts and exit")

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import questions from an .xlsx or .csv file",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	importCmd.Flags().String("sheet", "", "Worksheet to read (default: first sheet)")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print catalog counts, or a user's progress with --user",
		RunE:  runStats,
	}
	statsCmd.Flags().Int64("user", 0, "Telegram id of the user")

	exportCmd := &cobra.Command{
		Use:   "export <telegram_id> <out.xlsx>",
		Short: "Write a user's progress spreadsheet",
		Args:  cobra.ExactArgs(2),
		RunE:  runExport,
	}

	rootCmd.AddCommand(serveCmd, seedCmd, importCmd, statsCmd, exportCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds what every command needs
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *sqlx.DB
	repos *database.Repositories
}

func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db, repos: database.NewRepositories(db)}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("failed to close database", "error", err)
	}
	a.log.Sync()
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.cfg.RequireBot(); err != nil {
		return err
	}

	ctx := cmd.Context()
	store := database.NewProgressStore(a.repos)
	updater := progress.NewUpdater(store, a.log.With("component", "updater"))
	reader := catalog.NewReader(a.repos, a.cfg.QuestionLimit)

	deps := bot.Deps{
		Catalog:    reader,
		Auth:       auth.NewProvider(a.repos.Users, a.cfg.IsAdmin, a.cfg.NotificationStartHour),
		Quiz:       quiz.NewRunner(reader, updater, a.repos.QuizResults, a.cfg.QuestionLimit, a.log.With("component", "quiz")),
		Aggregator: progress.NewAggregator(store, a.log.With("component", "aggregator")),
		Repos:      a.repos,
		Importer:   importer.New(a.repos, a.log.With("component", "importer")),
		Generator:  ai.NewGenerator(a.cfg.OpenAIKey, a.cfg.OpenAIURL, a.cfg.OpenAIModel),
	}
	b, err := bot.New(a.cfg.TelegramToken, deps, bot.DefaultConfig(), a.log.With("component", "bot"))
	if err != nil {
		return err
	}

	if a.cfg.SchedulerEnabled {
		sched := scheduler.New(b, a.repos.Users, a.repos.Progress, a.repos.Mastery, scheduler.Options{
			StartHour: a.cfg.NotificationStartHour,
			EndHour:   a.cfg.NotificationEndHour,
			IdleFor:   time.Duration(a.cfg.ReminderIdleHours) * time.Hour,
		}, a.log.With("component", "scheduler"))
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
		b.AttachScheduler(sched)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Start(ctx) })
	if a.cfg.MetricsAddr != "" {
		g.Go(func() error {
			a.log.Info("serving metrics", "addr", a.cfg.MetricsAddr)
			return metrics.Serve(ctx, a.cfg.MetricsAddr)
		})
	}
	return g.Wait()
}

func runSeed(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	seeder := importer.NewSeeder(a.repos, a.cfg.QuestionsDir, a.log)
	flags := cmd.Flags()

	if onlyStats, _ := flags.GetBool("stats"); onlyStats {
		return printCounts(cmd, seeder)
	}

	var opts importer.SeedOptions
	opts.Book, _ = flags.GetString("book")
	opts.ClearOnly, _ = flags.GetBool("clear-only")
	opts.NoClear, _ = flags.GetBool("no-clear")
	if opts.ClearOnly && opts.NoClear {
		return errors.New("--clear-only and --no-clear are mutually exclusive")
	}

	summary, err := seeder.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if summary.Cleared {
		fmt.Fprintln(out, "Cleared existing data")
	}
	fmt.Fprintf(out, "Seeded %d books, %d chapters, %d questions\n", summary.Books, summary.Chapters, summary.Questions)
	for _, e := range summary.Errors {
		fmt.Fprintln(out, "  error:", e)
	}
	return printCounts(cmd, seeder)
}

func printCounts(cmd *cobra.Command, seeder *importer.Seeder) error {
	stats, err := seeder.Stats(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Books: %d\nChapters: %d\nQuestions: %d\n", stats.Books, stats.Chapters, stats.Questions)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	cfg := importer.DefaultImportConfig()
	if sheet, _ := cmd.Flags().GetString("sheet"); sheet != "" {
		cfg.SheetName = sheet
	}
	res, err := importer.New(a.repos, a.log).ImportFile(cmd.Context(), args[0], cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processed %d rows: %d created, %d updated, %d new books, %d new chapters\n",
		res.TotalProcessed, res.Created, res.Updated, res.BooksCreated, res.ChaptersCreated)
	for _, e := range res.Errors {
		fmt.Fprintln(out, "  error:", e)
	}
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	telegramID, _ := cmd.Flags().GetInt64("user")
	if telegramID == 0 {
		return printCounts(cmd, importer.NewSeeder(a.repos, a.cfg.QuestionsDir, a.log))
	}

	dash, err := a.dashboard(cmd.Context(), telegramID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(dash)
}

func runExport(cmd *cobra.Command, args []string) error {
	var telegramID int64
	if _, err := fmt.Sscan(args[0], &telegramID); err != nil {
		return fmt.Errorf("invalid telegram id %q", args[0])
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	dash, err := a.dashboard(cmd.Context(), telegramID)
	if err != nil {
		return err
	}
	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	if err := report.WriteProgress(f, dash.Stats, dash.Tree); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// dashboard loads a user's progress; partial results are printed with a warning
func (a *app) dashboard(ctx context.Context, telegramID int64) (progress.Dashboard, error) {
	user, err := a.repos.Users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return progress.Dashboard{}, err
	}
	if user == nil {
		return progress.Dashboard{}, fmt.Errorf("user %d not found", telegramID)
	}
	agg := progress.NewAggregator(database.NewProgressStore(a.repos), a.log)
	dash, err := agg.Dashboard(ctx, user.ID)
	if err != nil {
		a.log.Warn("progress is incomplete", "user_id", user.ID, "error", err)
	}
	return dash, nil
}
