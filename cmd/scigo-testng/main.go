// Command scigo-testng runs the DRF, GBM and GLM test-case tables against
// the scigo estimators and records the metrics.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/scigo-testng/config"
	"github.com/YuminosukeSato/scigo-testng/frame"
	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
	"github.com/YuminosukeSato/scigo-testng/pkg/log"
	"github.com/YuminosukeSato/scigo-testng/report"
	"github.com/YuminosukeSato/scigo-testng/sink"
	"github.com/YuminosukeSato/scigo-testng/testng"
)

// Exit codes.
const (
	exitFailed      = 1
	exitUsage       = 2
	exitInterrupted = 130
)

type cliError struct {
	code int
	err  error
}

func (e cliError) Error() string { return e.err.Error() }

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		var ce cliError
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, ce.err)
			os.Exit(ce.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailed)
	}
}

type rootOptions struct {
	configPath string
	envFile    string
	logFormat  string
	logOut     io.Writer
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{logOut: os.Stderr}
	root := &cobra.Command{
		Use:           "scigo-testng",
		Short:         "Parameterized DRF/GBM/GLM test harness",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "harness config YAML (defaults when empty)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with TESTNG_* overrides")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (console|json), overrides the config")

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newDatasetsCommand(opts))
	root.AddCommand(newValidateCommand(opts))
	return root
}

// load reads the configuration and installs the logger.
func (o *rootOptions) load() (*config.Config, error) {
	if err := config.LoadEnvFile(o.envFile); err != nil {
		return nil, cliError{code: exitUsage, err: err}
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, cliError{code: exitUsage, err: err}
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if err := setupLogging(cfg, o.logOut); err != nil {
		return nil, cliError{code: exitUsage, err: err}
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config, w io.Writer) error {
	switch cfg.Log.Format {
	case "json":
		return log.SetupLogger(cfg.Log.Level, w)
	case "console", "":
		level, err := cfg.LogLevel()
		if err != nil {
			return err
		}
		log.SetProvider(log.NewZerologProvider(w, level))
		return nil
	default:
		return errors.Newf("unknown log format %q", cfg.Log.Format)
	}
}

func loadCases(cfg *config.Config) (*testng.Registry, []testng.TestCase, error) {
	alg, err := cfg.SelectedAlgorithm()
	if err != nil {
		return nil, nil, cliError{code: exitUsage, err: err}
	}
	reg, err := testng.LoadRegistry(cfg.Characteristics, cfg.DataRoot, frame.NewStore())
	if err != nil {
		return nil, nil, err
	}
	cases := testng.ReadAllTestcases(reg, cfg.AlgorithmSpecs(), alg)
	return reg, testng.FilterBySize(cases, cfg.Size), nil
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		algorithm, size           string
		dryRun                    bool
		mdPath, htmlPath, pngPath string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the testcases and persist their metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			override(cmd, "algorithm", &cfg.Algorithm, algorithm)
			override(cmd, "size", &cfg.Size, size)
			override(cmd, "report", &cfg.Report.Markdown, mdPath)
			override(cmd, "html", &cfg.Report.HTML, htmlPath)
			override(cmd, "plot", &cfg.Report.Plot, pngPath)

			reg, cases, err := loadCases(cfg)
			if err != nil {
				return err
			}
			defer reg.CloseAll()

			s, err := openSink(cmd.Context(), cfg, dryRun)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			store := reg.Store()
			runner := testng.NewRunner(testng.NewResolver(store), testng.NewTrainer(store), s)
			outcomes := runner.RunAll(ctx, cases)
			if cfg.Size != "" {
				reg.RemoveSize(cfg.Size)
			}

			summary := report.Summarize(runner.RunID.String(), outcomes)
			if err := printOutcomes(cmd.OutOrStdout(), outcomes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d testcases, %d not passed\n",
				summary.RunID, summary.Total(), summary.Failures())
			if err := writeReports(cfg.Report, summary, outcomes); err != nil {
				return err
			}

			if ctx.Err() != nil {
				return cliError{code: exitInterrupted, err: errors.Newf("interrupted after %d of %d testcases", len(outcomes), len(cases))}
			}
			if n := summary.Failures(); n > 0 {
				return cliError{code: exitFailed, err: errors.Newf("%d of %d testcases did not pass", n, summary.Total())}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "run only this algorithm (drf|gbm|glm)")
	cmd.Flags().StringVar(&size, "size", "", "run only datasets of this tier, e.g. smalldata")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep metrics in memory instead of the database")
	cmd.Flags().StringVar(&mdPath, "report", "", "write a markdown report to this path")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write an HTML report to this path")
	cmd.Flags().StringVar(&pngPath, "plot", "", "write an MSE bar chart to this path")
	return cmd
}

// override sets *dst when the flag was given on the command line.
func override(cmd *cobra.Command, flag string, dst *string, value string) {
	if cmd.Flags().Changed(flag) {
		*dst = value
	}
}

func openSink(ctx context.Context, cfg *config.Config, dryRun bool) (sink.Sink, error) {
	if dryRun {
		return sink.NewMemorySink(), nil
	}
	db, err := sink.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func printOutcomes(w io.Writer, outcomes []testng.Outcome) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TESTCASE\tALGORITHM\tKIND\tSTATUS\tMESSAGE")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.TestCase.ID, o.TestCase.Algorithm, o.TestCase.Kind(), o.Status, o.Message)
	}
	return tw.Flush()
}

func writeReports(paths config.Report, summary report.Summary, outcomes []testng.Outcome) error {
	write := func(path string, fn func(io.Writer) error) error {
		if path == "" {
			return nil
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	if err := write(paths.Markdown, func(w io.Writer) error { return report.WriteMarkdown(w, summary, outcomes) }); err != nil {
		return err
	}
	if err := write(paths.HTML, func(w io.Writer) error { return report.WriteHTML(w, summary, outcomes) }); err != nil {
		return err
	}
	if paths.Plot != "" {
		if err := report.PlotMSE(outcomes, paths.Plot); err != nil && !errors.Is(err, errors.ErrEmptyData) {
			return err
		}
	}
	return nil
}

func newDatasetsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the dataset characteristics and whether each file is present",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			reg, err := testng.LoadRegistry(cfg.Characteristics, cfg.DataRoot, frame.NewStore())
			if err != nil {
				return err
			}
			defer reg.CloseAll()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIER\tFILE\tRESPONSE\tAVAILABLE")
			for _, id := range reg.IDs() {
				ds, _ := reg.Get(id)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", ds.ID, ds.Directory, ds.FileName, ds.ResponseColumn, ds.Available())
			}
			return tw.Flush()
		},
	}
}

func newValidateCommand(opts *rootOptions) *cobra.Command {
	var algorithm string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the testcase tables without training",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			override(cmd, "algorithm", &cfg.Algorithm, algorithm)
			reg, cases, err := loadCases(cfg)
			if err != nil {
				return err
			}
			defer reg.CloseAll()

			outcomes := make([]testng.Outcome, 0, len(cases))
			bad := 0
			for i := range cases {
				o := testng.Outcome{TestCase: cases[i]}
				status, err := testng.Precheck(&cases[i])
				o.Status = status
				if err != nil {
					o.Message = err.Error()
				}
				if !o.Status.OK() {
					bad++
				}
				outcomes = append(outcomes, o)
			}
			if err := printOutcomes(cmd.OutOrStdout(), outcomes); err != nil {
				return err
			}
			if bad > 0 {
				return cliError{code: exitFailed, err: errors.Newf("%d of %d testcases are invalid or not implemented", bad, len(cases))}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "check only this algorithm (drf|gbm|glm)")
	return cmd
}
