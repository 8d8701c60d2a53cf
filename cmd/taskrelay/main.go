package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/everstacklabs/taskrelay/internal/catalog"
	"github.com/everstacklabs/taskrelay/internal/config"
	"github.com/everstacklabs/taskrelay/internal/httpclient"
	"github.com/everstacklabs/taskrelay/internal/metrics"
	"github.com/everstacklabs/taskrelay/internal/model"
	"github.com/everstacklabs/taskrelay/internal/provider/openai"
	"github.com/everstacklabs/taskrelay/internal/secrets"
	"github.com/everstacklabs/taskrelay/internal/task"
	"github.com/everstacklabs/taskrelay/internal/validate"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskrelay",
		Short: "Run generation tasks against OpenAI models",
		Long:  "Translates message and image generation tasks into OpenAI requests, with file attachments and a cached model catalog.",
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./taskrelay.yaml)")

	rootCmd.AddCommand(
		modelsCmd(),
		validateCmd(),
		runCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models available to the configured account",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(false)
			if err != nil {
				return err
			}

			models, err := env.provider.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(models) == 0 {
				slog.Warn("no models listed; is " + openai.APIKeyName + " set?")
			}

			for _, m := range models {
				fmt.Printf("%-40s %-8s %-10s %-8d %s -> %s\n", m.ID(), m.Name(), m.Type(), m.ContextLength(),
					joinIO(m.SupportedInputs()), joinIO(m.SupportedOutputs()))
			}
			fmt.Printf("\nTotal: %d models\n", len(models))
			return nil
		},
	}

	cmd.AddCommand(exportCmd())
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the model list to a YAML snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(false)
			if err != nil {
				return err
			}

			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = env.cfg.Catalog.SnapshotDir
			}

			models, err := env.provider.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(models) == 0 {
				return fmt.Errorf("no models to export; set %s", openai.APIKeyName)
			}

			res, err := catalog.Export(dir, &catalog.Provider{
				Name:                   env.provider.Name(),
				DisplayName:            "OpenAI",
				SupportsModelDiscovery: true,
			}, models, time.Now())
			if err != nil {
				return fmt.Errorf("exporting snapshot: %w", err)
			}

			slog.Info("snapshot written", "dir", dir, "models", len(res.Written), "created", res.Created, "updated", res.Updated)
			return nil
		},
	}

	cmd.Flags().String("dir", "", "Snapshot directory (default: from config)")
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a model catalog snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				dir = cfg.Catalog.SnapshotDir
			}

			cat, err := catalog.Load(dir)
			if err != nil {
				return fmt.Errorf("loading snapshot: %w", err)
			}

			result := validate.ValidateCatalog(cat)
			fmt.Println(validate.FormatResult(result))

			if result.HasErrors() {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().String("dir", "", "Snapshot directory (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <task.yaml>",
		Short: "Perform a task file against a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showMetrics, _ := cmd.Flags().GetBool("metrics")
			env, err := setup(showMetrics)
			if err != nil {
				return err
			}

			t, err := task.LoadFile(args[0])
			if err != nil {
				return err
			}
			if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
				t.DryRun = true
			}

			id, _ := cmd.Flags().GetString("model")
			m, err := resolveModel(cmd.Context(), env.provider, id)
			if err != nil {
				return err
			}

			slog.Debug("performing task", "model", m.ID(), "kind", t.Kind, "dry_run", t.DryRun)
			out, err := m.PerformTask(cmd.Context(), t)
			if err != nil {
				return err
			}

			switch {
			case out.IsEmpty():
				fmt.Fprintf(os.Stderr, "%s: no output\n", out.Model)
			case out.Kind == task.OutputURL:
				fmt.Printf("%s (%s)\n", out.Content, out.MediaType)
			default:
				fmt.Println(out.Content)
			}

			if env.registry != nil {
				return printMetrics(env.registry)
			}
			return nil
		},
	}

	cmd.Flags().String("model", "openai/gpt-4o-mini", "Model to use, as <provider>/<model>")
	cmd.Flags().Bool("dry-run", false, "Build requests without sending them")
	cmd.Flags().Bool("metrics", false, "Print request counters after the task")
	return cmd
}

type environment struct {
	cfg      *config.Config
	provider *openai.Provider
	registry *prometheus.Registry
}

// setup loads config, installs the logger and registers the OpenAI provider.
func setup(withMetrics bool) (*environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	configureLogging(cfg.LogLevel)

	env := &environment{cfg: cfg}

	var collector *metrics.Collector
	if withMetrics || cfg.Metrics.Enabled {
		env.registry = prometheus.NewRegistry()
		collector = metrics.New(env.registry)
	}

	// A key in the config file is a fallback for the environment.
	fromConfig := secrets.NewMap(map[string]string{openai.APIKeyName: cfg.OpenAI.APIKey})

	env.provider = openai.New(
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithOrganization(cfg.OpenAI.Organization),
		openai.WithSecrets(secrets.Chain{secrets.Env{}, fromConfig}),
		openai.WithHTTPOptions(
			httpclient.WithTimeout(cfg.OpenAI.Timeout),
			httpclient.WithRateLimit(cfg.OpenAI.RateLimit),
		),
		openai.WithCatalogTTL(cfg.Catalog.ListTTL, cfg.Catalog.RawTTL),
		openai.WithLogger(slog.Default()),
		openai.WithMetrics(collector),
	)
	model.Register(env.provider)

	return env, nil
}

// resolveModel finds a model by ID. The OpenAI provider also accepts names
// the catalog hides, such as unversioned aliases.
func resolveModel(ctx context.Context, p *openai.Provider, id string) (model.Model, error) {
	providerName, name, ok := strings.Cut(id, "/")
	if !ok {
		return nil, fmt.Errorf("model %q must be of the form <provider>/<model>", id)
	}
	lister, err := model.Get(providerName)
	if err != nil {
		return nil, err
	}
	if lister == model.Lister(p) {
		return p.Model(name), nil
	}

	models, err := lister.List(ctx)
	if err != nil {
		return nil, err
	}
	m := model.Find(models, id)
	if m == nil {
		return nil, fmt.Errorf("unknown model: %s", id)
	}
	return m, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func configureLogging(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func printMetrics(reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(os.Stderr, mf); err != nil {
			return err
		}
	}
	return nil
}

func joinIO(ios []task.IO) string {
	names := make([]string, len(ios))
	for i, io := range ios {
		names[i] = string(io)
	}
	return strings.Join(names, ",")
}
