package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/fieldscout/internal/cache"
	"github.com/ppiankov/fieldscout/internal/loader"
	"github.com/ppiankov/fieldscout/internal/model"
	"github.com/ppiankov/fieldscout/internal/pipeline"
	"github.com/ppiankov/fieldscout/internal/store"
)

var (
	fieldsPath  string
	outJSON     string
	outMD       string
	outForm     string
	noCache     bool
	useMemory   bool
	fillTimeout time.Duration
)

// fillCmd represents the fill command
var fillCmd = &cobra.Command{
	Use:   "fill <source>...",
	Short: "Fill a form from source documents",
	Long: `Fill resolves every field of a form against the source documents,
validates the extracted values and checks the form for consistency and
completeness.

Fields come from a JSON list ([{"name": ...}], {"fields": [...]} or a
fillable-form page listing) or straight from a fillable PDF.

Example:
  fieldscout fill ./deed-docs --fields deed-fields.json -d real_estate
  fieldscout fill chart.json --fields intake.pdf -d medical --json report.json --md report.md
  fieldscout fill https://example.com/policy.html --fields claim.json -d insurance --form filled.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFill,
}

func init() {
	rootCmd.AddCommand(fillCmd)

	fillCmd.Flags().StringVarP(&fieldsPath, "fields", "f", "", "field list (.json or fillable .pdf)")
	fillCmd.Flags().StringVar(&outJSON, "json", "", "write the full report as JSON")
	fillCmd.Flags().StringVar(&outMD, "md", "", "write the report as Markdown")
	fillCmd.Flags().StringVar(&outForm, "form", "", "write the filled form (field -> value) as JSON")
	fillCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")
	fillCmd.Flags().BoolVar(&useMemory, "field-memory", false, "apply remembered field mappings from the configured store")
	fillCmd.Flags().DurationVar(&fillTimeout, "timeout", 5*time.Minute, "overall timeout")
	_ = fillCmd.MarkFlagRequired("fields")
}

// fillEnv bundles what fill and batch need
type fillEnv struct {
	cfg    *model.Config
	log    *zap.Logger
	filler *pipeline.Filler
	cache  cache.Cache
	store  store.Store
}

func (e *fillEnv) Close() {
	if lc, ok := e.cache.(*cache.LayeredCache); ok {
		hits, misses := lc.Stats()
		e.log.Debug("cache stats", zap.Int64s("tier_hits", hits), zap.Int64("misses", misses))
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.log.Warn("close store", zap.Error(err))
		}
	}
	_ = e.log.Sync()
}

func newFillEnv(ctx context.Context, withMemory bool) (*fillEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	env := &fillEnv{cfg: cfg, log: log, cache: cache.New(cfg.Cache)}
	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithCache(env.cache, cfg.Cache.MemoryTTL),
	}
	if withMemory {
		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return nil, eris.Wrap(err, "open store")
		}
		env.store = st
		opts = append(opts, pipeline.WithFieldMemory(st))
	}
	env.filler = pipeline.NewFiller(cfg, opts...)
	return env, nil
}

func runFill(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), fillTimeout)
	defer cancel()

	env, err := newFillEnv(ctx, useMemory)
	if err != nil {
		return err
	}
	defer env.Close()

	fields, err := loader.LoadFields(fieldsPath)
	if err != nil {
		return err
	}
	docs, err := loader.LoadDocuments(ctx, args...)
	if err != nil {
		return err
	}
	if env.cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d fields and %d documents\n", len(fields), len(docs))
	}

	report, err := env.filler.Fill(ctx, pipeline.FillRequest{
		Domain:    env.cfg.Domain,
		Fields:    fields,
		Documents: docs,
	})
	if err != nil {
		return eris.Wrap(err, "fill failed")
	}

	if err := pipeline.NewRenderer().Render(report, outJSON, outMD, outForm); err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout(), env.cfg.Output.NoColor)
	for _, f := range report.Fields {
		p.outcome(f.Outcome)
		if f.Validation != nil && !f.Validation.IsValid {
			p.validation(*f.Validation)
		}
	}
	p.summary(report)
	return nil
}
