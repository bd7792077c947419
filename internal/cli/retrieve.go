package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ppiankov/fieldscout/internal/domain"
	"github.com/ppiankov/fieldscout/internal/loader"
	"github.com/ppiankov/fieldscout/internal/model"
	"github.com/ppiankov/fieldscout/internal/pipeline"
	"github.com/ppiankov/fieldscout/internal/retrieve"
	"github.com/ppiankov/fieldscout/internal/score"
)

var (
	fieldContext string
	showTrace    bool
	asJSON       bool
	topK         int
	loadTimeout  time.Duration
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <field> <source>...",
	Short: "Find the value of a single field",
	Long: `Retrieve runs the matching strategies for one field against the given
documents and prints the accepted match, or a no-match marker.

Sources are JSON document sets, text, Markdown, HTML or PDF files,
directories of those, or http(s) URLs.

Example:
  fieldscout retrieve "Seller Name" ./deed-docs -d real_estate
  fieldscout retrieve "Policy Number" claim.json -d insurance --trace`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRetrieve,
}

var rankCmd = &cobra.Command{
	Use:   "rank <field> <source>...",
	Short: "Rank documents by relevance to a field",
	Long: `Rank scores every document for one field with the weighted scorer
(token overlap, category, domain keywords, knowledge base, metadata) and
prints the best documents first.

Example:
  fieldscout rank "Diagnosis" ./chart -d medical --top-k 5`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRank,
}

var disambiguateCmd = &cobra.Command{
	Use:   "disambiguate <field> <candidate>...",
	Short: "Pick the candidate name closest to a field name",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		match, ok := score.Disambiguate(args[0], args[1:])
		if !ok {
			return eris.Errorf("no candidate resembles %q", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), match)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(disambiguateCmd)

	for _, c := range []*cobra.Command{retrieveCmd, rankCmd} {
		c.Flags().StringVar(&fieldContext, "context", "", "field label or surrounding text")
		c.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
		c.Flags().DurationVar(&loadTimeout, "timeout", 2*time.Minute, "timeout for loading documents")
	}
	retrieveCmd.Flags().BoolVar(&showTrace, "trace", false, "show every evaluated strategy")
	rankCmd.Flags().IntVar(&topK, "top-k", 0, "number of documents to show (default from config)")
}

// singleField loads configuration and documents shared by retrieve and rank
func singleField(ctx context.Context, args []string) (*model.Config, *retrieve.Retriever, model.Field, []model.Document, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, model.Field{}, nil, err
	}
	d, err := domain.Parse(cfg.Domain)
	if err != nil {
		return nil, nil, model.Field{}, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, model.Field{}, nil, err
	}

	field := model.Field{Name: args[0], Context: fieldContext}
	if err := field.Validate(); err != nil {
		return nil, nil, model.Field{}, nil, err
	}
	docs, err := loader.LoadDocuments(ctx, args[1:]...)
	if err != nil {
		return nil, nil, model.Field{}, nil, err
	}

	filler := pipeline.NewFiller(cfg, pipeline.WithLogger(log))
	return cfg, filler.Retriever(d), field, docs, nil
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
	defer cancel()

	cfg, r, field, docs, err := singleField(ctx, args)
	if err != nil {
		return err
	}

	match, attempts := r.Trace(field, docs)
	outcome := model.Outcome{Field: field, Match: match}
	if match == nil {
		outcome.NoMatch = model.NewNoMatch(field.Name)
	}

	if asJSON {
		out := struct {
			model.Outcome
			Trace []retrieve.Attempt `json:"trace,omitempty"`
		}{Outcome: outcome}
		if showTrace {
			out.Trace = attempts
		}
		return writeJSON(cmd.OutOrStdout(), out)
	}

	p := newPrinter(cmd.OutOrStdout(), cfg.Output.NoColor)
	p.outcome(outcome)
	if showTrace {
		p.trace(attempts)
	}
	return nil
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
	defer cancel()

	cfg, r, field, docs, err := singleField(ctx, args)
	if err != nil {
		return err
	}

	ranked := r.Rank(field, docs, topK)
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), ranked)
	}
	newPrinter(cmd.OutOrStdout(), cfg.Output.NoColor).ranked(field.Name, ranked)
	return nil
}
