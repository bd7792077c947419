package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fieldscout/internal/domain"
	"github.com/ppiankov/fieldscout/internal/knowledge"
)

var showTerms bool

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List supported domains",
	Long:  `List the supported domains with their field categories, rule groups and, optionally, their glossary terms.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p := newPrinter(cmd.OutOrStdout(), cfg.Output.NoColor)

		for _, d := range domain.All() {
			profile := domain.ProfileFor(d)
			p.printf("bold", "%s\n", d)
			p.printf("", "  categories: %s\n", strings.Join(groupNames(profile.Categories), ", "))
			p.printf("", "  rules:      %s\n", strings.Join(groupNames(profile.Rules), ", "))

			if !showTerms {
				continue
			}
			if kb := knowledge.For(d); kb != nil {
				for _, t := range kb.Terms() {
					p.printf("cyan", "  %-22s", t.Canonical)
					p.printf("", " %s\n", strings.Join(t.Aliases, ", "))
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(domainsCmd)
	domainsCmd.Flags().BoolVar(&showTerms, "terms", false, "show glossary terms and aliases")
}

func groupNames(groups []domain.KeywordGroup) []string {
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	return names
}
