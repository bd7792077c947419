package cli

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ppiankov/fieldscout/internal/domain"
	"github.com/ppiankov/fieldscout/internal/model"
	"github.com/ppiankov/fieldscout/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate <form.json>",
	Short: "Validate an already filled form",
	Long: `Validate checks every value of a filled form (a JSON object mapping
field names to values, as written by "fill --form") against the domain's
field rules, then runs the cross-field and compliance checks.

The command fails when any critical finding is reported.

Example:
  fieldscout validate filled.json -d real_estate`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
}

// validationReport is the JSON output of the validate command
type validationReport struct {
	Domain     string                              `json:"domain"`
	Fields     []model.ValidationResult            `json:"fields"`
	CrossField []model.ValidationResult            `json:"cross_field"`
	Compliance map[string][]model.ValidationResult `json:"compliance"`
	Checks     int                                 `json:"checks"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := domain.Parse(cfg.Domain)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return eris.Wrapf(err, "read %s", args[0])
	}
	var form validate.Form
	if err := json.Unmarshal(data, &form); err != nil {
		return eris.Wrapf(err, "decode %s", args[0])
	}

	engine := validate.NewEngine(d)
	names := make([]string, 0, len(form))
	for name := range form {
		names = append(names, name)
	}
	sort.Strings(names)

	report := validationReport{Domain: d.String()}
	for _, name := range names {
		// Empty values are unresolved fields; compliance reports them
		if form[name] == "" {
			continue
		}
		value := form[name]
		report.Fields = append(report.Fields, engine.ValidateField(name, &value))
	}
	report.CrossField = engine.ValidateCrossFields(form)
	report.Compliance = engine.CheckCompliance(form)
	report.Checks = len(engine.AuditTrail())

	if asJSON {
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		p := newPrinter(cmd.OutOrStdout(), cfg.Output.NoColor)
		p.printf("bold", "Fields\n")
		for _, r := range report.Fields {
			p.validation(r)
		}
		p.printf("bold", "Cross-field\n")
		for _, r := range report.CrossField {
			p.validation(r)
		}
		rules := make([]string, 0, len(report.Compliance))
		for rule := range report.Compliance {
			rules = append(rules, rule)
		}
		sort.Strings(rules)
		for _, rule := range rules {
			p.printf("bold", "Compliance: %s\n", rule)
			for _, r := range report.Compliance[rule] {
				p.validation(r)
			}
		}
		p.printf("", "\n%d checks run\n", report.Checks)
	}

	if n := criticalFindings(report); n > 0 {
		return eris.Errorf("%d critical finding(s)", n)
	}
	return nil
}

func criticalFindings(r validationReport) int {
	n := 0
	count := func(results []model.ValidationResult) {
		for _, v := range results {
			if !v.IsValid && v.Severity == model.SeverityCritical {
				n++
			}
		}
	}
	count(r.Fields)
	count(r.CrossField)
	for _, results := range r.Compliance {
		count(results)
	}
	return n
}
