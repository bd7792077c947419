package cli

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ppiankov/fieldscout/internal/domain"
	"github.com/ppiankov/fieldscout/internal/store"
)

var (
	mapTo     string
	dropField bool
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage remembered field mappings",
	Long: `Field memory records decisions about discovered form fields: rename a
field to the name retrieval should search for, or drop it from future
fills. Fills apply it with --field-memory.

Mappings persist only with the sqlite store driver.`,
}

var memorySetCmd = &cobra.Command{
	Use:   "set <field>",
	Short: "Remember a mapping for a field",
	Example: `  fieldscout memory set "Vendor" --map-to "Seller Name" -d real_estate
  fieldscout memory set "Office Use Only" --drop -d real_estate`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if dropField && mapTo != "" {
			return eris.New("--drop and --map-to are mutually exclusive")
		}
		st, d, err := openMemory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		m := store.FieldMapping{Domain: d.String(), FieldName: args[0], Keep: !dropField, MappedTo: mapTo}
		if err := st.RememberField(cmd.Context(), m); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], describeMapping(&m))
		return nil
	},
}

var memoryGetCmd = &cobra.Command{
	Use:   "get <field>",
	Short: "Show the mapping remembered for a field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, d, err := openMemory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		m, err := st.RecallField(cmd.Context(), d.String(), args[0])
		if err != nil {
			return err
		}
		if m == nil {
			return eris.Errorf("no mapping for %q in %s", args[0], d)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], describeMapping(m))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memorySetCmd)
	memoryCmd.AddCommand(memoryGetCmd)

	memorySetCmd.Flags().StringVar(&mapTo, "map-to", "", "search for this field name instead")
	memorySetCmd.Flags().BoolVar(&dropField, "drop", false, "leave the field out of future fills")
}

func openMemory(cmd *cobra.Command) (store.Store, domain.Domain, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	d, err := domain.Parse(cfg.Domain)
	if err != nil {
		return nil, "", err
	}
	if cfg.Store.Driver != "sqlite" {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: store.driver is not sqlite; the mapping will not persist")
	}
	st, err := store.New(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, "", eris.Wrap(err, "open store")
	}
	return st, d, nil
}

func describeMapping(m *store.FieldMapping) string {
	switch {
	case !m.Keep:
		return "dropped"
	case m.MappedTo != "":
		return "mapped to " + m.MappedTo
	default:
		return "kept"
	}
}
