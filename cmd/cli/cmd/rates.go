package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"interpreting-pricing/core/money"
	"interpreting-pricing/core/rates"
	"interpreting-pricing/db/postgres"
	"interpreting-pricing/internal/config"
)

var (
	rateCategory   string
	rateSeed       string
	rateFormat     string
	rateSeedsFile  string
	ratePersist    bool
	rateScheduling string
	rateChannel    string
	rateMode       string
	rateQualifier  string
	rateSequence   string
)

// ratesCmd groups catalog commands
var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Generate and inspect the rate catalog",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var ratesGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one category's rows from its seed price",
	Long: `Generate derives every rate row of a category from the standard-hours
first-block client price. Nothing is stored.

Examples:
  interp-pricing rates generate --category professional --seed 28.00
  interp-pricing rates generate --category recognised --seed 19.50 --format json`,
	RunE: runRatesGenerate,
}

var ratesRegenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Regenerate every category in a seed file",
	Long: `Regenerate rebuilds the catalog from a seed file. With --persist the
rows replace the stored ones in Postgres, one category per transaction.`,
	RunE: runRatesRegenerate,
}

var ratesGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Look up one rate row",
	RunE:  runRatesGet,
}

func init() {
	ratesGenerateCmd.Flags().StringVar(&rateCategory, "category", "", "interpreter category")
	ratesGenerateCmd.Flags().StringVar(&rateSeed, "seed", "", "standard-hours first-block client price")
	ratesGenerateCmd.Flags().StringVarP(&rateFormat, "format", "f", "table", "output format (table, json)")
	_ = ratesGenerateCmd.MarkFlagRequired("category")
	_ = ratesGenerateCmd.MarkFlagRequired("seed")

	ratesRegenerateCmd.Flags().StringVar(&rateSeedsFile, "seeds", "", "seed file (default pricing.seeds_file)")
	ratesRegenerateCmd.Flags().BoolVar(&ratePersist, "persist", false, "write the rows to Postgres")

	ratesGetCmd.Flags().StringVar(&rateCategory, "category", "", "interpreter category")
	ratesGetCmd.Flags().StringVar(&rateScheduling, "scheduling", "", "on_demand or pre_booked")
	ratesGetCmd.Flags().StringVar(&rateChannel, "channel", "", "audio, video or face_to_face")
	ratesGetCmd.Flags().StringVar(&rateMode, "mode", "", "interpreting mode")
	ratesGetCmd.Flags().StringVar(&rateQualifier, "qualifier", string(rates.StandardHours), "standard_hours or after_hours")
	ratesGetCmd.Flags().StringVar(&rateSequence, "sequence", string(rates.FirstBlock), "first_block or additional_block")
	ratesGetCmd.Flags().StringVar(&rateSeedsFile, "seeds", "", "seed file (default pricing.seeds_file)")
	for _, name := range []string{"category", "scheduling", "channel", "mode"} {
		_ = ratesGetCmd.MarkFlagRequired(name)
	}

	ratesCmd.AddCommand(ratesGenerateCmd)
	ratesCmd.AddCommand(ratesRegenerateCmd)
	ratesCmd.AddCommand(ratesGetCmd)
}

func runRatesGenerate(cmd *cobra.Command, args []string) error {
	category, err := rates.ParseCategory(rateCategory)
	if err != nil {
		return err
	}
	seed, err := money.Parse(rateSeed)
	if err != nil {
		return err
	}

	rows, err := rates.Generate(category, seed)
	if err != nil {
		return err
	}

	switch rateFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "table":
		printRows(fmt.Sprintf("%s @ %s", category, money.Format(seed)), rows)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", rateFormat)
	}
}

func runRatesRegenerate(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if ratePersist {
		if err := requireDSN(cfg); err != nil {
			return err
		}
	}

	seeds, err := rates.LoadSeeds(seedsPathOr(rateSeedsFile, cfg))
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(time.Minute)
	defer cancel()

	reg := rates.NewRegistry()
	var store rates.Store
	if ratePersist {
		pool, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewRateStore(pool)
	}

	fmt.Println("┌─────────────────────────────────────────────────────────────────────────┐")
	fmt.Println("│                          RATE REGENERATION                             │")
	fmt.Println("├─────────────────────────────────────────────────────────────────────────┤")
	for _, s := range seeds {
		table, err := reg.Regenerate(ctx, store, s.Category, s.FirstBlockPrice)
		if err != nil {
			return fmt.Errorf("regenerate %s: %w", s.Category, err)
		}
		fmt.Printf("│ %-50s %20s │\n",
			fmt.Sprintf("%s @ %s", s.Category, money.Format(s.FirstBlockPrice)),
			fmt.Sprintf("v%d, %d rows", table.Version, table.Len()))
	}
	table := reg.Current()
	fmt.Println("├─────────────────────────────────────────────────────────────────────────┤")
	fmt.Printf("│ %-50s %20s │\n", "CONTENT HASH", truncate(table.ContentHash, 20))
	fmt.Printf("│ %-50s %20t │\n", "PERSISTED", store != nil)
	fmt.Println("└─────────────────────────────────────────────────────────────────────────┘")
	return nil
}

func runRatesGet(cmd *cobra.Command, args []string) error {
	var (
		k   rates.Key
		err error
	)
	if k.Category, err = rates.ParseCategory(rateCategory); err != nil {
		return err
	}
	if k.Scheduling, err = rates.ParseScheduling(rateScheduling); err != nil {
		return err
	}
	if k.Channel, err = rates.ParseChannel(rateChannel); err != nil {
		return err
	}
	if k.Mode, err = rates.ParseMode(rateMode); err != nil {
		return err
	}
	if k.Qualifier, err = rates.ParseQualifier(rateQualifier); err != nil {
		return err
	}
	if k.Sequence, err = rates.ParseSequence(rateSequence); err != nil {
		return err
	}

	cfg := config.Get()
	ctx, cancel := commandContext(30 * time.Second)
	defer cancel()

	c, err := openCatalog(ctx, rates.NewRegistry(), cfg, seedsPathOr(rateSeedsFile, cfg), true)
	if err != nil {
		return err
	}
	defer c.Close()

	row, err := c.registry.Rate(ctx, k)
	if err != nil {
		return err
	}
	printRows(k.String(), []rates.Row{row})
	return nil
}

func printRows(title string, rows []rates.Row) {
	fmt.Println("┌─────────────────────────────────────────────────────────────────────────────────────────────────────┐")
	fmt.Printf("│ %-99s │\n", truncate(title, 99))
	fmt.Println("├─────────────────────────────────────────────────────────────────────────────────────────────────────┤")
	fmt.Printf("│ %-54s %4s %9s %9s %9s %9s │\n", "RATE", "MIN", "CLIENT", "CLIENT-X", "INTERP", "INTERP-X")
	for _, r := range rows {
		label := fmt.Sprintf("%s/%s/%s/%s/%s", r.Scheduling, r.Channel, r.Mode, r.Qualifier, r.Sequence)
		fmt.Printf("│ %-54s %4d %9s %9s %9s %9s │\n",
			truncate(label, 54),
			r.BlockMinutes,
			money.Format(r.General.ClientWithTax),
			money.Format(r.General.ClientWithoutTax),
			money.Format(r.General.InterpreterWithTax),
			money.Format(r.General.InterpreterWithoutTax))
		if !r.Special.ClientWithTax.Equal(r.General.ClientWithTax) {
			fmt.Printf("│   └─ %-49s %4s %9s %9s %9s %9s │\n",
				"legal / medical", "",
				money.Format(r.Special.ClientWithTax),
				money.Format(r.Special.ClientWithoutTax),
				money.Format(r.Special.InterpreterWithTax),
				money.Format(r.Special.InterpreterWithoutTax))
		}
	}
	fmt.Println("└─────────────────────────────────────────────────────────────────────────────────────────────────────┘")
	fmt.Printf("\n%d rows\n", len(rows))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
