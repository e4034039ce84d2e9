package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"interpreting-pricing/core/money"
	"interpreting-pricing/core/quote"
	"interpreting-pricing/core/rates"
	"interpreting-pricing/internal/config"
	apperrors "interpreting-pricing/internal/errors"
)

var (
	quoteSeedsFile string
	quoteFormat    string
)

// quoteCmd prices a request file
var quoteCmd = &cobra.Command{
	Use:   "quote <request.json>",
	Short: "Price an appointment request",
	Long: `Quote prices the appointment described in a JSON request file and prints
the quote. Use "-" to read the request from stdin.

Examples:
  interp-pricing quote ./request.json
  interp-pricing quote --format summary ./request.json
  cat request.json | interp-pricing quote -`,
	Args: cobra.ExactArgs(1),
	RunE: runQuote,
}

func init() {
	quoteCmd.Flags().StringVar(&quoteSeedsFile, "seeds", "", "seed file (default pricing.seeds_file)")
	quoteCmd.Flags().StringVarP(&quoteFormat, "format", "f", "json", "output format (json, summary)")
}

func runQuote(cmd *cobra.Command, args []string) error {
	req, err := readRequest(args[0])
	if err != nil {
		return err
	}

	cfg := config.Get()
	ctx, cancel := commandContext(30 * time.Second)
	defer cancel()

	c, err := openCatalog(ctx, rates.NewRegistry(), cfg, seedsPathOr(quoteSeedsFile, cfg), true)
	if err != nil {
		return err
	}
	defer c.Close()

	svc, err := newQuoteService(c.registry, cfg, nil)
	if err != nil {
		return err
	}
	q, err := svc.Quote(ctx, req)
	if err != nil {
		return err
	}

	switch quoteFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(q)
	case "summary":
		printQuote(q)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", quoteFormat)
	}
}

func readRequest(path string) (quote.Request, error) {
	var req quote.Request

	in := os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return req, apperrors.Parsing("open request", err)
		}
		defer f.Close()
		in = f
	}

	dec := json.NewDecoder(in)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, apperrors.Parsing("decode request", err)
	}
	return req, nil
}

func printQuote(q *quote.Quote) {
	line := func(label, amount string) {
		fmt.Printf("│ %-50s %20s │\n", truncate(label, 50), amount)
	}

	fmt.Println("┌─────────────────────────────────────────────────────────────────────────┐")
	fmt.Println("│                             QUOTE SUMMARY                               │")
	fmt.Println("├─────────────────────────────────────────────────────────────────────────┤")
	for i, d := range q.Days {
		line(fmt.Sprintf("Day %d (%d min billed)", i+1, d.Client.BilledMinutes()), money.Format(d.Client.TotalPrice))
		for _, b := range d.Client.Blocks {
			label := fmt.Sprintf("  └─ %s %s, %d min", b.Qualifier, b.Sequence, b.Minutes)
			if b.Split {
				label += " (split)"
			}
			line(label, money.Format(b.Price))
		}
	}
	fmt.Println("├─────────────────────────────────────────────────────────────────────────┤")
	line("PRE-DISCOUNT", money.Format(q.PreDiscountAmount))
	if !q.DiscountByMembershipMinutes.IsZero() {
		line("Membership free minutes", "-"+money.Format(q.DiscountByMembershipMinutes))
	}
	if !q.DiscountByPromoPercent.IsZero() {
		line("Promotion", "-"+money.Format(q.DiscountByPromoPercent))
	}
	if !q.DiscountByMembershipPercent.IsZero() {
		line("Membership percent", "-"+money.Format(q.DiscountByMembershipPercent))
	}
	line("NET", money.Format(q.NetAmount))
	line("GST", money.Format(q.TaxAmount))
	line("TOTAL", money.Format(q.Amount))
	fmt.Println("├─────────────────────────────────────────────────────────────────────────┤")
	line("INTERPRETER PAYOUT", money.Format(q.InterpreterPayout.Gross))
	fmt.Println("└─────────────────────────────────────────────────────────────────────────┘")

	fmt.Printf("\nQuote %s, plan %s, rate table v%d\n", q.ID, q.Plan, q.RateTableVersion)
}
