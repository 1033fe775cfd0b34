package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/ibrahimkeyboad/govend/internal/core/domain"
	"github.com/ibrahimkeyboad/govend/internal/core/vending"
)

type raceOptions struct {
	Stock    int
	Price    string
	Balance  string
	Workers  int
	Quantity int
	Machines int
	PerUnit  bool
}

type raceResult struct {
	Attempts     int          `json:"attempts"`
	Approved     int64        `json:"approved"`
	StockBefore  int          `json:"stock_before"`
	StockAfter   int          `json:"stock_after"`
	BalanceAfter domain.Money `json:"balance_after"`
	Overdrawn    bool         `json:"overdrawn"`
}

// simulate fires Workers concurrent vends per machine against one shared
// account. Every machine starts with Stock units.
func simulate(opts raceOptions) (raceResult, error) {
	price, err := domain.NewMoney(opts.Price)
	if err != nil {
		return raceResult{}, err
	}
	balance, err := domain.NewMoney(opts.Balance)
	if err != nil {
		return raceResult{}, err
	}
	if !price.IsPositive() {
		return raceResult{}, fmt.Errorf("%w: price must be positive", domain.ErrInvalidInput)
	}
	if opts.Stock < 0 || opts.Workers <= 0 || opts.Machines <= 0 {
		return raceResult{}, fmt.Errorf("%w: stock must be >= 0, workers and machines > 0", domain.ErrInvalidInput)
	}

	policy := vending.ChargeFlat
	if opts.PerUnit {
		policy = vending.ChargePerUnit
	}

	account := domain.NewAccount(balance)
	accept := vending.PinValidatorFunc(func(int) bool { return true })
	machines := make([]*vending.Machine, opts.Machines)
	for i := range machines {
		machines[i] = vending.NewMachine(accept, opts.Stock, price, vending.WithChargePolicy(policy))
	}

	var wg sync.WaitGroup
	var approved atomic.Int64
	start := make(chan struct{})
	for _, m := range machines {
		for i := 0; i < opts.Workers; i++ {
			wg.Add(1)
			go func(m *vending.Machine) {
				defer wg.Done()
				<-start
				if m.Vend(domain.NewCard(account), 0, opts.Quantity) {
					approved.Add(1)
				}
			}(m)
		}
	}
	close(start)
	wg.Wait()

	stockAfter := 0
	for _, m := range machines {
		stockAfter += m.Stock()
	}

	final := account.Balance()
	return raceResult{
		Attempts:     opts.Workers * opts.Machines,
		Approved:     approved.Load(),
		StockBefore:  opts.Stock * opts.Machines,
		StockAfter:   stockAfter,
		BalanceAfter: final,
		Overdrawn:    final.IsNegative() && !balance.IsNegative(),
	}, nil
}

func raceCmd() *cobra.Command {
	var opts raceOptions
	var format string

	c := &cobra.Command{
		Use:   "race",
		Short: "Fire concurrent vends at machines sharing one account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := simulate(opts)
			if err != nil {
				return err
			}
			if err := printRace(cmd.OutOrStdout(), res, format); err != nil {
				return err
			}
			if res.StockAfter < 0 {
				return fmt.Errorf("stock went negative (%d)", res.StockAfter)
			}
			if res.Overdrawn && opts.Machines == 1 {
				return fmt.Errorf("account overdrawn on a single machine (%s)", res.BalanceAfter)
			}
			return nil
		},
	}

	c.Flags().IntVar(&opts.Stock, "stock", 25, "Initial stock per machine")
	c.Flags().StringVar(&opts.Price, "price", "0.50", "Unit price")
	c.Flags().StringVar(&opts.Balance, "balance", "5.00", "Opening balance of the shared account")
	c.Flags().IntVar(&opts.Workers, "workers", 50, "Concurrent vends per machine")
	c.Flags().IntVar(&opts.Quantity, "quantity", 1, "Units per vend")
	c.Flags().IntVar(&opts.Machines, "machines", 1, "Machines sharing the account (>1 shows the cross-machine race)")
	c.Flags().BoolVar(&opts.PerUnit, "per-unit", false, "Charge unit price times quantity")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	return c
}

func printRace(w io.Writer, res raceResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "pretty":
		_, err := fmt.Fprintf(w,
			"attempts:  %d\napproved:  %d\nstock:     %d -> %d\nbalance:   %s\noverdrawn: %t\n",
			res.Attempts, res.Approved, res.StockBefore, res.StockAfter, res.BalanceAfter, res.Overdrawn)
		return err
	default:
		return fmt.Errorf("unknown format %q (use pretty or json)", format)
	}
}
