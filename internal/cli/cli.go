// Package cli implements the bizflowctl command line tool, which runs the
// business pipelines against the configured store and prints the results as
// JSON.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/bizflow/internal/application/pipeline"
	"github.com/garyjia/bizflow/internal/config"
	"github.com/garyjia/bizflow/internal/container"
	"github.com/garyjia/bizflow/pkg/utils"
)

// App holds the global flags and the output stream shared by all commands
type App struct {
	ConfigPath string
	Memory     bool
	OutputDir  string
	Out        io.Writer
}

// NewRootCommand builds the bizflowctl command tree writing results to out
func NewRootCommand(out io.Writer) *cobra.Command {
	app := &App{Out: out}

	root := &cobra.Command{
		Use:   "bizflowctl",
		Short: "Run business pipelines from the command line",
		Long: `bizflowctl drives the sales, procurement and expense pipelines and
prints each run's trace as JSON.

Example:
  bizflowctl sales --customer 42 --opportunity-amount 50000 --contract-amount 45000`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&app.ConfigPath, "config", "c", "", "config file (default: defaults plus BIZFLOW_* environment)")
	flags.BoolVar(&app.Memory, "memory", false, "use the in-memory store instead of the configured database")
	flags.StringVar(&app.OutputDir, "voucher-dir", "", "override voucher.output_dir")

	root.AddCommand(
		newSalesCommand(app),
		newProcureCommand(app),
		newExpenseCommand(app),
		newStatsCommand(app),
	)
	return root
}

// Execute runs bizflowctl and exits non-zero on failure
func Execute() {
	if err := NewRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *App) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return nil, err
	}
	if a.Memory {
		cfg.Database.Driver = config.DriverMemory
		cfg.Sequence.Backend = config.SequenceMemory
	}
	if a.OutputDir != "" {
		cfg.Voucher.OutputDir = a.OutputDir
	}
	// One-shot runs never sweep; logs go to stderr to keep stdout parseable
	cfg.Scheduler.Enabled = false
	cfg.Logger.OutputPath = "stderr"
	return cfg, cfg.Validate()
}

// withContainer starts a container for one command and closes it afterwards
func (a *App) withContainer(ctx context.Context, fn func(c *container.Container) error) (err error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "bizflowctl",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			logger.Error("Failed to close container", zap.Error(closeErr))
			if err == nil {
				err = closeErr
			}
		}
	}()

	return fn(c)
}

// printTrace writes the trace even when the run failed, then returns the
// run error
func (a *App) printTrace(trace *pipeline.Trace, runErr error) error {
	if trace != nil {
		if err := a.printJSON(trace); err != nil {
			return err
		}
	}
	return runErr
}

func (a *App) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAmount(name, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}
	return d, nil
}

func newSalesCommand(app *App) *cobra.Command {
	var (
		customerID                       int64
		opportunityAmount, contractAmount string
	)

	cmd := &cobra.Command{
		Use:   "sales",
		Short: "Run the sales-to-receipt pipeline",
		Long: `Take a deal from opportunity through contract, project and invoice to
full payment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opp, err := parseAmount("opportunity-amount", opportunityAmount)
			if err != nil {
				return err
			}
			contract, err := parseAmount("contract-amount", contractAmount)
			if err != nil {
				return err
			}
			return app.withContainer(cmd.Context(), func(c *container.Container) error {
				return app.printTrace(c.Orchestrator().SalesToReceipt(cmd.Context(), pipeline.SalesToReceiptInput{
					CustomerID:        customerID,
					OpportunityAmount: opp,
					ContractAmount:    contract,
				}))
			})
		},
	}

	cmd.Flags().Int64Var(&customerID, "customer", 0, "customer id")
	cmd.Flags().StringVar(&opportunityAmount, "opportunity-amount", "", "estimated opportunity amount")
	cmd.Flags().StringVar(&contractAmount, "contract-amount", "", "contract amount")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("opportunity-amount")
	_ = cmd.MarkFlagRequired("contract-amount")
	return cmd
}

func newProcureCommand(app *App) *cobra.Command {
	var (
		input  pipeline.ProcureToPayInput
		amount string
	)

	cmd := &cobra.Command{
		Use:   "procure",
		Short: "Run the procure-to-pay pipeline",
		Long: `Take a purchase request through approval, supplier selection and goods
receipt to a paid supplier invoice.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			estimated, err := parseAmount("amount", amount)
			if err != nil {
				return err
			}
			input.EstimatedAmount = estimated
			return app.withContainer(cmd.Context(), func(c *container.Container) error {
				return app.printTrace(c.Orchestrator().ProcureToPay(cmd.Context(), input))
			})
		},
	}

	cmd.Flags().Int64Var(&input.DepartmentID, "department", 0, "requesting department id")
	cmd.Flags().StringVar(&input.ItemName, "item", "", "item to purchase")
	cmd.Flags().IntVar(&input.Quantity, "quantity", 1, "quantity")
	cmd.Flags().StringVar(&amount, "amount", "", "estimated total amount")
	cmd.Flags().StringVar(&input.SupplierName, "supplier", "", "supplier name (default \""+pipeline.DefaultSupplier+"\")")
	_ = cmd.MarkFlagRequired("department")
	_ = cmd.MarkFlagRequired("item")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newExpenseCommand(app *App) *cobra.Command {
	var (
		input  pipeline.ExpenseInput
		amount string
	)

	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Run the expense reimbursement pipeline",
		Long: `Take an expense claim through manager, finance and, above the
threshold, CEO approval, then generate the voucher and pay it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := parseAmount("amount", amount)
			if err != nil {
				return err
			}
			input.Amount = amt
			return app.withContainer(cmd.Context(), func(c *container.Container) error {
				return app.printTrace(c.Orchestrator().ExpenseReimbursement(cmd.Context(), input))
			})
		},
	}

	cmd.Flags().Int64Var(&input.EmployeeID, "employee", 0, "employee id")
	cmd.Flags().StringVar(&input.ExpenseType, "type", "TRAVEL", "TRAVEL, MEAL, OFFICE, TRANSPORT or OTHER")
	cmd.Flags().StringVar(&amount, "amount", "", "claimed amount")
	cmd.Flags().StringVar(&input.Description, "description", "", "what the expense was for")
	cmd.Flags().StringVar(&input.AttachmentRef, "attachment", "", "receipt reference")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newStatsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print entity and approval statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withContainer(cmd.Context(), func(c *container.Container) error {
				stats, err := c.Query().Statistics(cmd.Context())
				if err != nil {
					return err
				}
				return app.printJSON(stats)
			})
		},
	}
}
