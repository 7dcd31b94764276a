package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Jaeyong-Cho/abstraction"
)

var (
	flagBehavior string
	flagPre      []string
	flagPost     []string
	flagLevel    string
)

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Record and inspect function contracts",
}

var contractSetCmd = &cobra.Command{
	Use:   "set <token>",
	Short: "Record a contract against a function's current body",
	Args:  cobra.ExactArgs(1),
	RunE:  runContractSet,
}

var contractGetCmd = &cobra.Command{
	Use:   "get <token>",
	Short: "Show the recorded contract for a function",
	Args:  cobra.ExactArgs(1),
	RunE:  runContractGet,
}

var contractStatusCmd = &cobra.Command{
	Use:   "status <token>",
	Short: "Classify a contract against the current snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runContractStatus,
}

var contractListCmd = &cobra.Command{
	Use:   "list [path-prefix]",
	Short: "List recorded contracts with their classification",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runContractList,
}

var contractDeleteCmd = &cobra.Command{
	Use:   "delete <token>",
	Short: "Remove the recorded contract for a function",
	Args:  cobra.ExactArgs(1),
	RunE:  runContractDelete,
}

func init() {
	contractSetCmd.Flags().StringVar(&flagBehavior, "behavior", "", "expected behavior description (required)")
	contractSetCmd.Flags().StringArrayVar(&flagPre, "pre", nil, "precondition (repeatable)")
	contractSetCmd.Flags().StringArrayVar(&flagPost, "post", nil, "postcondition (repeatable)")
	contractSetCmd.Flags().StringVar(&flagLevel, "level", "low", "abstraction level: entry|high|medium|low|system")
	_ = contractSetCmd.MarkFlagRequired("behavior")

	contractCmd.AddCommand(contractSetCmd)
	contractCmd.AddCommand(contractGetCmd)
	contractCmd.AddCommand(contractStatusCmd)
	contractCmd.AddCommand(contractListCmd)
	contractCmd.AddCommand(contractDeleteCmd)
}

// contractQuery resolves the token argument and opens a query builder. The
// caller owns closing the returned engine.
func contractQuery(command, arg string) (*abstraction.Engine, *abstraction.QueryBuilder, abstraction.Identity, error) {
	id, err := parseIdentityArg(arg)
	if err != nil {
		return nil, nil, abstraction.Identity{}, outputError(command, err)
	}
	engine, err := openEngine()
	if err != nil {
		return nil, nil, abstraction.Identity{}, err
	}
	q, err := engine.Query()
	if err != nil {
		engine.Close()
		return nil, nil, abstraction.Identity{}, outputError(command, err)
	}
	return engine, q, id, nil
}

func runContractSet(cmd *cobra.Command, args []string) error {
	level := abstraction.AbstractionLevel(flagLevel)
	if !abstraction.ValidLevel(level) {
		return outputError("contract", fmt.Errorf("invalid level %q: must be entry, high, medium, low, or system", flagLevel))
	}

	engine, q, id, err := contractQuery("contract", args[0])
	if err != nil {
		return err
	}
	defer engine.Close()

	c, err := q.SaveContract(id, flagBehavior, flagPre, flagPost, level)
	if err != nil {
		return outputError("contract", err)
	}

	if flagFormat == "json" {
		return outputResult(CLIResult{Command: "contract", Results: c})
	}
	fmt.Fprintf(os.Stderr, "Recorded %s contract for %s (fingerprint %.12s)\n", c.Level, id.Token(), c.RecordedFingerprint)
	return nil
}

func runContractGet(cmd *cobra.Command, args []string) error {
	engine, q, id, err := contractQuery("contract", args[0])
	if err != nil {
		return err
	}
	defer engine.Close()

	c, err := q.Contract(id)
	if err != nil {
		return outputError("contract", err)
	}
	if c == nil {
		return outputError("contract", fmt.Errorf("no contract recorded for %s", id.Token()))
	}

	if flagFormat == "json" {
		return outputResult(CLIResult{Command: "contract", Results: c})
	}
	formatContractText(os.Stdout, c)
	return nil
}

func runContractStatus(cmd *cobra.Command, args []string) error {
	engine, q, id, err := contractQuery("contract", args[0])
	if err != nil {
		return err
	}
	defer engine.Close()

	st, err := q.ContractStatus(id)
	if err != nil {
		return outputError("contract", err)
	}

	if flagFormat == "json" {
		return outputResult(CLIResult{Command: "contract", Results: st})
	}
	fmt.Printf("%s: %s\n", id.Token(), statusLabel(st.Status))
	if st.Status == abstraction.ClassStale && st.Contract != nil {
		fmt.Printf("  recorded %.12s, current %.12s\n", st.Contract.RecordedFingerprint, st.CurrentFingerprint)
	}
	return nil
}

func runContractList(cmd *cobra.Command, args []string) error {
	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}

	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	q, err := engine.Query()
	if err != nil {
		return outputError("contract", err)
	}
	impacts, err := q.ListContracts(prefix)
	if err != nil {
		return outputError("contract", err)
	}

	if flagFormat == "json" {
		return outputResult(CLIResult{Command: "contract", Results: impacts})
	}

	if len(impacts) == 0 {
		fmt.Fprintln(os.Stderr, "No contracts recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tLEVEL\tSTATUS\tRECORDED")
	for _, impact := range impacts {
		c := impact.Contract
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			c.Identity.Token(), c.Level, statusLabel(impact.Status), c.RecordedAt.Format("2006-01-02"))
	}
	tw.Flush()
	return nil
}

func runContractDelete(cmd *cobra.Command, args []string) error {
	engine, q, id, err := contractQuery("contract", args[0])
	if err != nil {
		return err
	}
	defer engine.Close()

	existed, err := q.DeleteContract(id)
	if err != nil {
		return outputError("contract", err)
	}
	if !existed {
		return outputError("contract", fmt.Errorf("no contract recorded for %s", id.Token()))
	}

	if flagFormat == "json" {
		return outputResult(CLIResult{Command: "contract", Results: map[string]any{"deleted": id.Token()}})
	}
	fmt.Fprintf(os.Stderr, "Deleted contract for %s\n", id.Token())
	return nil
}
