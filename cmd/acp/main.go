// Command acp is the command-line interface to the ACP agent registry.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/solace-protocol/acp/pkg/client"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile     string
	registryURL string
	bearerToken string
	adminSecret string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "acp",
	Short: "ACP agent registry CLI",
	Long: `acp is the command-line interface for the Solace agent registry.

It allows you to register agents, deploy them on-chain, and manage their
lifecycle from the terminal.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.acp")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if registryURL == "" {
			registryURL = viper.GetString("registry_url")
		}
		if registryURL == "" {
			registryURL = "http://localhost:8080"
		}
		if bearerToken == "" {
			bearerToken = viper.GetString("token")
		}
		if adminSecret == "" {
			adminSecret = viper.GetString("admin_secret")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.acp/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&registryURL, "registry", "", "registry URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", "", "session JWT for authenticated operations")
	rootCmd.PersistentFlags().StringVar(&adminSecret, "admin-secret", "", "admin secret for suspend and reputation commands")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(suspendCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() *client.Client {
	opts := []client.Option{}
	if bearerToken != "" {
		opts = append(opts, client.WithBearerToken(bearerToken))
	}
	if adminSecret != "" {
		opts = append(opts, client.WithAdminSecret(adminSecret))
	}
	return client.New(registryURL, opts...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── create ───────────────────────────────────────────────────────────────────

var createFile string

var createCmd = &cobra.Command{
	Use:   "create --file agent.json",
	Short: "Register a new agent from a JSON definition",
	Long: `Create registers a new agent. The definition file carries the same
fields as the POST /api/agents payload:

  {
    "name": "price-oracle",
    "description": "Feeds SOL/USDC prices on devnet",
    "type": "oracle",
    "network": "devnet",
    "capabilities": [{"name": "price_feed", "description": "...", "version": "1.0.0"}],
    "configuration": {
      "maxTransactionAmount": 1000,
      "dailyTransactionLimit": 10000,
      "allowedTokens": ["SOL", "USDC"],
      "riskThreshold": 50
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(createFile)
		if err != nil {
			return fmt.Errorf("read agent definition: %w", err)
		}
		var req client.CreateAgentRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("parse agent definition: %w", err)
		}

		agent, err := newClient().Create(context.Background(), req)
		if err != nil {
			return err
		}
		fmt.Printf("Agent %s created (status: %s)\n", agent.ID, agent.Status)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createFile, "file", "", "path to the agent definition JSON (required)")
	_ = createCmd.MarkFlagRequired("file")
}

// ── get ──────────────────────────────────────────────────────────────────────

var getCmd = &cobra.Command{
	Use:   "get <agent-id>",
	Short: "Fetch a single agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, err := newClient().Get(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJSON(agent)
	},
}

// ── list ─────────────────────────────────────────────────────────────────────

var (
	listMine   bool
	listType   string
	listStatus string
	listSearch string
	listLimit  int
	listOffset int
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List agents in the registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := client.ListOptions{
			Search: listSearch,
			Limit:  listLimit,
			Offset: listOffset,
		}
		if listType != "" {
			opts.Types = strings.Split(listType, ",")
		}
		if listStatus != "" {
			opts.Statuses = strings.Split(listStatus, ",")
		}

		c := newClient()
		var page *client.Page
		var err error
		if listMine {
			page, err = c.ListMine(context.Background(), opts)
		} else {
			page, err = c.List(context.Background(), opts)
		}
		if err != nil {
			return err
		}

		if listJSON {
			return printJSON(page)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTATUS\tNETWORK\tREPUTATION")
		for _, a := range page.Agents {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
				a.ID, a.Name, a.Type, a.Status, a.Network, a.Reputation.Score)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d of %d agents (offset %d)\n", len(page.Agents), page.Total, page.Offset)
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listMine, "mine", false, "list only your own agents (requires --token)")
	listCmd.Flags().StringVar(&listType, "type", "", "filter by agent type (comma-separated)")
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (comma-separated)")
	listCmd.Flags().StringVar(&listSearch, "search", "", "search in name and description")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "page size (max 100)")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "page offset")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
}

// ── deploy ───────────────────────────────────────────────────────────────────

var (
	deployNetwork string
	deployWallet  string
)

var deployCmd = &cobra.Command{
	Use:   "deploy <agent-id>",
	Short: "Deploy a pending agent on-chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := newClient().Deploy(context.Background(), args[0], client.DeployRequest{
			Network: deployNetwork,
			Wallet:  deployWallet,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Deployed: contract %s (tx %s)\n", result.ContractAddress, result.TransactionID)
		return nil
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployNetwork, "network", "devnet", "target network: devnet, testnet, or mainnet-beta")
	deployCmd.Flags().StringVar(&deployWallet, "wallet", "", "funding wallet address (required)")
	_ = deployCmd.MarkFlagRequired("wallet")
}

// ── lifecycle ────────────────────────────────────────────────────────────────

var pauseCmd = &cobra.Command{
	Use:   "pause <agent-id>",
	Short: "Pause an active agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, err := newClient().Pause(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Agent %s is now %s\n", agent.ID, agent.Status)
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <agent-id>",
	Short: "Resume a paused agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, err := newClient().Resume(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Agent %s is now %s\n", agent.ID, agent.Status)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <agent-id>",
	Short: "Delete a non-active agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().Delete(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Agent %s deleted\n", args[0])
		return nil
	},
}

var suspendReason string

var suspendCmd = &cobra.Command{
	Use:   "suspend <agent-id>",
	Short: "Suspend an agent (admin only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, err := newClient().Suspend(context.Background(), args[0], suspendReason)
		if err != nil {
			return err
		}
		fmt.Printf("Agent %s suspended\n", agent.ID)
		return nil
	},
}

func init() {
	suspendCmd.Flags().StringVar(&suspendReason, "reason", "", "suspension reason (required)")
	_ = suspendCmd.MarkFlagRequired("reason")
}

// ── stats / activity ─────────────────────────────────────────────────────────

var statsCmd = &cobra.Command{
	Use:   "stats <agent-id>",
	Short: "Show an agent's commercial statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := newClient().Statistics(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

var activityLimit int

var activityCmd = &cobra.Command{
	Use:   "activity <agent-id>",
	Short: "Show an agent's recent activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := newClient().Activity(context.Background(), args[0], activityLimit, 0)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIMESTAMP\tTYPE\tDESCRIPTION\tACTOR")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				e.Timestamp.Format("2006-01-02 15:04:05"), e.Type, e.Description, e.Actor)
		}
		return w.Flush()
	},
}

func init() {
	activityCmd.Flags().IntVar(&activityLimit, "limit", 20, "number of entries to show")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("acp %s\n", version)
	},
}
