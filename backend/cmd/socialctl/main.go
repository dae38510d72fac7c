// Command socialctl inspects and maintains a social graph deployment.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"social-network/backend/internal/app"
	"social-network/backend/internal/edgetype"
	"social-network/backend/internal/social"
	"social-network/backend/internal/storage/neo4jstore"
	"social-network/backend/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "socialctl",
	Short: "socialctl manages the social graph store",
	Long: `socialctl reads the same environment as the API server (STORE_DRIVER,
NEO4J_*, DEFAULT_SITE, EDGE_TYPES_FILE) and runs maintenance tasks against it.`,
	SilenceUsage: true,
}

var edgeTypesCmd = &cobra.Command{
	Use:   "edge-types",
	Short: "Print the configured edge types",
	Args:  cobra.NoArgs,
	RunE:  runEdgeTypes,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Neo4j constraints and indexes",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var statsCmd = &cobra.Command{
	Use:   "stats <user>",
	Short: "Print relationship counts for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

var (
	edgeTypesFile string
	edgeTypesYAML bool
	migrateForce  bool
	statsSite     string
)

func init() {
	edgeTypesCmd.Flags().StringVar(&edgeTypesFile, "file", "", "YAML edge types file (defaults to EDGE_TYPES_FILE or the built-in set)")
	edgeTypesCmd.Flags().BoolVar(&edgeTypesYAML, "yaml", false, "Print in the edge types file format")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "Re-apply the schema even if it is already recorded")
	statsCmd.Flags().StringVar(&statsSite, "site", "", "Site to count in (defaults to DEFAULT_SITE)")

	rootCmd.AddCommand(edgeTypesCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runEdgeTypes(cmd *cobra.Command, args []string) error {
	var (
		types *edgetype.Registry
		err   error
	)
	if edgeTypesFile != "" {
		types, err = edgetype.LoadFile(edgeTypesFile)
	} else {
		var cfg *config.Config
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		types, err = app.EdgeTypes(cfg)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if edgeTypesYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(edgetype.File{Types: types.Types()}); err != nil {
			return err
		}
		return enc.Close()
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tREAD AS\tINVERSE")
	for _, t := range types.Types() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Name, t.ReadAs, t.Inverse)
	}
	return w.Flush()
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StoreDriverNeo4j {
		return fmt.Errorf("migrate requires STORE_DRIVER=%s, got %q", config.StoreDriverNeo4j, cfg.StoreDriver)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := neo4jstore.Open(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	applied, err := store.EnsureSchema(ctx, migrateForce)
	if err != nil {
		return err
	}
	if applied {
		fmt.Fprintf(cmd.OutOrStdout(), "Applied schema %s\n", neo4jstore.SchemaVersion)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Schema %s already applied\n", neo4jstore.SchemaVersion)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, zap.NewNop(), false)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	return printStats(ctx, cmd, social.NewService(a.Graph), args[0], statsSite)
}

func printStats(ctx context.Context, cmd *cobra.Command, s *social.Service, user, site string) error {
	counts := []struct {
		label string
		count func(ctx context.Context, user, site string) (int, error)
	}{
		{"followers", s.Followers},
		{"following", s.Following},
		{"friends", s.Friends},
		{"groups", s.GroupCount},
	}

	site = s.Graph().Site(site)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "user\t%s\n", user)
	fmt.Fprintf(w, "site\t%s\n", site)
	for _, c := range counts {
		n, err := c.count(ctx, user, site)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\n", c.label, n)
	}
	return w.Flush()
}
