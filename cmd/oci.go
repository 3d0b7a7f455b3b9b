package cmd

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/praetorian-inc/ocigraph/internal/helpers"
	"github.com/praetorian-inc/ocigraph/pkg/graph"
	"github.com/praetorian-inc/ocigraph/pkg/graph/adapters"
)

var ociCmd = &cobra.Command{
	Use:   "oci",
	Short: "Sync and query Oracle Cloud Infrastructure inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	pf := ociCmd.PersistentFlags()
	pf.String("neo4j-uri", "bolt://localhost:7687", "neo4j connection URI")
	pf.String("neo4j-username", "neo4j", "neo4j username")
	pf.String("neo4j-password", "", "neo4j password")
	pf.Int("neo4j-batch-size", adapters.DefaultBatchSize, "nodes or relationships per write transaction")
	pf.String("tenancy", "", "tenancy OCID (default is the tenancy of the OCI config profile)")
	pf.String("oci-config-file", "", "OCI config file (default is ~/.oci/config)")
	pf.String("oci-profile", "", "OCI config profile (default is DEFAULT)")
	pf.String("oci-auth", helpers.OCIAuthAPIKey, "authentication: api-key or instance-principal")
	bindFlags(pf)
	rootCmd.AddCommand(ociCmd)
}

func ociProvider() (common.ConfigurationProvider, error) {
	return helpers.GetOCIConfigProvider(helpers.OCIAuthOptions{
		Method:     viper.GetString("oci-auth"),
		ConfigFile: viper.GetString("oci-config-file"),
		Profile:    viper.GetString("oci-profile"),
	})
}

// profileTenancy returns --tenancy, or the tenancy of the configured OCI profile.
func profileTenancy() (string, error) {
	if tenancy := viper.GetString("tenancy"); tenancy != "" {
		return tenancy, nil
	}
	provider, err := ociProvider()
	if err != nil {
		return "", err
	}
	return helpers.GetOCITenancy(provider)
}

// openGraph connects to neo4j, or returns an in-memory graph when dryRun is set.
func openGraph(ctx context.Context, dryRun bool) (graph.GraphDatabase, error) {
	if dryRun {
		slog.Info("dry run, writing to an in-memory graph")
		return adapters.NewMemoryDatabase(), nil
	}

	db, err := adapters.NewNeo4jDatabase(&graph.Config{
		URI:      viper.GetString("neo4j-uri"),
		Username: viper.GetString("neo4j-username"),
		Password: viper.GetString("neo4j-password"),
		Options:  map[string]string{"batchSize": strconv.Itoa(viper.GetInt("neo4j-batch-size"))},
	})
	if err != nil {
		return nil, err
	}
	if err := db.VerifyConnectivity(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
