package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/praetorian-inc/ocigraph/internal/helpers"
	"github.com/praetorian-inc/ocigraph/internal/message"
	outputproviders "github.com/praetorian-inc/ocigraph/internal/output_providers"
	ocicollectors "github.com/praetorian-inc/ocigraph/pkg/oci/collectors"
	"github.com/praetorian-inc/ocigraph/pkg/oci/ingest"
)

var ociSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync OCI resources into the graph",
	Long: `Lists compute, network, block storage, object storage, database, API gateway
and load balancer resources in every subscribed region, writes them to the graph,
and then links them to each other, to policies and to regions.

Tenancy, compartment, policy and region nodes are expected to exist already.`,
	RunE: runOCISync,
}

func init() {
	f := ociSyncCmd.Flags()
	f.StringSlice("regions", nil, "regions to sync (default is every subscribed region)")
	f.StringSlice("resources", nil, "stages, services or kinds to sync (default is all, see 'oci stages')")
	f.Bool("all-compartments", false, "sync every compartment known to the graph, not only the tenancy root")
	f.Int64("update-tag", 0, "value written to lastupdated (default is the current Unix time)")
	f.Bool("continue-on-error", false, "keep going after a stage fails and report every failure")
	f.String("filter", "", "jq expression; only records it matches are written")
	f.Float64("requests-per-second", 0, "limit OCI API requests per second (0 is unlimited)")
	f.String("metrics-file", "", "write prometheus metrics to this file when the sync ends")
	f.Bool("dry-run", false, "write to an in-memory graph instead of neo4j")
	f.StringP("output", "o", "", "write a JSON run summary to this directory")
	bindFlags(f)
	ociCmd.AddCommand(ociSyncCmd)
}

func runOCISync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	provider, err := ociProvider()
	if err != nil {
		return err
	}

	tenancy := viper.GetString("tenancy")
	if tenancy == "" {
		if tenancy, err = helpers.GetOCITenancy(provider); err != nil {
			return err
		}
	}

	var opts []ocicollectors.Option
	if rps := viper.GetFloat64("requests-per-second"); rps > 0 {
		opts = append(opts, ocicollectors.WithLimiter(rate.NewLimiter(rate.Limit(rps), 1)))
	}
	factory := helpers.NewOCIClientFactory(provider, opts...)
	identity, err := factory.Identity()
	if err != nil {
		return err
	}

	db, err := openGraph(ctx, viper.GetBool("dry-run"))
	if err != nil {
		return err
	}
	defer db.Close()

	message.Banner()
	message.Section("Syncing tenancy %s", tenancy)

	syncer := ingest.NewSyncer(db, factory, ingest.WithIdentity(identity))
	summary, runErr := syncer.Run(ctx, ingest.Config{
		TenancyID:       tenancy,
		Regions:         viper.GetStringSlice("regions"),
		Resources:       viper.GetStringSlice("resources"),
		AllCompartments: viper.GetBool("all-compartments"),
		UpdateTag:       viper.GetInt64("update-tag"),
		ContinueOnError: viper.GetBool("continue-on-error"),
		Filter:          viper.GetString("filter"),
	})
	if summary != nil {
		printSummary(summary)
		if dir := viper.GetString("output"); dir != "" {
			runErr = errors.Join(runErr, writeSummary(dir, summary))
		}
	}

	if path := viper.GetString("metrics-file"); path != "" {
		if err := syncer.Metrics().WriteToTextfile(path); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("failed to write metrics: %w", err))
		} else {
			message.Info("metrics written to %s", path)
		}
	}

	if runErr != nil {
		return runErr
	}
	message.Success("sync %s finished with update tag %d", summary.RunID, summary.UpdateTag)
	return nil
}

func printSummary(s *ingest.Summary) {
	message.Section("Summary")
	rows := make([][]string, 0, len(s.Results))
	for _, r := range s.Results {
		if r.Status == ingest.StatusDisabled {
			continue
		}
		region := r.Region
		if region == "" {
			region = "tenancy"
		}
		rows = append(rows, []string{r.Stage, region, r.Status.String(), strconv.Itoa(r.Count), r.Duration.Round(time.Millisecond).String()})
	}
	message.Table([]string{"STAGE", "REGION", "STATUS", "COUNT", "DURATION"}, rows)

	if n := s.Count(ingest.StatusFailed); n > 0 {
		message.Error("%d stage(s) failed", n)
	}
	if n := s.Count(ingest.StatusSkipped); n > 0 {
		message.Warning("%d stage(s) skipped because a prerequisite did not complete", n)
	}
}

type stageReport struct {
	Stage      string `json:"stage"`
	Region     string `json:"region,omitempty"`
	Status     string `json:"status"`
	Count      int    `json:"count"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type syncReport struct {
	RunID     string        `json:"run_id"`
	TenancyID string        `json:"tenancy_id"`
	UpdateTag int64         `json:"update_tag"`
	Regions   []string      `json:"regions"`
	Stages    []stageReport `json:"stages"`
}

func writeSummary(dir string, s *ingest.Summary) error {
	report := syncReport{RunID: s.RunID, TenancyID: s.TenancyID, UpdateTag: s.UpdateTag, Regions: s.Regions}
	for _, r := range s.Results {
		sr := stageReport{Stage: r.Stage, Region: r.Region, Status: r.Status.String(), Count: r.Count, DurationMS: r.Duration.Milliseconds()}
		if r.Err != nil {
			sr.Error = r.Err.Error()
		}
		report.Stages = append(report.Stages, sr)
	}

	path, err := outputproviders.NewJsonFileProvider(dir).Write(outputproviders.Result{
		Filename: fmt.Sprintf("sync-%s.json", s.RunID),
		Data:     report,
	})
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	message.Success("summary written to %s", path)
	return nil
}
