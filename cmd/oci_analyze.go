package cmd

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/praetorian-inc/ocigraph/internal/message"
	outputproviders "github.com/praetorian-inc/ocigraph/internal/output_providers"
	"github.com/praetorian-inc/ocigraph/pkg/graph"
	"github.com/praetorian-inc/ocigraph/pkg/graph/queries"
)

var ociAnalyzeCmd = &cobra.Command{
	Use:   "analyze [category...]",
	Short: "Run the OCI analysis queries against the graph",
	Long: `Runs every embedded OCI analysis query, or only those in the given
categories, in order and prints the records each one returns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		found := queries.GetPlatformQueries("oci", "analysis", args...)
		if len(found) == 0 {
			return fmt.Errorf("no analysis queries match %v", args)
		}

		tenancy, err := analysisTenancy(found, viper.GetString("tenancy"), profileTenancy)
		if err != nil {
			return err
		}

		db, err := openGraph(ctx, false)
		if err != nil {
			return err
		}
		defer db.Close()

		var md *outputproviders.MarkdownFileProvider
		reportName := ""
		dir, _ := cmd.Flags().GetString("output")
		if dir != "" {
			md = outputproviders.NewMarkdownFileProvider(dir)
			reportName = outputproviders.DefaultFileName("oci-analysis", "md")
		}

		for _, q := range found {
			message.Section("%s [%s]", q.Name, q.Severity)
			res, err := queries.RunPlatformQuery(ctx, db, q.ID, map[string]any{"tenancy_id": tenancy})
			if err != nil {
				return err
			}
			if len(res.Records) == 0 {
				message.Success("no findings")
				continue
			}
			for _, r := range res.Records {
				message.Warning("%s", r)
			}
			if md != nil {
				path, err := md.Write(outputproviders.Result{Filename: reportName, Data: findingsTable(q, res.Records)})
				if err != nil {
					return err
				}
				slog.Debug("findings appended", "query", q.ID, "path", path)
			}
		}
		if md != nil {
			message.Success("findings written to %s", outputproviders.GetFullPath(reportName, dir))
		}
		return nil
	},
}

// analysisTenancy resolves the tenancy only when a selected query is scoped by one.
func analysisTenancy(found []queries.Query, tenancy string, lookup func() (string, error)) (string, error) {
	if tenancy != "" || !slices.ContainsFunc(found, usesTenancy) {
		return tenancy, nil
	}
	tenancy, err := lookup()
	if err != nil {
		return "", fmt.Errorf("tenancy-scoped queries need --tenancy or an OCI profile: %w", err)
	}
	if tenancy == "" {
		return "", fmt.Errorf("tenancy-scoped queries need --tenancy or an OCI profile")
	}
	return tenancy, nil
}

func usesTenancy(q queries.Query) bool {
	return strings.Contains(q.Cypher, "$tenancy_id")
}

// findingsTable lays records out with one column per returned field.
func findingsTable(q queries.Query, records []graph.Record) outputproviders.MarkdownTable {
	headers := make([]string, 0)
	for _, r := range records {
		for k := range r {
			if !slices.Contains(headers, k) {
				headers = append(headers, k)
			}
		}
	}
	sort.Strings(headers)

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, len(headers))
		for i, h := range headers {
			if v, ok := r[h]; ok && v != nil {
				row[i] = fmt.Sprint(v)
			}
		}
		rows = append(rows, row)
	}
	return outputproviders.MarkdownTable{
		TableHeading: fmt.Sprintf("%s (%s)", q.Name, q.Severity),
		Headers:      headers,
		Rows:         rows,
	}
}

func init() {
	ociAnalyzeCmd.Flags().StringP("output", "o", "", "append findings as Markdown tables to a report in this directory")
	ociCmd.AddCommand(ociAnalyzeCmd)
}
