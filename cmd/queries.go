package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/ocigraph/pkg/graph/queries"
)

var listQueriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Display embedded graph queries in a tree structure",
	Run: func(cmd *cobra.Command, args []string) {
		displayQueryTree()
	},
}

func displayQueryTree() {
	ids := make([]string, 0, len(queries.LoadedQueries))
	for id := range queries.LoadedQueries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Group by platform
	groups := make(map[string][]string)
	for _, id := range ids {
		platform, _, _ := strings.Cut(id, "/")
		groups[platform] = append(groups[platform], id)
	}

	bold := color.New(color.Bold)

	platforms := make([]string, 0, len(groups))
	for p := range groups {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	for _, platform := range platforms {
		fmt.Printf("\n%s\n", bold.Sprint(platform))

		seenPaths := make(map[string]bool)
		for _, id := range groups[platform] {
			parts := strings.Split(id, "/")

			// Print intermediate directories
			for i := 1; i < len(parts)-1; i++ {
				path := strings.Join(parts[1:i+1], "/")
				if !seenPaths[path] {
					indent := strings.Repeat("  ", i-1)
					fmt.Printf("%s├─ %s\n", indent, parts[i])
					seenPaths[path] = true
				}
			}

			q := queries.LoadedQueries[id]
			indent := strings.Repeat("  ", len(parts)-2)
			fmt.Printf("%s├─ %s - %s\n", indent, parts[len(parts)-1], q.Name)
		}
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(listQueriesCmd)
}
