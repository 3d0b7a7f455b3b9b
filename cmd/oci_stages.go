package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/ocigraph/pkg/oci/ingest"
)

var ociStagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "Display sync stages in execution order, grouped by scope",
	Run: func(cmd *cobra.Command, args []string) {
		displayStageTree(ingest.DefaultPipeline())
	},
}

func displayStageTree(p *ingest.Pipeline) {
	bold := color.New(color.Bold)

	for _, scope := range []ingest.Scope{ingest.ScopeRegional, ingest.ScopeTenancy} {
		fmt.Printf("\n%s\n", bold.Sprint(scope))
		for _, s := range p.Stages() {
			if s.Scope != scope {
				continue
			}
			line := fmt.Sprintf("├─ %s", s.Name)
			if s.Resource != "" {
				line += fmt.Sprintf(" (%s)", s.Resource)
			}
			if len(s.Requires) > 0 {
				line += " ← " + strings.Join(s.Requires, ", ")
			}
			fmt.Println(line)
		}
	}
	fmt.Println()
}

func init() {
	ociCmd.AddCommand(ociStagesCmd)
}
