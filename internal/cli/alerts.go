package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Evaluate alert rules against the latest KPI snapshot",
	Long: `Evaluate the configured alert rules against the KPI snapshot written by the
last refresh and print the result. No notifications are sent.`,
	RunE: runAlerts,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(_ *cobra.Command, _ []string) error {
	cfg, _, logFile := setup()
	defer logFile.Close()

	rules, err := initRules(cfg)
	if err != nil {
		return err
	}

	kpis, err := newSnapshots(cfg).ReadKPIs()
	if err != nil {
		return fmt.Errorf("read KPI snapshot: %w", err)
	}

	found := rules.Evaluate(kpis)
	if len(found) == 0 {
		fmt.Printf("No alerts for %d campaign(s)\n", len(kpis))
		return nil
	}

	fmt.Printf("%d alert(s) for %d campaign(s)\n\n", len(found), len(kpis))
	printAlerts(os.Stdout, found)
	return nil
}

func printAlerts(out io.Writer, list []model.AlertRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "PRIORITY\tTYPE\tCAMPAIGN\tCHANNEL\tISSUE\tVALUE\tACTION\n")
	for _, a := range list {
		fmt.Fprintf(w, "%s\t%s\t%s (%s)\t%s\t%s\t%s\t%s\n",
			a.Priority, a.Type, a.CampaignName, a.CampaignID, a.Channel,
			a.Issue, a.CurrentValue, a.RecommendedAction)
	}
	w.Flush()
}
