package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory statistics for an agent",
		Run:   runStats,
	}
	cmd.Flags().StringP("agent", "a", "default", "Agent name")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("agent")

	eng, s, err := openEngine(false)
	if err != nil {
		exitErr("open engine", err)
	}
	defer s.Close()

	stats, err := eng.Stats(cmd.Context(), agent)
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "text" {
		fmt.Printf("memories: %d (avg importance %.2f, %d accesses, %d pending review)\n",
			stats.TotalMemories, stats.AverageImportance, stats.TotalAccesses, stats.PendingReview)
		for layer, n := range stats.ByLayer {
			fmt.Printf("  layer %s: %d\n", layer, n)
		}
		for status, n := range stats.ByStatus {
			fmt.Printf("  status %s: %d\n", status, n)
		}
		return
	}
	b, _ := json.Marshal(stats)
	fmt.Println(string(b))
}
