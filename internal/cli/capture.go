package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentmem/tempora/internal/capture"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "capture <type> [content]",
		Short: "Buffer an agent event to working memory",
		Long:  "Buffer a significant event (learning, decision, error, ...) to the offline queue with per-type TTL and domain defaults. Types: " + strings.Join(capture.Types(), ", ") + ".",
		Args:  cobra.MinimumNArgs(2),
		Run:   runCapture,
	}

	cmd.Flags().Int("ttl", 0, "Override the per-type TTL in hours")
	cmd.Flags().String("domain", "", "Override the per-type domain")
	cmd.Flags().StringP("tags", "t", "", "Additional comma-separated tags")

	statsCmd := &cobra.Command{
		Use:   "capture-stats",
		Short: "Count buffered captures by event type",
		Run:   runCaptureStats,
	}

	RootCmd.AddCommand(cmd, statsCmd)
}

func runCapture(cmd *cobra.Command, args []string) {
	ttl, _ := cmd.Flags().GetInt("ttl")
	domain, _ := cmd.Flags().GetString("domain")
	tagsStr, _ := cmd.Flags().GetString("tags")

	r, err := capture.Capture(openQueue(), args[0], strings.Join(args[1:], " "), capture.Options{
		TTLHours: ttl,
		Domain:   domain,
		Tags:     splitTags(tagsStr),
	})
	if err != nil {
		exitErr("capture", err)
	}

	if formatFlag == "text" {
		fmt.Printf("captured [%s/%s] ttl %dh: %s\n", args[0], r.Domain, r.TTLHours, r.Content)
		return
	}
	b, _ := json.Marshal(r)
	fmt.Println(string(b))
}

func runCaptureStats(cmd *cobra.Command, args []string) {
	stats, err := capture.QueueStats(openQueue())
	if err != nil {
		exitErr("capture stats", err)
	}

	if formatFlag == "text" {
		fmt.Printf("%d captured\n", stats.Total)
		for typ, n := range stats.ByType {
			fmt.Printf("  %s: %d\n", typ, n)
		}
		return
	}
	b, _ := json.Marshal(stats)
	fmt.Println(string(b))
}
