package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentmem/tempora/internal/config"
	"github.com/agentmem/tempora/internal/queue"
	"github.com/spf13/cobra"
)

func init() {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the offline write buffer",
	}

	addCmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Buffer a memory write without touching the store",
		Args:  cobra.MinimumNArgs(1),
		Run:   runQueueAdd,
	}
	addCmd.Flags().String("domain", "", "Domain")
	addCmd.Flags().StringP("layer", "l", "working", "Temporal layer")
	addCmd.Flags().Int("ttl", 0, "TTL in hours")
	addCmd.Flags().StringP("tags", "t", "", "Comma-separated tags")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show buffered record count",
		Run:   runQueueStatus,
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Deliver buffered records to the store",
		Long:  "Deliver buffered records in order. Failed records stay buffered. Delivers to a remote API when --api-url or TEMPORA_API_URL is set, otherwise to the local store.",
		Run:   runQueueSync,
	}
	syncCmd.Flags().StringP("agent", "a", "default", "Agent name for local delivery")
	syncCmd.Flags().String("api-url", "", "Deliver to a remote memory API instead of the local store")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard all buffered records",
		Run:   runQueueClear,
	}

	queueCmd.AddCommand(addCmd, statusCmd, syncCmd, clearCmd)
	RootCmd.AddCommand(queueCmd)
}

func runQueueAdd(cmd *cobra.Command, args []string) {
	domain, _ := cmd.Flags().GetString("domain")
	layer, _ := cmd.Flags().GetString("layer")
	ttl, _ := cmd.Flags().GetInt("ttl")
	tagsStr, _ := cmd.Flags().GetString("tags")

	q := openQueue()
	r := queue.Record{
		Content:       strings.Join(args, " "),
		Domain:        domain,
		TemporalLayer: layer,
		TTLHours:      ttl,
		Tags:          splitTags(tagsStr),
	}
	if err := q.Enqueue(r); err != nil {
		exitErr("queue add", err)
	}

	n, _ := q.Count()
	if formatFlag == "text" {
		fmt.Printf("buffered (%d queued)\n", n)
		return
	}
	b, _ := json.Marshal(map[string]any{"queued": true, "count": n})
	fmt.Println(string(b))
}

func runQueueStatus(cmd *cobra.Command, args []string) {
	q := openQueue()
	n, err := q.Count()
	if err != nil {
		exitErr("queue status", err)
	}

	if formatFlag == "text" {
		fmt.Printf("%d buffered in %s\n", n, q.Path())
		return
	}
	b, _ := json.Marshal(map[string]any{"count": n, "file": q.Path()})
	fmt.Println(string(b))
}

func runQueueSync(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("agent")
	apiURL, _ := cmd.Flags().GetString("api-url")
	if apiURL == "" {
		apiURL = config.Load().APIURL
	}

	q := openQueue()

	var d queue.Deliverer
	if apiURL != "" {
		d = queue.NewHTTPDeliverer(apiURL)
	} else {
		eng, s, err := openEngine(true)
		if err != nil {
			exitErr("queue sync", err)
		}
		defer s.Close()
		d = &queue.EngineDeliverer{Engine: eng, AgentName: agent}
	}

	synced, failed, err := q.Sync(cmd.Context(), d)
	if err != nil {
		exitErr("queue sync", err)
	}

	if formatFlag == "text" {
		fmt.Printf("synced %d, %d still buffered\n", synced, len(failed))
		return
	}
	b, _ := json.Marshal(map[string]any{"synced": synced, "failed": len(failed)})
	fmt.Println(string(b))
}

func runQueueClear(cmd *cobra.Command, args []string) {
	q := openQueue()
	n, _ := q.Count()
	if err := q.Clear(); err != nil {
		exitErr("queue clear", err)
	}

	if formatFlag == "text" {
		fmt.Printf("discarded %d buffered records\n", n)
		return
	}
	b, _ := json.Marshal(map[string]any{"discarded": n})
	fmt.Println(string(b))
}
