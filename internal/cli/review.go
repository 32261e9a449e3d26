package cli

import (
	"encoding/json"
	"fmt"

	"github.com/agentmem/tempora/internal/lifecycle"
	"github.com/agentmem/tempora/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Inspect and decide on memories awaiting review",
	}

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "List memories awaiting a lifecycle decision",
		Run:   runReviewPending,
	}
	pendingCmd.Flags().StringP("agent", "a", "default", "Agent name")
	pendingCmd.Flags().IntP("limit", "n", 50, "Maximum memories to list")

	decideCmd := &cobra.Command{
		Use:   "decide <memory-id> <promote|extend|archive|delete>",
		Short: "Apply one lifecycle decision",
		Args:  cobra.ExactArgs(2),
		Run:   runReviewDecide,
	}
	decideCmd.Flags().String("layer", "", "Target layer for promote (default long)")
	decideCmd.Flags().Int("ttl", 0, "TTL in hours for extend (default 168 for short, 24 otherwise)")
	decideCmd.Flags().String("reason", "", "Reason recorded in the review log")

	logCmd := &cobra.Command{
		Use:   "log <memory-id>",
		Short: "Show the lifecycle history of one memory",
		Args:  cobra.ExactArgs(1),
		Run:   runReviewLog,
	}

	reviewCmd.AddCommand(pendingCmd, decideCmd, logCmd)
	RootCmd.AddCommand(reviewCmd)
}

func runReviewPending(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("agent")
	limit, _ := cmd.Flags().GetInt("limit")

	eng, s, err := openEngine(false)
	if err != nil {
		exitErr("open engine", err)
	}
	defer s.Close()

	pending, total, err := eng.PendingReview(cmd.Context(), agent, limit)
	if err != nil {
		exitErr("review pending", err)
	}

	if formatFlag == "text" {
		fmt.Printf("%d pending (%d shown)\n", total, len(pending))
		for _, p := range pending {
			fmt.Printf("%s [%s] age %.0fh, idle %.0fh: %s\n",
				p.ID, p.TemporalLayer, p.AgeHours, p.HoursSinceAccess, p.Layer1)
		}
		return
	}
	b, _ := json.Marshal(map[string]any{"total": total, "memories": pending})
	fmt.Println(string(b))
}

func runReviewDecide(cmd *cobra.Command, args []string) {
	layer, _ := cmd.Flags().GetString("layer")
	ttl, _ := cmd.Flags().GetInt("ttl")
	reason, _ := cmd.Flags().GetString("reason")

	eng, s, err := openEngine(false)
	if err != nil {
		exitErr("open engine", err)
	}
	defer s.Close()

	res, err := eng.Decide(cmd.Context(), args[0], lifecycle.Request{
		Decision: lifecycle.Decision(args[1]),
		NewLayer: model.TemporalLayer(layer),
		TTLHours: ttl,
		Reason:   reason,
	})
	if err != nil {
		exitErr("review decide", err)
	}

	if formatFlag == "text" {
		fmt.Printf("%s: %s -> layer %s, status %s\n", res.MemoryID, res.Decision, res.NewLayer, res.Status)
		return
	}
	b, _ := json.Marshal(res)
	fmt.Println(string(b))
}

func runReviewLog(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	entries, err := s.ReviewLog(cmd.Context(), args[0])
	if err != nil {
		exitErr("review log", err)
	}

	if formatFlag == "text" {
		for _, e := range entries {
			fmt.Printf("%s %s %s: %s -> %s  %s\n",
				e.DecidedAt.Format("2006-01-02 15:04"), e.MemoryID, e.Decision, e.OldLayer, e.NewLayer, e.Reason)
		}
		return
	}
	b, _ := json.Marshal(entries)
	fmt.Println(string(b))
}
