package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentmem/tempora/internal/config"
	"github.com/agentmem/tempora/internal/sleep"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "sleep",
		Short: "Run the consolidation cycle",
		Long:  "Review expired memories in LLM batches and apply promote/extend/archive/delete decisions. Requires ANTHROPIC_API_KEY unless --dry-run is given with nothing pending.",
		Run:   runSleep,
	}

	cmd.Flags().StringP("agent", "a", "default", "Agent name")
	cmd.Flags().Int("batch-size", 0, "Memories per LLM call (default 20)")
	cmd.Flags().IntP("limit", "n", 0, "Maximum memories to review (default 200)")
	cmd.Flags().String("model", "", "Anthropic model (default claude-3-5-haiku)")
	cmd.Flags().Bool("dry-run", false, "Report decisions without applying them")

	RootCmd.AddCommand(cmd)
}

func runSleep(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("agent")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	limit, _ := cmd.Flags().GetInt("limit")
	model, _ := cmd.Flags().GetString("model")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg := config.Load()
	if model == "" {
		model = cfg.Sleep.Model
	}
	if batchSize == 0 {
		batchSize = cfg.Sleep.BatchSize
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		exitErr("sleep", fmt.Errorf("ANTHROPIC_API_KEY is not set"))
	}

	eng, s, err := openEngine(false)
	if err != nil {
		exitErr("open engine", err)
	}
	defer s.Close()

	res, err := sleep.New(eng, sleep.NewAnthropicReviewer(model)).Run(cmd.Context(), sleep.Options{
		AgentName: agent,
		Limit:     limit,
		BatchSize: batchSize,
		DryRun:    dryRun,
	})
	if err != nil {
		exitErr("sleep", err)
	}

	if formatFlag == "text" {
		fmt.Printf("reviewed %d: %d promoted, %d extended, %d archived, %d forgotten, %d skipped\n",
			res.Total, res.Promoted, res.Extended, res.Archived, res.Forgotten, res.Skipped)
		return
	}
	b, _ := json.Marshal(res)
	fmt.Println(string(b))
}
