package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentmem/tempora/internal/engine"
	"github.com/agentmem/tempora/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Search memories by semantic similarity",
		Long:  "Semantic search over active memories, ranked by temporal-weighted cosine similarity.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRecall,
	}

	cmd.Flags().StringP("agent", "a", "default", "Agent name")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags (any match)")
	cmd.Flags().String("type", "", "Filter by memory type")
	cmd.Flags().String("domain", "", "Filter by domain")
	cmd.Flags().String("layers", "", "Comma-separated temporal layers (default: working,short,long)")
	cmd.Flags().Int("max-layer", 2, "Detail layer to return: 1, 2 or 3")
	cmd.Flags().IntP("limit", "n", 10, "Maximum results")
	cmd.Flags().Float64("min-score", 0, "Minimum weighted similarity")
	cmd.Flags().Bool("include-archive", false, "Include the archive layer")

	RootCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("agent")
	tagsStr, _ := cmd.Flags().GetString("tags")
	memType, _ := cmd.Flags().GetString("type")
	domain, _ := cmd.Flags().GetString("domain")
	layersStr, _ := cmd.Flags().GetString("layers")
	maxLayer, _ := cmd.Flags().GetInt("max-layer")
	limit, _ := cmd.Flags().GetInt("limit")
	minScore, _ := cmd.Flags().GetFloat64("min-score")
	includeArchive, _ := cmd.Flags().GetBool("include-archive")

	var layers []model.TemporalLayer
	if layersStr != "" {
		for _, l := range strings.Split(layersStr, ",") {
			layers = append(layers, model.TemporalLayer(strings.TrimSpace(l)))
		}
	}

	eng, s, err := openEngine(true)
	if err != nil {
		exitErr("open engine", err)
	}
	defer s.Close()

	results, err := eng.Recall(cmd.Context(), engine.RecallParams{
		Query:          strings.Join(args, " "),
		AgentName:      agent,
		Tags:           splitTags(tagsStr),
		MemoryType:     memType,
		Domain:         domain,
		Layers:         layers,
		MaxLayer:       maxLayer,
		Limit:          limit,
		MinScore:       minScore,
		IncludeArchive: includeArchive,
	})
	if err != nil {
		exitErr("recall", err)
	}

	if formatFlag == "text" {
		if len(results) == 0 {
			fmt.Println("no matches")
			return
		}
		for _, r := range results {
			fmt.Printf("%.3f [%s/%s] %s  %s\n", r.Similarity, r.TemporalLayer, r.MemoryType, r.ID, r.Content)
		}
		return
	}
	b, _ := json.Marshal(results)
	fmt.Println(string(b))
}
