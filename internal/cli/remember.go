package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/agentmem/tempora/internal/engine"
	"github.com/agentmem/tempora/internal/model"
	"github.com/agentmem/tempora/internal/queue"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content]",
		Short: "Store a memory",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin. Falls back to the offline queue when the store is unreachable.",
		Run:   runRemember,
	}

	cmd.Flags().StringP("agent", "a", "default", "Agent name")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	cmd.Flags().StringP("layer", "l", "working", "Temporal layer: working, short, long, archive")
	cmd.Flags().Int("ttl", 0, "TTL in hours (working layer only, default 2)")
	cmd.Flags().String("domain", "", "Domain: self, user, projects, system, general")
	cmd.Flags().String("type", "", "Memory type (classified from content when omitted)")
	cmd.Flags().Float64("importance", 0, "Importance score in [0,1] (default 0.5)")
	cmd.Flags().String("source", "manual", "Source type")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("agent")
	tagsStr, _ := cmd.Flags().GetString("tags")
	layer, _ := cmd.Flags().GetString("layer")
	ttl, _ := cmd.Flags().GetInt("ttl")
	domain, _ := cmd.Flags().GetString("domain")
	memType, _ := cmd.Flags().GetString("type")
	importance, _ := cmd.Flags().GetFloat64("importance")
	source, _ := cmd.Flags().GetString("source")

	content := readContent(args)
	if strings.TrimSpace(content) == "" {
		exitErr("remember", fmt.Errorf("content is required (positional arg or stdin)"))
	}
	content = strings.TrimSpace(content)
	tags := splitTags(tagsStr)

	eng, s, err := openEngine(true)
	if err != nil {
		// Store or embedder unavailable: buffer the write instead of losing it.
		q := openQueue()
		if qerr := q.Enqueue(queue.Record{
			Content:       content,
			Domain:        domain,
			TemporalLayer: layer,
			TTLHours:      ttl,
			Tags:          tags,
		}); qerr != nil {
			exitErr("remember", fmt.Errorf("store unavailable (%v) and queue failed: %w", err, qerr))
		}
		log.Printf("[queue] store unavailable, buffered to %s: %v", q.Path(), err)
		fmt.Println(`{"queued": true}`)
		return
	}
	defer s.Close()

	mem, err := eng.Remember(cmd.Context(), engine.RememberParams{
		Content:         content,
		AgentName:       agent,
		Tags:            tags,
		SourceType:      source,
		ImportanceScore: importance,
		MemoryType:      memType,
		TemporalLayer:   model.TemporalLayer(layer),
		TTLHours:        ttl,
		Domain:          domain,
	})
	if err != nil {
		exitErr("remember", err)
	}

	if formatFlag == "text" {
		fmt.Printf("stored %s [%s/%s] %s\n", mem.ID, mem.TemporalLayer, mem.MemoryType, mem.Layer1)
		return
	}
	b, _ := json.Marshal(mem)
	fmt.Println(string(b))
}

// readContent takes the positional args, falling back to piped stdin.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
