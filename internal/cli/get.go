package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <memory-id>",
		Short: "Fetch one memory by id",
		Long:  "Fetch one memory by id, regardless of status. Deleted memories are visible here but never surface in recall.",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem, err := s.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}

	if formatFlag == "text" {
		fmt.Printf("%s [%s/%s] status %s\n%s\n", mem.ID, mem.TemporalLayer, mem.MemoryType, mem.Status, mem.Layer3)
		return
	}
	b, _ := json.Marshal(mem)
	fmt.Println(string(b))
}
