// Command lizardcli is the thin admin CLI surface named in §6 ("out of
// core" for full semantics; kept here scoped to the commands that only need
// the status HTTP surface pkg/statusapi exposes: chunks-health and
// list-goals). Grounded on the teacher repo's cmd/siac for the cobra
// root-command-plus-subcommands layout.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var (
	masterHost string
	porcelain  bool
)

func main() {
	root := &cobra.Command{
		Use:   "lizardcli <master-ip> <master-port>",
		Short: "Query a LizardFS master's chunk-health status surface",
	}
	root.PersistentFlags().BoolVar(&porcelain, "porcelain", false, "machine-readable whitespace-separated output")

	chunksHealth := &cobra.Command{
		Use:   "chunks-health <master-ip> <master-port>",
		Short: "Report availability state for every known goal",
		Args:  cobra.ExactArgs(2),
		RunE:  runChunksHealth,
	}
	listGoals := &cobra.Command{
		Use:   "list-goals <master-ip> <master-port>",
		Short: "List every goal the master currently tracks",
		Args:  cobra.ExactArgs(2),
		RunE:  runListGoals,
	}
	root.AddCommand(chunksHealth, listGoals)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fetchJSON(host, port, path string, out interface{}) error {
	resp, err := http.Get(fmt.Sprintf("http://%s:%s%s", host, port, path))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func runChunksHealth(cmd *cobra.Command, args []string) error {
	var reports map[string]struct {
		FullCopies      int    `json:"FullCopies"`
		RedundancyLevel int    `json:"RedundancyLevel"`
		State           int    `json:"State"`
	}
	if err := fetchJSON(args[0], args[1], "/goals", &reports); err != nil {
		os.Exit(2)
		return err
	}
	for name, r := range reports {
		if porcelain {
			fmt.Printf("%s %d %d %d\n", name, r.FullCopies, r.RedundancyLevel, r.State)
		} else {
			fmt.Printf("goal %s: full_copies=%d redundancy=%d state=%d\n", name, r.FullCopies, r.RedundancyLevel, r.State)
		}
	}
	return nil
}

func runListGoals(cmd *cobra.Command, args []string) error {
	var reports map[string]json.RawMessage
	if err := fetchJSON(args[0], args[1], "/goals", &reports); err != nil {
		os.Exit(2)
		return err
	}
	for name := range reports {
		fmt.Println(name)
	}
	return nil
}
