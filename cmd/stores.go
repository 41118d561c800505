package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Builder-Lawyers/store-builder/internal/application/events"
	"github.com/spf13/cobra"
)

var redeployForce bool

var redeployCmd = &cobra.Command{
	Use:   "redeploy <store-id>",
	Short: "Regenerate and publish a store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseStoreID(args[0])
		if err != nil {
			return err
		}
		svc, err := wire(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		out := cmd.OutOrStdout()
		result, err := svc.collection.RedeployStore.Handle(cmd.Context(), id, redeployForce, func(p events.Progress) {
			fmt.Fprintf(out, "%3d%% %-16s %s\n", p.Percent, p.Step, p.Message)
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <store-id>",
	Short: "Tear down a store and remove its record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseStoreID(args[0])
		if err != nil {
			return err
		}
		svc, err := wire(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		result, err := svc.collection.DeleteStore.Handle(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

func init() {
	redeployCmd.Flags().BoolVar(&redeployForce, "force", false, "redeploy even when the store is already deployed")
}

func parseStoreID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid store id %q", arg)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
