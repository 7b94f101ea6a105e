package main

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the intelligence API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			client, err := a.newClient(cmd.Context(), st)
			if err != nil {
				return err
			}
			h, err := client.Health(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s: %s\n", client.BaseURL(), h.Status)
			if h.Orchestrator != "" {
				fmt.Fprintf(w, "  orchestrator: %s\n", h.Orchestrator)
			}
			for _, group := range []struct {
				name string
				m    map[string]string
			}{{"providers", h.AIProviders}, {"agents", h.Agents}} {
				keys := make([]string, 0, len(group.m))
				for k := range group.m {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(w, "  %s/%s: %s\n", group.name, k, group.m[k])
				}
			}
			if !h.Healthy() {
				return errors.Newf("backend reports %q", h.Status)
			}
			return nil
		},
	}
}
