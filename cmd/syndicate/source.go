package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/scamshield/syndicate/pkg/store"
	"github.com/scamshield/syndicate/pkg/ui"
)

// sourceFlags select where the graph document comes from.
type sourceFlags struct {
	file    string
	network bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read the graph from a JSON file instead of the API")
	cmd.Flags().BoolVar(&f.network, "network", false, "use the analytics network-graph endpoint")
	cmd.MarkFlagsMutuallyExclusive("file", "network")
}

// resolve builds the document source. st may be nil for file sources.
func (f *sourceFlags) resolve(ctx context.Context, a *app, st *store.Store) (ui.Source, error) {
	if f.file != "" {
		return ui.FileSource{Path: f.file}, nil
	}
	client, err := a.newClient(ctx, st)
	if err != nil {
		return nil, err
	}
	return ui.BackendSource{Client: client, Network: f.network}, nil
}
