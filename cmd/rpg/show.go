package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rpgraph/rpg/internal/graphmodel"
	"github.com/rpgraph/rpg/internal/graphstore"
)

var (
	showNodeID string
	showExport string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Inspect the contents of a graph",
	Long: `show prints a summary of the configured graph store, or with
--node inspects a single node and its immediate neighbors. With
--export, the full graph is written as JSON to the given path instead.`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showNodeID, "node", "", "print this node and its neighbors instead of a summary")
	showCmd.Flags().StringVar(&showExport, "export", "", "write the full graph as JSON to this path")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open graph store: %w", err)
	}
	defer store.Close()

	if showExport != "" {
		return exportGraph(ctx, store, showExport)
	}
	if showNodeID != "" {
		return showNode(ctx, store, showNodeID)
	}
	return showSummary(ctx, store)
}

func exportGraph(ctx context.Context, store graphstore.Store, path string) error {
	data, err := store.Export(ctx)
	if err != nil {
		return fmt.Errorf("export graph: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("wrote %d nodes, %d edges to %s\n", len(data.Nodes), len(data.Edges), path)
	return nil
}

func showNode(ctx context.Context, store graphstore.Store, id string) error {
	node, ok, err := store.GetNode(ctx, id)
	if err != nil {
		return fmt.Errorf("get node %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("node %s not found", id)
	}

	fmt.Printf("id:          %s\n", node.ID)
	fmt.Printf("kind:        %s\n", node.Kind)
	fmt.Printf("description: %s\n", node.Feature.Description)
	if node.HighLevel != nil {
		fmt.Printf("directory:   %s\n", node.HighLevel.DirectoryPath)
	}
	if node.LowLevel != nil {
		fmt.Printf("entity type: %s\n", node.LowLevel.EntityType)
		fmt.Printf("path:        %s\n", node.LowLevel.Path)
		fmt.Printf("lines:       %d-%d\n", node.LowLevel.StartLine, node.LowLevel.EndLine)
	}

	parents, err := store.GetNeighbors(ctx, id, graphstore.DirIn, nil)
	if err != nil {
		return fmt.Errorf("get parents of %s: %w", id, err)
	}
	fmt.Printf("\nparents (%d):\n", len(parents))
	for _, p := range parents {
		fmt.Printf("  %s\n", p.ID)
	}

	children, err := store.GetNeighbors(ctx, id, graphstore.DirOut, nil)
	if err != nil {
		return fmt.Errorf("get children of %s: %w", id, err)
	}
	fmt.Printf("\nchildren (%d):\n", len(children))
	for _, c := range children {
		fmt.Printf("  %s\n", c.ID)
	}
	return nil
}

func showSummary(ctx context.Context, store graphstore.Store) error {
	data, err := store.Export(ctx)
	if err != nil {
		return fmt.Errorf("export graph: %w", err)
	}

	var highLevel, lowLevel, functional, dependency int
	for _, n := range data.Nodes {
		if n.HighLevel != nil {
			highLevel++
		} else {
			lowLevel++
		}
	}
	for _, e := range data.Edges {
		if e.Kind == graphmodel.EdgeFunctional {
			functional++
		} else {
			dependency++
		}
	}

	fmt.Printf("nodes: %d (%d directories, %d entities)\n", len(data.Nodes), highLevel, lowLevel)
	fmt.Printf("edges: %d (%d functional, %d dependency)\n", len(data.Edges), functional, dependency)
	return nil
}
