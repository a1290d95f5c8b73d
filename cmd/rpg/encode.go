package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpgraph/rpg/internal/encoder"
	"github.com/rpgraph/rpg/internal/feature"
	"github.com/rpgraph/rpg/internal/gitutil"
)

var encodeCmd = &cobra.Command{
	Use:   "encode [path]",
	Short: "Build a Repository Planning Graph from a repository working tree",
	Long: `encode walks the repository at path (default: current directory),
parses every supported source file, extracts semantic features, and
assembles a two-tier graph of directories, files, and entities connected
by containment and data-flow edges.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
}

func runEncode(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open graph store: %w", err)
	}
	defer store.Close()

	llm, err := openLLM(ctx, cfg)
	if err != nil {
		logger.WithError(err).Warn("llm client unavailable, features fall back to heuristics")
	}

	extractor := feature.New(featureMode(cfg), llm)
	repo := gitutil.Open(root)
	if !repo.IsRepo(ctx) {
		repo = nil
	}

	pipeline := encoder.New(openASTProvider(), extractor, store, cfg.Encoder, repo)

	result, err := pipeline.Encode(ctx, root)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	fmt.Printf("files processed:    %d\n", result.FilesProcessed)
	fmt.Printf("entities extracted: %d\n", result.EntitiesExtracted)
	fmt.Printf("duration:           %dms\n", result.DurationMs)
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}
