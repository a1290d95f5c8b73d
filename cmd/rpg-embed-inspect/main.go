// rpg-embed-inspect dumps an embeddings.jsonl file's header and entry
// ids/dimensions to stdout, for eyeballing an embedding dump without a
// full graph load.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/rpgraph/rpg/internal/embed"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <embeddings.jsonl>", os.Args[0])
	}
	path := os.Args[1]

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	doc, err := embed.Parse(f)
	if err != nil {
		log.Fatalf("parse %s: %v", path, err)
	}

	fmt.Printf("version:   %s\n", doc.Header.Version)
	fmt.Printf("provider:  %s\n", doc.Header.Config.Provider)
	fmt.Printf("model:     %s\n", doc.Header.Config.Model)
	fmt.Printf("dimension: %d\n", doc.Header.Config.Dimension)
	if doc.Header.Commit != "" {
		fmt.Printf("commit:    %s\n", doc.Header.Commit)
	}
	fmt.Printf("entries:   %d\n\n", len(doc.Entries))

	for _, e := range doc.Entries {
		fmt.Printf("%s\t%d components\n", e.ID, len(e.Vector))
	}
}
