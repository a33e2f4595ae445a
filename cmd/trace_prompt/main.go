package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"medconsult-be/internal/config"
	"medconsult-be/internal/pkg/logger"
	"medconsult-be/pkg/rag/memory"
	"medconsult-be/pkg/rag/prompt"
	"medconsult-be/pkg/store"
	"medconsult-be/pkg/upload"

	"github.com/fatih/color"
)

// trace_prompt prints the exact user turn a backend would receive, without
// calling any model. Useful to check the chunk store and the caps.
func main() {
	backendFlag := flag.String("backend", "openai", "openai | local | lightrag")
	fileFlag := flag.String("file", "", "optional document to attach as file context")
	storeFlag := flag.String("chunks", "", "chunk store path (defaults to LIGHTRAG_CHUNKS_PATH)")
	flag.Parse()

	question := strings.Join(flag.Args(), " ")
	if question == "" {
		color.Red("usage: trace_prompt [-backend b] [-file f] <question>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		color.Red("config: %v", err)
		os.Exit(1)
	}
	backend, err := store.ParseBackend(*backendFlag)
	if err != nil {
		color.Red("%v", err)
		os.Exit(2)
	}

	chunksPath := cfg.LightRAG.ChunksPath
	if *storeFlag != "" {
		chunksPath = *storeFlag
	}

	var artifact string
	if *fileFlag != "" {
		data, err := os.ReadFile(*fileFlag)
		if err != nil {
			color.Red("read file: %v", err)
			os.Exit(1)
		}
		doc, err := upload.Decode(*fileFlag, data)
		if err != nil {
			color.Red("decode file: %v", err)
			os.Exit(1)
		}
		color.Yellow("File %s decoded as %s (%s)", doc.Name, doc.Encoding, doc.MIME)
		artifact = doc.Content
	}

	source := memory.NewFileSource(chunksPath, logger.NewNopLogger())
	assembled := prompt.NewAssembler(source).Assemble(context.Background(), backend, artifact, question)

	color.Cyan("Backend: %s   memory window: %d   store: %s", backend, prompt.MemoryWindow(backend), chunksPath)
	for i, f := range assembled.Fragments {
		if f.Diagnostic {
			color.Red("fragment %d is a diagnostic: %s", i+1, f.Text)
		}
	}
	fmt.Println()
	fmt.Println(assembled.Content)
	fmt.Println()
	color.Green("%d fragments, %d runes total", len(assembled.Fragments), len([]rune(assembled.Content)))
}
