package prompt

import (
	"context"
	"strings"

	"medconsult-be/internal/constant"
	"medconsult-be/pkg/rag/memory"
	"medconsult-be/pkg/store"
)

// SectionCharCap bounds every memory fragment and the file context, in characters.
const SectionCharCap = 500

const (
	labelMemory   = constant.ChatPromptLabelMemory
	labelFile     = constant.ChatPromptLabelFile
	labelQuestion = constant.ChatPromptLabelQuestion
)

// MemoryWindow is how many recent fragments each backend receives. The hosted
// model gets the most recall, the local model the smallest context.
func MemoryWindow(b store.Backend) int {
	switch b {
	case store.BackendOpenAI:
		return 10
	case store.BackendLocal:
		return 1
	default:
		return 2
	}
}

// Assembled is the outgoing user turn plus what went into it.
type Assembled struct {
	Content   string // becomes the user Message content
	Question  string // raw question, echoed to the client
	Fragments []memory.Fragment
}

// Assembler composes a turn's user message from memory, file and question.
type Assembler struct {
	source memory.Source
}

func NewAssembler(source memory.Source) *Assembler {
	return &Assembler{source: source}
}

func (a *Assembler) Assemble(ctx context.Context, backend store.Backend, artifact, question string) Assembled {
	fragments := a.source.Recent(ctx, MemoryWindow(backend))

	var prompt strings.Builder
	writeMemory(&prompt, fragments)
	writeFileContext(&prompt, artifact)
	writeQuestion(&prompt, question)

	return Assembled{
		Content:   prompt.String(),
		Question:  question,
		Fragments: fragments,
	}
}

func writeMemory(prompt *strings.Builder, fragments []memory.Fragment) {
	prompt.WriteString(labelMemory)
	prompt.WriteString("\n")
	for i, f := range fragments {
		if i > 0 {
			prompt.WriteString("\n")
		}
		prompt.WriteString(Truncate(f.Text, SectionCharCap))
	}
	prompt.WriteString("\n")
}

func writeFileContext(prompt *strings.Builder, artifact string) {
	if artifact == "" {
		return
	}
	prompt.WriteString(labelFile)
	prompt.WriteString("\n")
	prompt.WriteString(Truncate(artifact, SectionCharCap))
	prompt.WriteString("\n")
}

func writeQuestion(prompt *strings.Builder, question string) {
	prompt.WriteString(labelQuestion)
	prompt.WriteString("\n")
	prompt.WriteString(question)
}

// Truncate keeps at most n runes of s.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
