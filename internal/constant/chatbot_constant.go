package constant

const (
	// First message of every transcript, restored on backend reset.
	ChatSystemPrompt = "You are a helpful medical assistant. Always provide clear, accurate, and empathetic responses to user queries."

	// Section labels of the assembled user turn, in order.
	ChatPromptLabelMemory   = "[Short Memory]"
	ChatPromptLabelFile     = "[File Context]"
	ChatPromptLabelQuestion = "[User Question]"

	// Shown instead of memory when the chunk store cannot be read.
	ChatMemoryErrorPrefix = "Error loading LightRAG chunks: "
)
