package driven

// Prompt names used by the chat service.
const (
	// PromptSystemRAG is the system line for retrieval-grounded answers.
	PromptSystemRAG = "system_rag"

	// PromptSystemLoRA is the system line for the fine-tuned feature.
	PromptSystemLoRA = "system_lora"

	// PromptContext wraps the retrieved context at ContextPlaceholder.
	PromptContext = "context"
)

// ContextPlaceholder marks where retrieved passages go in the context
// prompt. The template is not a format string.
const ContextPlaceholder = "%s"

// PromptStore loads user-editable prompt templates.
type PromptStore interface {
	// Load returns the template for name, falling back to a built-in default.
	Load(name string) (string, error)
}
