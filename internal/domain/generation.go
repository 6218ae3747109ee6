package domain

// GenerationRequest is the prompt handed to the text-generation backend.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	TopicTitle   string
	AccountName  string
}

// GeneratedDraft is what the text-generation backend returns.
type GeneratedDraft struct {
	Title   string
	Outline []string
	Content string
	Model   string
}
