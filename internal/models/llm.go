package models

// ModelDescriptor identifies one configured LLM backend. The roster is a
// static list ordered by Priority, preferred model first.
type ModelDescriptor struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	ContextWindow int    `json:"context_window"`
	Priority      int    `json:"priority"`
}

// LLMResponse is the raw text a model returned for one batch, tagged with
// the model that produced it and the originating batch index.
type LLMResponse struct {
	Model      ModelDescriptor `json:"model"`
	BatchIndex int             `json:"batch_index"`
	Content    string          `json:"content"`
}
