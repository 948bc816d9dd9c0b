// Package mcp exposes the smart building knowledge base as MCP tools.
package mcp

// AnswerQuestionInput defines the input parameters for the answer_question tool.
type AnswerQuestionInput struct {
	Query string `json:"query" jsonschema:"The building management question to answer"`
}

// AnswerQuestionOutput contains the synthesized answer.
type AnswerQuestionOutput struct {
	Answer string `json:"answer"`
}

// SearchKnowledgeInput defines the input parameters for the search_knowledge tool.
type SearchKnowledgeInput struct {
	Query string `json:"query" jsonschema:"Text to search the knowledge base for"`
	// MaxResults is the maximum number of chunks to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"Maximum number of chunks to return (1-20, default 5)"`
}

// SearchKnowledgeOutput contains the retrieved chunks.
type SearchKnowledgeOutput struct {
	Results []SearchResult `json:"results"`
	// Ranked is false when the active storage tier cannot rank by similarity,
	// in which case distances are placeholders.
	Ranked  bool   `json:"ranked"`
	Message string `json:"message,omitempty"`
}

// SearchResult represents a single retrieved chunk.
type SearchResult struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Source   string         `json:"source"`
	Distance float64        `json:"distance"`
	Metadata map[string]any `json:"metadata"`
}

// IngestSourceInput defines the input parameters for the ingest_source tool.
type IngestSourceInput struct {
	Source string `json:"source" jsonschema:"Local file path or http(s) URL to add"`
	Type   string `json:"type,omitempty" jsonschema:"Document type for files or category for URLs"`
}

// IngestSourceOutput reports the ingestion outcome.
type IngestSourceOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Chunks  int    `json:"chunks"`
}

// TrainFromWebInput defines the input parameters for the train_from_web tool.
type TrainFromWebInput struct {
	URLs     []string `json:"urls,omitempty" jsonschema:"URLs to ingest; the built-in building management list is used when empty"`
	Category string   `json:"category,omitempty" jsonschema:"Category recorded on every chunk (default building_management)"`
}

// TrainFromWebOutput summarises a web training run.
type TrainFromWebOutput struct {
	SuccessfulURLs []string `json:"successful_urls"`
	FailedURLs     []string `json:"failed_urls"`
	Errors         []string `json:"errors"`
	TotalChunks    int      `json:"total_chunks"`
	Summary        string   `json:"summary"`
}

// StatsInput takes no parameters.
type StatsInput struct{}

// StatsOutput describes the knowledge base contents and active storage tier.
type StatsOutput struct {
	TotalChunks    int    `json:"total_chunks"`
	WebChunks      int    `json:"web_chunks"`
	LocalChunks    int    `json:"local_chunks"`
	TrainingChunks int    `json:"training_chunks"`
	UniqueSources  int    `json:"unique_sources"`
	Tier           string `json:"tier"`
	TierLetter     string `json:"tier_letter"`
}
