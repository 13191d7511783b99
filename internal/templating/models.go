package templating

// Built-in template names
const (
	CheckableTypePrompt = "checkable_type"
	EvidencePrompt      = "evidence"
	VerdictPrompt       = "verdict"
)

// PromptData is the data every fact-check prompt is rendered with
type PromptData struct {
	Statement      string
	Context        string
	AdditionalInfo string
	Today          string
}
