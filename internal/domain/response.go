package domain

// ToolName identifies the backend tool that produced a ToolOutput.
type ToolName string

const (
	ToolGeneratePairings ToolName = "generate_pairings"
	ToolGenerateImage    ToolName = "generate_image"
	ToolAdjustRecipe     ToolName = "adjust_recipe"
	ToolCreateRecipe     ToolName = "create_recipe"
	ToolOther            ToolName = "other"
)

// ParseToolName maps a wire tool name onto a known ToolName.
func ParseToolName(s string) ToolName {
	switch ToolName(s) {
	case ToolGeneratePairings, ToolGenerateImage, ToolAdjustRecipe, ToolCreateRecipe:
		return ToolName(s)
	}
	return ToolOther
}

// ReplacesRecipe reports whether the output replaces the recipe panel.
func (t ToolName) ReplacesRecipe() bool {
	return t == ToolAdjustRecipe || t == ToolCreateRecipe
}

// Supplementary reports whether the output goes to the supplementary panel.
func (t ToolName) Supplementary() bool {
	return t == ToolGeneratePairings || t == ToolGenerateImage
}

// ToolOutput is a structured sub-result returned alongside a chat message.
type ToolOutput struct {
	ToolName ToolName `json:"toolName"`
	RawName  string   `json:"rawName,omitempty"`
	Payload  string   `json:"payload"`
}

// ChatResponse is a reconciled backend reply.
type ChatResponse struct {
	Message     string       `json:"message"`
	ThreadID    string       `json:"threadId"`
	SessionID   string       `json:"sessionId"`
	ToolOutputs []ToolOutput `json:"toolOutputs"`
}
