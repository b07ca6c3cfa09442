package models

// Model represents a Claude model capability level.
type Model string

const (
	// ModelOpus is the most capable model, used for strategy and architecture agents.
	ModelOpus Model = "opus"
	// ModelSonnet is the balanced model and the registry-wide default.
	ModelSonnet Model = "sonnet"
	// ModelHaiku is the lightweight, fast model for simple agents.
	ModelHaiku Model = "haiku"
)

// Valid returns true if the model is a known value.
func (m Model) Valid() bool {
	switch m {
	case ModelOpus, ModelSonnet, ModelHaiku:
		return true
	default:
		return false
	}
}

// Full Claude model identifiers, used when building executor command lines.
// Routing state always stores the short names.
const (
	modelIDHaiku  = "claude-3-5-haiku-20241022"
	modelIDSonnet = "claude-sonnet-4-20250514"
	modelIDOpus   = "claude-opus-4-5-20251101"
)

// ID returns the full Claude model identifier for a short model name.
// Unknown models resolve to the sonnet identifier.
func (m Model) ID() string {
	switch m {
	case ModelOpus:
		return modelIDOpus
	case ModelHaiku:
		return modelIDHaiku
	default:
		return modelIDSonnet
	}
}
