package domain

// chat roles used in conversation transcripts
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a role-tagged message of a conversation transcript
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn is one exchange shown to the user
type Turn struct {
	User  string `json:"user"`
	Reply string `json:"reply"`
}
