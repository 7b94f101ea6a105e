package model

// ExtractedEntities groups the intelligence pulled out of a conversation
type ExtractedEntities struct {
	UPIIDs       []string `json:"upi_ids,omitempty"`
	PhoneNumbers []string `json:"phone_numbers,omitempty"`
	BankAccounts []string `json:"bank_accounts,omitempty"`
	Links        []string `json:"phishing_links,omitempty"`
}

// Count returns the total number of extracted entities
func (e ExtractedEntities) Count() int {
	return len(e.UPIIDs) + len(e.PhoneNumbers) + len(e.BankAccounts) + len(e.Links)
}

// Message is one turn of a honeypot conversation
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Conversation is a conversation record as returned by the history API
type Conversation struct {
	ConversationID    string            `json:"conversation_id"`
	ScamType          string            `json:"scam_type"`
	PersonaUsed       string            `json:"persona_used,omitempty"`
	TurnCount         int               `json:"turn_count"`
	RiskScore         float64           `json:"risk_score"`
	ConversationPhase string            `json:"conversation_phase,omitempty"`
	Status            string            `json:"status,omitempty"`
	ExtractedEntities ExtractedEntities `json:"extracted_entities"`
	Messages          []Message         `json:"messages,omitempty"`
	CreatedAt         string            `json:"created_at,omitempty"`
	UpdatedAt         string            `json:"updated_at,omitempty"`
}

// HighRisk mirrors the dashboard's red threshold for risk scores
func (c Conversation) HighRisk() bool {
	return c.RiskScore > HighRiskThreshold
}

// HighRiskThreshold is the risk score above which a conversation is flagged
const HighRiskThreshold = 0.7
