// Package kit holds the conversation and kit data model shared by the
// controller, the renderers and the sidebar: turns, the response payload
// variants, upstream item records and their canonical form.
package kit

// Role identifies who produced a Turn.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Turn is one message exchanged in the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest is the body of POST /generate. Style is the latest raw
// user text; History is sent verbatim as conversational context.
type GenerationRequest struct {
	Style   string `json:"style"`
	History []Turn `json:"history"`
}

// Kind tags a classified response payload.
type Kind int

const (
	KindFallback Kind = iota
	KindQuestions
	KindFinalKit
	KindComparison
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindQuestions:
		return "questions"
	case KindFinalKit:
		return "final_kit"
	case KindComparison:
		return "comparison"
	default:
		return "fallback"
	}
}

// Payload is the discriminated union produced by Classify.
type Payload interface {
	Kind() Kind
	isPayload()
}

// Questions is the clarification gate: the backend wants more details.
type Questions struct {
	Questions []string
}

// FinalKit is a finished kit. Items are kept raw and normalized at render time.
type FinalKit struct {
	Title    string    `json:"kit_title,omitempty"`
	Summary  string    `json:"summary,omitempty"`
	Sections []Section `json:"sections"`
}

// Section is a named group of items within a kit.
type Section struct {
	Name  string    `json:"name"`
	Items []RawItem `json:"items"`
}

// Comparison is a single product compared in detail.
type Comparison struct {
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	Description string   `json:"description"`
	Pros        []string `json:"pros"`
	Cons        []string `json:"cons"`
	BuyURL      string   `json:"buy_url"`
}

// Fallback covers every payload that matched no known tag.
type Fallback struct {
	Response    string
	HasResponse bool
}

func (Questions) Kind() Kind  { return KindQuestions }
func (FinalKit) Kind() Kind   { return KindFinalKit }
func (Comparison) Kind() Kind { return KindComparison }
func (Fallback) Kind() Kind   { return KindFallback }

func (Questions) isPayload()  {}
func (FinalKit) isPayload()   {}
func (Comparison) isPayload() {}
func (Fallback) isPayload()   {}

// RawItem is an item exactly as upstream sent it. Image and link each have
// two aliases depending on which backend stage produced the record.
type RawItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
	ImgURL      string `json:"img_url,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	BuyURL      string `json:"buy_url,omitempty"`
	Link        string `json:"link,omitempty"`
}

// Item is the canonical, always-displayable form of a RawItem.
type Item struct {
	Name        string
	Description string
	Price       string
	ImageURL    string
	BuyURL      string
}

// HistoryEntry is one persisted kit as listed by GET /history.
type HistoryEntry struct {
	ID      string
	KitName string
	HasName bool
}
