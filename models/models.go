package models

// Article is a scraped news article. Identity is the URL; articles are
// immutable once indexed.
type Article struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// Passage is a retrieval hit projected from an indexed article plus its
// cosine similarity score. Constructed per query, never stored.
type Passage struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Placeholder values used when an indexed payload is missing a field. A
// query must never fail just because a stored article is incomplete.
const (
	DefaultTitle = "Untitled"
	DefaultURL   = ""
	DefaultText  = "No content available"
)

// Turn roles within a conversation.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Turn is a single message in a session's conversation log. Append-only,
// stored in arrival order.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}
