package models

// InsufficientContextMessage is returned when retrieval finds nothing relevant.
// The generation provider is never called in that case.
const InsufficientContextMessage = "I don't have enough context to answer that question."

// Answer is the result of one retrieval-and-generation round trip.
// ContextUsed holds the literal chunk texts supplied to the model, in
// descending-similarity order, so callers can audit grounding.
type Answer struct {
	Response    string   `json:"response"`
	ContextUsed []string `json:"contextUsed"`
	Grounded    bool     `json:"-"`
}

// InsufficientContextAnswer returns the distinguished "no context" result.
func InsufficientContextAnswer() *Answer {
	return &Answer{
		Response:    InsufficientContextMessage,
		ContextUsed: []string{},
		Grounded:    false,
	}
}
