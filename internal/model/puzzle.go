package model

// Puzzle is a static lateral-thinking puzzle owned by the content repository.
// This service only ever reads puzzles.
type Puzzle struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Hint       string `json:"hint"`
	FullAnswer string `json:"full_answer,omitempty"`
	// Parts are the sub-clues used for partial credit. Optional; when empty
	// the evaluator treats the answer as all-or-nothing.
	Parts []string `json:"parts,omitempty"`
}

// PublicView returns the puzzle with the answer key and sub-clues withheld,
// safe to send to a player who has not solved it.
func (p *Puzzle) PublicView() *Puzzle {
	return &Puzzle{
		ID:      p.ID,
		Title:   p.Title,
		Content: p.Content,
		Hint:    p.Hint,
	}
}
