package chain

import "github.com/vectoscalar/vsgpt/vector"

// Event is one item of an answer stream. Text fragments arrive in
// generation order and concatenate to the full answer; the source batch
// is emitted once and is not position-dependent relative to the text.
type Event interface {
	isEvent()
}

// TextFragment is a streamed partial answer.
type TextFragment struct {
	Content string `json:"content"`
}

// SourceBatch carries the retrieved passages backing the answer, for
// citation display.
type SourceBatch struct {
	Documents []vector.Document `json:"documents"`
}

// Failure terminates a stream whose language model became unreachable
// mid-generation. Fragments emitted before it remain valid.
type Failure struct {
	Err error `json:"-"`
}

func (TextFragment) isEvent() {}
func (SourceBatch) isEvent()  {}
func (Failure) isEvent()      {}
