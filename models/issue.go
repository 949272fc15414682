package models

// IssueKind is the finding category reported by the review engine.
// Categories outside the known set are kept verbatim.
type IssueKind string

const (
	KindSpelling      IssueKind = "Spelling"
	KindGrammar       IssueKind = "Grammar"
	KindLogicMismatch IssueKind = "LogicMismatch"
)

// Known reports whether k is one of the categories the engine is asked to emit.
func (k IssueKind) Known() bool {
	switch k {
	case KindSpelling, KindGrammar, KindLogicMismatch:
		return true
	default:
		return false
	}
}

// Issue is a single finding. SourcePage is stamped by the aggregator, never
// by the review engine.
type Issue struct {
	Kind         IssueKind `csv:"category" json:"category"`
	Description  string    `csv:"issue" json:"issue"`
	SuggestedFix string    `csv:"fix" json:"fix"`
	Location     string    `csv:"location" json:"location"`
	SourcePage   string    `csv:"source_page" json:"source_page"`
}
