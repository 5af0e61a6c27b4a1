package store

// ActionKind names what a plan step asks for.
type ActionKind string

const (
	ActionCreateFile ActionKind = "create_file"
)

// Step represents a single file action in a plan.
type Step struct {
	Action  ActionKind `json:"action"`
	Path    string     `json:"path"`
	Content string     `json:"content"`
}

// Plan is the ordered sequence of steps produced for one iteration.
type Plan []Step

// Only returns the steps of the given kind, preserving order.
func (p Plan) Only(kind ActionKind) Plan {
	out := make(Plan, 0, len(p))
	for _, s := range p {
		if s.Action == kind {
			out = append(out, s)
		}
	}
	return out
}

// RunRecord is one persisted iteration. Timestamp is ISO-8601 UTC with a trailing Z.
type RunRecord struct {
	Timestamp string `json:"timestamp"`
	Goal      string `json:"goal"`
	Plan      Plan   `json:"plan"`
	Critique  string `json:"critique"`
}
