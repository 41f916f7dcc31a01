package models

// Problem is one contest challenge. Sessions receive value copies so no
// session can mutate the catalog's entry.
type Problem struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Examples    []Example `json:"examples" yaml:"examples"`
	Constraints string    `json:"constraints" yaml:"constraints"`
	Difficulty  string    `json:"difficulty" yaml:"difficulty"`
	StarterCode string    `json:"starter_code" yaml:"starter_code"`
}

// Example is a worked input/output pair shown to players.
type Example struct {
	Input       string `json:"input" yaml:"input"`
	Output      string `json:"output" yaml:"output"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Copy returns a deep copy of the problem.
func (p Problem) Copy() Problem {
	out := p
	out.Examples = make([]Example, len(p.Examples))
	copy(out.Examples, p.Examples)
	return out
}
