package harness

// Entry is one generated candidate.
type Entry struct {
	Position  int64  `json:"position"`
	Worker    int    `json:"worker"`
	Length    int    `json:"length"`
	Candidate string `json:"candidate"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates that every assertion held.
	Pass bool `json:"pass"`

	// Listing holds every generated candidate in position order.
	Listing []Entry `json:"listing"`

	// Threads is the effective worker count.
	Threads int `json:"threads"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Listing: []Entry{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
