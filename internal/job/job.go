package job

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Modes accepted in Definition.Mode.
const (
	ModeSimple      = "simple"
	ModeStructured  = "structured"
	ModePermutation = "permutation"
)

// Slot overrides the alphabet of one candidate slot. A negative Index counts
// from the end.
type Slot struct {
	Index    int    `json:"index" yaml:"index"`
	Alphabet string `json:"alphabet" yaml:"alphabet"`
}

// Definition describes a candidate space. Alphabets are alphabet expressions.
type Definition struct {
	Mode              string `json:"mode" yaml:"mode"`
	Alphabet          string `json:"alphabet" yaml:"alphabet"`
	Min               int    `json:"min" yaml:"min"`
	Max               int    `json:"max" yaml:"max"`
	Exclude           []int  `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Slots             []Slot `json:"slots,omitempty" yaml:"slots,omitempty"`
	TolerateAmbiguity bool   `json:"tolerate_ambiguity,omitempty" yaml:"tolerate_ambiguity,omitempty"`
	SubsetTimeout     string `json:"subset_timeout,omitempty" yaml:"subset_timeout,omitempty"`
}

// Bounds is the window of a job. End 0 means the last position.
type Bounds struct {
	Start int64 `json:"start" yaml:"start"`
	End   int64 `json:"end" yaml:"end"`
}

// Job is one enumeration run.
type Job struct {
	Name         string     `json:"name,omitempty"`
	Definition   Definition `json:"space"`
	Bounds       Bounds     `json:"window"`
	Threads      int        `json:"threads"`
	Targets      []string   `json:"targets,omitempty"`
	Separator    string     `json:"separator"`
	PollInterval string     `json:"poll_interval,omitempty"`
	RateLimit    float64    `json:"rate_limit,omitempty"`
	Burst        int        `json:"burst,omitempty"`
	Retries      int        `json:"retries"`

	// dir resolves relative @file alphabet items.
	dir string
}

// Error reports a job file that failed to load or validate.
type Error struct {
	File string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("job %s: %v", e.File, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Load reads a job from path. Files ending in .cue are CUE; anything else is
// read as YAML, which also covers JSON.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{File: path, Err: err}
	}
	j, err := Decode(path, data)
	if err != nil {
		return nil, err
	}
	j.dir = filepath.Dir(path)
	return j, nil
}

// Decode parses a job from data. name selects the format by extension and is
// used in error messages.
func Decode(name string, data []byte) (*Job, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling job schema: %w", err)
	}

	var v cue.Value
	if strings.EqualFold(filepath.Ext(name), ".cue") {
		v = ctx.CompileBytes(data, cue.Filename(name))
	} else {
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &Error{File: name, Err: err}
		}
		if doc == nil {
			doc = map[string]any{}
		}
		v = ctx.Encode(doc)
	}
	if err := v.Err(); err != nil {
		return nil, &Error{File: name, Err: flatten(err)}
	}

	v = schema.LookupPath(cue.ParsePath("#Job")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &Error{File: name, Err: flatten(err)}
	}

	var j Job
	if err := v.Decode(&j); err != nil {
		return nil, &Error{File: name, Err: err}
	}
	if err := j.check(); err != nil {
		return nil, &Error{File: name, Err: err}
	}
	return &j, nil
}

// flatten joins every CUE error into one line per problem.
func flatten(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) <= 1 {
		return err
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// check covers the rules the schema does not express.
func (j *Job) check() error {
	if j.PollInterval != "" {
		if _, err := time.ParseDuration(j.PollInterval); err != nil {
			return fmt.Errorf("poll_interval: %w", err)
		}
	}
	return j.Definition.check()
}

// Dir returns the directory relative @file alphabet items resolve against.
func (j *Job) Dir() string { return j.dir }

// Poll returns the pause poll interval, or zero for the default.
func (j *Job) Poll() time.Duration {
	d, _ := time.ParseDuration(j.PollInterval)
	return d
}
