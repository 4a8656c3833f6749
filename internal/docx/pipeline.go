package docx

import (
	"fmt"

	"github.com/insuredocs/docgen/internal/expr"
)

// State is the lifecycle stage of a Job.
type State int

const (
	StateLoaded State = iota
	StateParsed
	StateRendered
	StateSerialized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateParsed:
		return "parsed"
	case StateRendered:
		return "rendered"
	case StateSerialized:
		return "serialized"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Job drives one render of one template. Steps must be called in order;
// the first error moves the job to StateFailed and sticks.
type Job struct {
	state  State
	err    error
	pkg    *Package
	tmpl   *Template
	output *Output
	result []byte
}

// Load opens data and returns a job in StateLoaded.
func Load(data []byte) (*Job, error) {
	pkg, err := Open(data)
	if err != nil {
		return nil, err
	}
	return &Job{state: StateLoaded, pkg: pkg}, nil
}

// FromTemplate starts a job from an already parsed template.
func FromTemplate(t *Template) *Job {
	return &Job{state: StateParsed, pkg: t.pkg, tmpl: t}
}

func (j *Job) State() State { return j.state }

// Err returns the error that failed the job.
func (j *Job) Err() error { return j.err }

// Package returns the opened container.
func (j *Job) Package() *Package { return j.pkg }

func (j *Job) expect(s State) error {
	if j.state == StateFailed {
		return j.err
	}
	if j.state != s {
		return fmt.Errorf("docx: job is %s, want %s", j.state, s)
	}
	return nil
}

func (j *Job) fail(err error) error {
	j.state = StateFailed
	j.err = err
	j.output = nil
	j.result = nil
	return err
}

// Parse builds the instruction tree. Use ParseWith to share trees through
// a Cache.
func (j *Job) Parse() error {
	return j.ParseWith(nil, "")
}

// ParseWith parses through cache under templateID. A nil cache parses
// directly.
func (j *Job) ParseWith(cache *Cache, templateID string) error {
	if err := j.expect(StateLoaded); err != nil {
		return err
	}
	var (
		t   *Template
		err error
	)
	if cache != nil {
		t, err = cache.Get(templateID, j.pkg)
	} else {
		t, err = Parse(j.pkg)
	}
	if err != nil {
		return j.fail(err)
	}
	j.tmpl = t
	j.state = StateParsed
	return nil
}

// Render walks the tree against data.
func (j *Job) Render(data expr.Mapping, opts Options) error {
	if err := j.expect(StateParsed); err != nil {
		return err
	}
	out, err := j.tmpl.Execute(data, opts)
	if err != nil {
		return j.fail(err)
	}
	j.output = out
	j.state = StateRendered
	return nil
}

// Serialize produces the output container.
func (j *Job) Serialize() ([]byte, error) {
	if err := j.expect(StateRendered); err != nil {
		return nil, err
	}
	b, err := j.output.Bytes()
	if err != nil {
		return nil, j.fail(err)
	}
	j.result = b
	j.state = StateSerialized
	return b, nil
}

// Render runs a whole job over data without caching.
func Render(template []byte, data expr.Mapping, opts Options) ([]byte, error) {
	j, err := Load(template)
	if err != nil {
		return nil, err
	}
	if err := j.Parse(); err != nil {
		return nil, err
	}
	if err := j.Render(data, opts); err != nil {
		return nil, err
	}
	return j.Serialize()
}
