package job

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRJAPPS/CBruteLib/internal/engine"
	"github.com/MRJAPPS/CBruteLib/internal/subset"
)

func TestLoad_YAML(t *testing.T) {
	j, err := Load("testdata/pin.yaml")
	require.NoError(t, err)

	assert.Equal(t, "pin", j.Name)
	assert.Equal(t, ModeSimple, j.Definition.Mode)
	assert.Equal(t, 4, j.Threads)
	assert.Equal(t, 3, j.Retries, "schema default")
	assert.Equal(t, engine.Window{Start: 1, End: 0}, j.Window())

	s, err := j.Space()
	require.NoError(t, err)
	assert.Equal(t, int64(10000), s.Max())

	pos, err := s.PositionOf([]string{"4", "8", "2", "1"})
	require.NoError(t, err)
	match := j.Matcher()
	c, err := s.CandidateAt(pos)
	require.NoError(t, err)
	assert.True(t, match(engine.Generated[string]{Candidate: c, Position: pos}))
	assert.False(t, match(engine.Generated[string]{Candidate: []string{"0", "0", "0", "0"}}))
}

func TestLoad_CUE(t *testing.T) {
	j, err := Load("testdata/structured.cue")
	require.NoError(t, err)

	assert.Equal(t, ModeStructured, j.Definition.Mode)
	assert.Equal(t, 1, j.Threads, "schema default")
	assert.Equal(t, 20*time.Millisecond, j.Poll())
	assert.Equal(t, 1000.0, j.RateLimit)
	require.Len(t, j.Definition.Slots, 2)
	assert.Equal(t, Slot{Index: -1, Alphabet: "x,y"}, j.Definition.Slots[1])

	s, err := j.Space()
	require.NoError(t, err)
	// Length 3: 3*10*2, length 4: 3*10*10*2.
	assert.Equal(t, int64(60+600), s.Max())

	first, err := s.CandidateAt(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "0", "x"}, first)
	assert.True(t, j.Matcher()(engine.Generated[string]{Candidate: []string{"B", "5", "x"}}))
	assert.Len(t, j.Options(nil), 5)
}

func TestLoad_FileAlphabetRelativeToJob(t *testing.T) {
	j, err := Load("testdata/words.yaml")
	require.NoError(t, err)
	assert.Equal(t, "testdata", j.Dir())

	s, err := j.Space()
	require.NoError(t, err)
	// 3 + 3*2 + 3*2*1
	assert.Equal(t, int64(15), s.Max())
	assert.True(t, j.Matcher()(engine.Generated[string]{Candidate: []string{"blue", "red"}}))
	assert.Len(t, j.Options(nil), 2, "no retries configured")
}

func TestDecode_SchemaRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing space", "threads: 2\n"},
		{"missing alphabet", "space: {max: 3}\n"},
		{"empty alphabet", "space: {alphabet: '', max: 3}\n"},
		{"max below min", "space: {alphabet: 'a,b', min: 4, max: 3}\n"},
		{"zero min", "space: {alphabet: 'a,b', min: 0, max: 3}\n"},
		{"unknown mode", "space: {mode: fancy, alphabet: 'a', max: 1}\n"},
		{"unknown field", "space: {alphabet: 'a', max: 1}\ncolour: red\n"},
		{"zero threads", "space: {alphabet: 'a', max: 1}\nthreads: 0\n"},
		{"window start zero", "space: {alphabet: 'a', max: 1}\nwindow: {start: 0}\n"},
		{"negative rate", "space: {alphabet: 'a', max: 1}\nrate_limit: -1\n"},
		{"bad duration", "space: {alphabet: 'a', max: 1}\npoll_interval: 5 seconds\n"},
		{"slots without structured", "space: {alphabet: 'a', max: 1, slots: [{index: 0, alphabet: b}]}\n"},
		{"structured without slots", "space: {mode: structured, alphabet: 'a', max: 1}\n"},
		{"timeout outside permutation", "space: {alphabet: 'a', max: 1, subset_timeout: 1s}\n"},
		{"not yaml", "space: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode("job.yaml", []byte(tt.doc))
			require.Error(t, err)
			var jerr *Error
			assert.ErrorAs(t, err, &jerr)
			assert.Equal(t, "job.yaml", jerr.File)
		})
	}
}

func TestDecode_Defaults(t *testing.T) {
	j, err := Decode("job.yaml", []byte("space: {alphabet: 'a,b', max: 2}\n"))
	require.NoError(t, err)
	assert.Equal(t, Definition{Mode: ModeSimple, Alphabet: "a,b", Min: 1, Max: 2}, j.Definition)
	assert.Equal(t, Bounds{Start: 1, End: 0}, j.Bounds)
	assert.Equal(t, 1, j.Threads)
	assert.Equal(t, "", j.Separator)
	assert.Zero(t, j.Poll())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefinition_BuildErrors(t *testing.T) {
	_, err := Definition{Mode: ModeSimple, Alphabet: "a,a", Min: 1, Max: 2}.Build("")
	assert.ErrorContains(t, err, "already given")

	_, err = Definition{Mode: ModePermutation, Alphabet: "a,b", Min: 1, Max: 3}.Build("")
	assert.True(t, engine.IsValidationError(err))

	_, err = Definition{Mode: ModeStructured, Alphabet: "a,b", Min: 2, Max: 2, Slots: []Slot{
		{Index: 0, Alphabet: "x"}, {Index: -2, Alphabet: "y"},
	}}.Build("")
	code, ok := engine.ValidationCode(err)
	require.True(t, ok)
	assert.Equal(t, engine.ErrCodeAmbiguousSlots, code)

	s, err := Definition{Mode: ModeStructured, Alphabet: "a,b", Min: 2, Max: 2, TolerateAmbiguity: true, Slots: []Slot{
		{Index: 0, Alphabet: "x"}, {Index: -2, Alphabet: "y"},
	}}.Build("")
	require.NoError(t, err)
	c, err := s.CandidateAt(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "a"}, c)

	_, err = Definition{Mode: ModeStructured, Alphabet: "a", Min: 1, Max: 1, Slots: []Slot{{Index: 0, Alphabet: ""}}}.Build("")
	assert.ErrorContains(t, err, "slot 0")
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(0, &engine.PanicError{Value: "x"}))
	assert.False(t, Retryable(0, &engine.ValidationError{Code: engine.ErrCodeInvalidWindow}))
	assert.False(t, Retryable(1, &subset.TimeoutError{N: 30, K: 8, Timeout: time.Millisecond}))
	assert.False(t, Retryable(0, &engine.FaultError{Subsystem: "cursor", Message: "cursor exhausted"}))
	assert.False(t, Retryable(0, fmt.Errorf("worker 2: %w", &engine.FaultError{Subsystem: "cursor"})))
}
