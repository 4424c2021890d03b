package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRJAPPS/CBruteLib/internal/job"
)

func TestScenarios_Golden(t *testing.T) {
	for _, name := range []string{"simple_ab", "excluded", "structured", "permutation"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Window(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/window.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 2, result.Threads)

	workers := map[int]bool{}
	for _, e := range result.Listing {
		workers[e.Worker] = true
	}
	assert.Len(t, workers, 2)
}

func TestRun_ListingIndependentOfThreads(t *testing.T) {
	base := Scenario{
		Name:        "threads",
		Description: "same listing for any worker count",
		Space:       job.Definition{Alphabet: "a-c", Max: 4, Exclude: []int{2}},
		Assertions:  []Assertion{{Type: AssertCount, Count: 3 + 27 + 81}},
	}

	var want []byte
	for _, threads := range []int{1, 2, 5, 16} {
		s := base
		s.Threads = threads
		result, err := Run(&s)
		require.NoError(t, err)
		require.True(t, result.Pass, "threads=%d errors: %v", threads, result.Errors)

		got := FormatListing(result.Listing)
		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, string(want), string(got), "threads=%d", threads)
	}
}

func TestRun_FailedAssertions(t *testing.T) {
	s := &Scenario{
		Name:        "wrong",
		Description: "every assertion is false",
		Space:       job.Definition{Alphabet: "a,b", Max: 2},
		Assertions: []Assertion{
			{Type: AssertCount, Count: 7},
			{Type: AssertFirst, Candidate: "b"},
			{Type: AssertLast, Candidate: "aa"},
			{Type: AssertContains, Candidate: "zz"},
			{Type: AssertContains, Candidate: "ab", Position: 1},
			{Type: AssertAbsentLengths, Lengths: []int{2}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "Expected: 7 candidates")
	assert.Contains(t, result.Errors[1], "a at position 1")
	assert.Contains(t, result.Errors[3], "not found in listing")
	assert.Contains(t, result.Errors[4], "found at positions [4]")
	assert.Contains(t, result.Errors[5], "aa at position 3 has length 2")
}

func TestRun_BuildError(t *testing.T) {
	s := &Scenario{
		Name:        "bad",
		Description: "duplicate symbols",
		Space:       job.Definition{Alphabet: "a,a", Max: 1},
		Assertions:  []Assertion{{Type: AssertCount, Count: 1}},
	}
	_, err := Run(s)
	assert.ErrorContains(t, err, "failed to build space")
}

func TestLoadScenario_Errors(t *testing.T) {
	_, err := LoadScenario("testdata/broken/typo.yaml")
	assert.ErrorContains(t, err, "failed to parse YAML")

	_, err = LoadScenario("testdata/missing.yaml")
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestValidateScenario(t *testing.T) {
	valid := func() Scenario {
		return Scenario{
			Name:        "ok",
			Description: "d",
			Space:       job.Definition{Alphabet: "a", Max: 1},
			Assertions:  []Assertion{{Type: AssertCount, Count: 1}},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Scenario)
		msg    string
	}{
		{"no name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"no description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"no alphabet", func(s *Scenario) { s.Space.Alphabet = "" }, "space.alphabet"},
		{"negative threads", func(s *Scenario) { s.Threads = -1 }, "threads"},
		{"no assertions", func(s *Scenario) { s.Assertions = nil }, "assertions list"},
		{"unknown type", func(s *Scenario) { s.Assertions[0].Type = "maybe" }, "unknown assertion type"},
		{"first without candidate", func(s *Scenario) { s.Assertions[0] = Assertion{Type: AssertFirst} }, "candidate is required"},
		{"absent without lengths", func(s *Scenario) { s.Assertions[0] = Assertion{Type: AssertAbsentLengths} }, "lengths list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			assert.ErrorContains(t, validateScenario(&s), tt.msg)
		})
	}

	s := valid()
	assert.NoError(t, validateScenario(&s))
}

func TestAssertionError_TruncatesListing(t *testing.T) {
	entries := make([]Entry, 20)
	for i := range entries {
		entries[i] = Entry{Position: int64(i + 1), Candidate: string(rune('a' + i))}
	}
	msg := (&AssertionError{Type: AssertCount, Expected: "1", Actual: "20", Listing: entries}).Error()

	assert.Contains(t, msg, "Listing (20 candidates)")
	assert.Contains(t, msg, "[5] e")
	assert.NotContains(t, msg, "[6] f")
	assert.Contains(t, msg, "[16] p")
	assert.Contains(t, msg, "...")
}
