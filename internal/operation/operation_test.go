package operation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashrun/kash/internal/store/storepath"
)

func mustPath(t *testing.T, s string) storepath.Path {
	t.Helper()
	p, err := storepath.Parse(s)
	require.NoError(t, err)
	return p
}

func TestOperation_AsStr(t *testing.T) {
	op := Operation{
		Action: "summarize",
		Args: []Input{
			{Path: mustPath(t, "docs/a.md"), Hash: "sha1:aaa"},
			{Path: mustPath(t, "docs/b.md"), Hash: "sha1:bbb"},
		},
		Options: map[string]string{"model": "gpt-4", "temperature": "0.2"},
	}
	assert.Equal(t,
		"summarize(docs/a.md@sha1:aaa,docs/b.md@sha1:bbb;model=gpt-4,temperature=0.2)",
		op.AsStr(),
	)
}

func TestOperation_AsStr_OptionsSortedByKey(t *testing.T) {
	op := Operation{
		Action:  "noop",
		Options: map[string]string{"z": "1", "a": "2", "m": "3"},
	}
	assert.Equal(t, "noop(;a=2,m=3,z=1)", op.AsStr())
}

func TestOperation_AsStr_NoArgsNoOptions(t *testing.T) {
	op := Operation{Action: "list"}
	assert.Equal(t, "list()", op.AsStr())
}

func TestParse_RoundTrip(t *testing.T) {
	cases := []Operation{
		{Action: "list"},
		{Action: "extract", Args: []Input{{Path: mustPath(t, "concepts/x.md"), Hash: "sha1:111"}}},
		{
			Action:  "transform",
			Args:    []Input{{Path: mustPath(t, "docs/y.md"), Hash: "sha1:222"}},
			Options: map[string]string{"format": "markdown"},
		},
	}
	for _, op := range cases {
		s := op.AsStr()
		parsed, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, parsed.AsStr())
	}
}

func TestParse_InvalidForms(t *testing.T) {
	bad := []string{
		"",
		"nofunc",
		"bad name(with space)(arg@hash)",
		"summarize(docs/a.md)",       // missing @hash
		"summarize(;opt)",            // missing =value
		"9startswithdigit()",
	}
	for _, s := range bad {
		_, err := Parse(s)
		assert.Error(t, err, "input: %q", s)
	}
}

func TestInput_Equal(t *testing.T) {
	a := Input{Path: mustPath(t, "docs/a.md"), Hash: "sha1:xyz"}
	b := Input{Path: mustPath(t, "docs/other.md"), Hash: "sha1:xyz"}
	c := Input{Path: mustPath(t, "docs/a.md"), Hash: "sha1:different"}

	assert.True(t, a.Equal(b), "same hash, different path, still equal")
	assert.False(t, a.Equal(c), "different hash must not be equal")
}

func TestSource_Matches(t *testing.T) {
	op := Operation{Action: "summarize", Args: []Input{{Path: mustPath(t, "docs/a.md"), Hash: "sha1:111"}}}
	src := Source{Operation: op, OutputIndex: 0, Cacheable: true}

	same := Operation{Action: "summarize", Args: []Input{{Path: mustPath(t, "docs/a.md"), Hash: "sha1:111"}}}
	assert.True(t, src.Matches(same))

	different := Operation{Action: "summarize", Args: []Input{{Path: mustPath(t, "docs/a.md"), Hash: "sha1:222"}}}
	assert.False(t, src.Matches(different))
}
