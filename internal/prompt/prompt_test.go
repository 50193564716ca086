package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSelect verifies menu rendering, valid selections and fatal invalid input.
func TestSelect(t *testing.T) {
	t.Parallel()

	options := []Option{
		{Key: "1", Label: "first"},
		{Key: "2", Label: "second"},
	}

	var out bytes.Buffer

	p := New(strings.NewReader("2\n"), &out)

	choice, err := p.Select("Pick one", options)
	require.NoError(t, err)
	require.Equal(t, "2", choice)
	require.Contains(t, out.String(), "1) first")
	require.Contains(t, out.String(), "2) second")

	// Outside the option set, no retry.
	p = New(strings.NewReader("7\n"), &out)

	_, err = p.Select("Pick one", options)
	require.ErrorIs(t, err, ErrInvalidChoice)
}

// TestYesNo covers accepted spellings and rejection of anything else.
func TestYesNo(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"y\n":   true,
		"Yes\n": true,
		"n\n":   false,
		"NO\n":  false,
	}
	for input, want := range cases {
		p := New(strings.NewReader(input), &bytes.Buffer{})

		got, err := p.YesNo("Proceed?")
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	p := New(strings.NewReader("maybe\n"), &bytes.Buffer{})

	_, err := p.YesNo("Proceed?")
	require.ErrorIs(t, err, ErrInvalidChoice)
}

// TestLine checks trimming and the empty-answer error.
func TestLine(t *testing.T) {
	t.Parallel()

	p := New(strings.NewReader("  mydb  \n"), &bytes.Buffer{})

	answer, err := p.Line("Application name")
	require.NoError(t, err)
	require.Equal(t, "mydb", answer)

	p = New(strings.NewReader("\n"), &bytes.Buffer{})

	_, err = p.Line("Application name")
	require.Error(t, err)
}

// TestPasswordFallback ensures the non-TTY path reads a plain line.
func TestPasswordFallback(t *testing.T) {
	t.Parallel()

	p := New(strings.NewReader("s3cret\n"), &bytes.Buffer{})

	secret, err := p.Password("Password")
	require.NoError(t, err)
	require.Equal(t, "s3cret", secret)
}

// TestLineWithoutTrailingNewline accepts a final unterminated answer.
func TestLineWithoutTrailingNewline(t *testing.T) {
	t.Parallel()

	p := New(strings.NewReader("mydb"), &bytes.Buffer{})

	answer, err := p.Line("Application name")
	require.NoError(t, err)
	require.Equal(t, "mydb", answer)
}
