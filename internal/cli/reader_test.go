package cli

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain line", input: "hello\n", want: "hello"},
		{name: "trims whitespace", input: "  hello  \n", want: "hello"},
		{name: "empty line", input: "\n", want: ""},
		{name: "windows line ending", input: "hello\r\n", want: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewNonBlockingReader(strings.NewReader(tt.input))
			got, err := r.ReadLine(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadLine_EOF(t *testing.T) {
	r := NewNonBlockingReader(strings.NewReader(""))
	_, err := r.ReadLine(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadLine_SequentialReads(t *testing.T) {
	r := NewNonBlockingReader(strings.NewReader("one\ntwo\nthree\n"))

	for _, want := range []string{"one", "two", "three"} {
		got, err := r.ReadLine(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := r.ReadLine(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadLine_ContextCancellation(t *testing.T) {
	// A pipe with no writer blocks forever; cancellation must win.
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()
	defer func() { _ = pr.Close() }()

	r := NewNonBlockingReader(pr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ReadLine(ctx)
	assert.ErrorIs(t, err, ErrInputCancelled)
}

func TestNewNonBlockingReader_NilPanics(t *testing.T) {
	assert.Panics(t, func() { NewNonBlockingReader(nil) })
}
