package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("write failed") }

func TestGetSimpleText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"line", "alice\n", "alice", false},
		{"trims spaces", "  bob  \r\n", "bob", false},
		{"eof after input", "carol", "carol", false},
		{"empty eof", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := GetSimpleText(bufio.NewReader(strings.NewReader(tt.input)), "Username", &out)
			if tt.wantErr {
				require.ErrorIs(t, err, io.EOF)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Username\n> ", out.String())
		})
	}
}

func TestGetSimpleText_WriteError(t *testing.T) {
	_, err := GetSimpleText(bufio.NewReader(strings.NewReader("x\n")), "p", errWriter{})
	require.Error(t, err)
}

func stubPassword(t *testing.T, answers ...[]byte) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(answers) {
			return nil, errors.New("no more input")
		}
		pw := answers[i]
		i++
		return pw, nil
	}
}

func TestGetPassword(t *testing.T) {
	stubPassword(t, []byte("s3cret"))

	var out bytes.Buffer
	pw, err := GetPassword("Enter password: ", &out)
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), pw)
	assert.Equal(t, "Enter password: \n", out.String())
}

func TestGetPassword_ReadError(t *testing.T) {
	stubPassword(t)

	var out bytes.Buffer
	pw, err := GetPassword("Enter password: ", &out)
	require.Error(t, err)
	assert.Nil(t, pw)
}
