package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/identity"
	"pdfchat/internal/model"
	"pdfchat/internal/platform/sqldb"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestChunkPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	text := strings.Repeat("Goroutines are cheap. ", 40)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))

	out, err := run(t, "", "chunk", "--size", "200", "--overlap", "20", "--json", path)
	require.NoError(t, err)

	var chunks []string
	require.NoError(t, json.Unmarshal([]byte(out), &chunks))
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 200)
	}
}

func TestParseQuizFromStdin(t *testing.T) {
	var reply strings.Builder
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&reply, "Q%d: Question %d?\nA) one\nB) two\nC) three\nD) four\nCorrect: D\n\n", i, i)
	}
	out, err := run(t, reply.String(), "parse-quiz")
	require.NoError(t, err)

	var questions []model.QuizQuestion
	require.NoError(t, json.Unmarshal([]byte(out), &questions))
	require.Len(t, questions, 5)
	assert.Equal(t, "D", questions[4].Correct)
}

func TestParseFlashcardsRejectsTooFew(t *testing.T) {
	_, err := run(t, "Front: A\nBack: B\n", "parse-flashcards")
	require.Error(t, err)

	out, err := run(t, "Front: A\nBack: B\n", "parse-flashcards", "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, `"front": "A"`)
}

func TestUserAddAndPasswd(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "users.db")

	out, err := run(t, "", "user", "add", "--dialect", "sqlite", "--dsn", dsn,
		"--email", "Reader@Example.com", "--password", "first-secret")
	require.NoError(t, err)
	assert.Contains(t, out, "<reader@example.com>")

	_, err = run(t, "", "user", "add", "--dialect", "sqlite", "--dsn", dsn,
		"--email", "reader@example.com", "--password", "first-secret")
	require.ErrorIs(t, err, identity.ErrEmailExists)

	_, err = run(t, "", "user", "passwd", "--dialect", "sqlite", "--dsn", dsn,
		"--email", "reader@example.com", "--password", "second-secret")
	require.NoError(t, err)

	db, err := sqldb.Open(context.Background(), "sqlite", dsn)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	ok, err := identity.NewSQLProvider(db).VerifyCredentials(context.Background(), "reader@example.com", "second-secret")
	require.NoError(t, err)
	assert.True(t, ok)
}
