package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speller/internal/archive/archivetest"
	"speller/internal/corrector"
	"speller/internal/speller"
	"speller/internal/userdict"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SPELLER_ARCHIVE", "")
	cmd := BuildCLI()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testArchive(t *testing.T) string {
	return archivetest.Write(t, "en", "the", "then", "they", "cat", "car", "card", "dog")
}

func TestBuildCLI(t *testing.T) {
	cmd := BuildCLI()

	assert.NotNil(t, cmd, "BuildCLI should return a non-nil command")
	assert.Equal(t, "speller", cmd.Use)

	commandNames := make(map[string]bool)
	for _, c := range cmd.Commands() {
		commandNames[c.Name()] = true
	}
	for _, name := range []string{"build", "info", "check", "suggest", "tokenize", "serve", "try"} {
		assert.True(t, commandNames[name], "should have %q command", name)
	}

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	archiveFlag := cmd.PersistentFlags().Lookup("archive")
	require.NotNil(t, archiveFlag)
	assert.Equal(t, "a", archiveFlag.Shorthand)
}

func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(list, []byte("# english\nthe\ncat\t0.5\ncar\n"), 0o600))
	out := filepath.Join(dir, "en.zhfst")

	stdout, err := execute(t, "", "build", "-o", out, "--locale", "en", "--title", "English", list)
	require.NoError(t, err)
	assert.Contains(t, stdout, "(3 words)")

	stdout, err = execute(t, "", "info", "-a", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "locale: en")
	assert.Contains(t, stdout, "en: English")

	stdout, err = execute(t, "", "suggest", "-a", out, "cat")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cat: correct")
	assert.Contains(t, stdout, "  cat\t0\n")

	// word weights still rank corrections
	stdout, err = execute(t, "", "suggest", "-a", out, "cst")
	require.NoError(t, err)
	assert.Contains(t, stdout, "  cat\t1.1\n")
}

func TestBuildCommandErrors(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "en.zhfst")

	_, err := execute(t, "", "build", "--locale", "en")
	assert.ErrorContains(t, err, "output")

	_, err = execute(t, "cat\tlots\n", "build", "-o", out, "--locale", "en")
	assert.ErrorContains(t, err, "bad weight")

	_, err = execute(t, "", "build", "-o", out, "--locale", "en")
	assert.ErrorContains(t, err, "empty word list")
	assert.NoFileExists(t, out)
}

func TestSuggestCommand(t *testing.T) {
	path := testArchive(t)

	stdout, err := execute(t, "", "suggest", "-a", path, "-n", "1", "teh")
	require.NoError(t, err)
	assert.Equal(t, "teh: incorrect\n  the\t1\n", stdout)

	stdout, err = execute(t, "", "suggest", "-a", path, "--json", "-n", "1", "teh")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"value":"the","weight":1}]`, strings.TrimSpace(stdout))

	stdout, err = execute(t, "", "suggest", "-a", path, "--max-weight", "0", "teh")
	require.NoError(t, err)
	assert.Equal(t, "teh: incorrect\n", stdout)

	_, err = execute(t, "", "suggest", "-a", path)
	assert.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	path := testArchive(t)

	stdout, err := execute(t, "teh cat\n", "check", "-a", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "0:3\tteh\tthe"), stdout)
	assert.Contains(t, stdout, "2 words, 1 misspelled")

	stdout, err = execute(t, "", "check", "-a", path, "--json", "the", "dog")
	require.NoError(t, err)
	assert.JSONEq(t, `{"original":"the dog","corrected":"the dog","words":2,"misspellings":[]}`, strings.TrimSpace(stdout))
}

func TestTokenizeCommand(t *testing.T) {
	stdout, err := execute(t, "", "tokenize", "Hello, world")
	require.NoError(t, err)
	assert.Equal(t, "0\t5\tword\t\"Hello\"\n5\t6\tpunctuation\t\",\"\n7\t12\tword\t\"world\"\n", stdout)

	stdout, err = execute(t, "a b", "tokenize", "--all")
	require.NoError(t, err)
	assert.Contains(t, stdout, "whitespace")
}

func TestMissingArchive(t *testing.T) {
	_, err := execute(t, "", "info")
	assert.ErrorContains(t, err, "archive path is required")

	_, err = execute(t, "", "info", "-a", filepath.Join(t.TempDir(), "missing.zhfst"))
	assert.ErrorContains(t, err, "unreadable")

	_, err = execute(t, "", "info", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to load config")
}

func TestTryLineMode(t *testing.T) {
	path := testArchive(t)

	stdout, err := execute(t, "teh\n\nthe dgo\n", "try", "-a", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.True(t, strings.HasPrefix(lines[0], `["teh" | the | `), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "  teh -> the, "), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], `["dgo" | dog`), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "  dgo -> dog"), lines[3])
}

func TestLastWord(t *testing.T) {
	assert.Equal(t, "wor", lastWord("hello wor"))
	assert.Equal(t, "", lastWord("hello "))
	assert.Equal(t, "", lastWord(""))
	assert.Equal(t, "don't", lastWord("I don't"))
}

func newTestModel(t *testing.T) *tryModel {
	t.Helper()
	sp, err := speller.Open(testArchive(t))
	require.NoError(t, err)
	t.Cleanup(func() { sp.Close() })
	sc := corrector.NewSpellCorrector(corrector.DefaultConfig(), sp, userdict.NewMemory(), nil)
	return newTryModel(context.Background(), sc)
}

func TestTryModel(t *testing.T) {
	m := newTestModel(t)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("teh")})
	assert.Equal(t, "teh", m.input.Value())
	require.NotEmpty(t, m.banner)
	assert.Equal(t, corrector.SourceTyped, m.banner[0].Source)
	assert.Equal(t, "the", m.banner[1].Value)
	require.Len(t, m.check.Misspellings, 1)
	assert.Contains(t, m.View(), "teh")

	// tab takes the first suggestion
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "the ", m.input.Value())
	assert.Empty(t, m.check.Misspellings)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
