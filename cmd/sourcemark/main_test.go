package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/sourcemark/pkg/config"
	"github.com/polisai/sourcemark/pkg/domain"
)

const policyText = "Eligibility\nApplicants must be\n  at least 18 years old.\n"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file="))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHighlightCmd_Text(t *testing.T) {
	doc := writeFile(t, "policy.txt", policyText)

	out, err := execute(t, "highlight", "--document", doc, "--excerpt", "Applicants must be at least 18 years old.")
	require.NoError(t, err)
	assert.Equal(t, "Eligibility\n[[Applicants must be\n  at least 18 years old.]]\n", out)
}

func TestHighlightCmd_Lines(t *testing.T) {
	doc := writeFile(t, "policy.txt", policyText)

	out, err := execute(t, "highlight", "-d", doc, "-e", "at least 18", "--format", "lines")
	require.NoError(t, err)
	assert.Equal(t, "1 | Eligibility\n2 | Applicants must be\n3 |   [[at least 18]] years old.\n4 | \n", out)
}

func TestHighlightCmd_JSON(t *testing.T) {
	doc := writeFile(t, "policy.txt", policyText)
	excerpt := writeFile(t, "excerpt.txt", "APPLICANTS must be\nat least")

	out, err := execute(t, "highlight", "-d", doc, "--excerpt-file", excerpt, "-f", "json")
	require.NoError(t, err)

	var res highlightResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, domain.TierWhitespace, res.Tier)
	require.NotNil(t, res.Span)
	assert.Equal(t, "Applicants must be\n  at least", res.Matched)
	assert.Equal(t, policyText, domain.Join(res.Segments))
}

func TestHighlightCmd_NotFound(t *testing.T) {
	doc := writeFile(t, "policy.txt", policyText)

	out, err := execute(t, "highlight", "-d", doc, "-e", "unrelated nonsense xyz", "--color")
	require.NoError(t, err)
	assert.Equal(t, policyText, out)
	assert.NotContains(t, out, "\x1b[")
}

func TestHighlightCmd_Errors(t *testing.T) {
	doc := writeFile(t, "policy.txt", policyText)

	_, err := execute(t, "highlight", "-d", doc, "-e", "x", "-f", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = execute(t, "highlight", "-e", "x")
	assert.Error(t, err, "document flag is required")

	_, err = execute(t, "highlight", "-d", filepath.Join(t.TempDir(), "missing.txt"), "-e", "x")
	assert.ErrorContains(t, err, "failed to read")

	_, err = execute(t, "highlight", "-d", doc, "-e", "x", "--excerpt-file", doc)
	assert.Error(t, err)
}

func TestHighlightCmd_StdinReadOnce(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(policyText))
	cmd.SetArgs([]string{"highlight", "-d", "-", "--excerpt-file", "-", "--env-file="})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "cannot both read standard input")

	out.Reset()
	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(policyText))
	cmd.SetArgs([]string{"highlight", "-d", "-", "-e", "at least 18", "--env-file="})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "[[at least 18]]")
}

func TestDiffCmd(t *testing.T) {
	before := writeFile(t, "v1.md", "intro\n```kraken\nRule \"A\" {}\n```\n")
	after := writeFile(t, "v2.md", "changed intro\n```kraken\nRule \"B\" {}\n```\n")

	out, err := execute(t, "diff", before, after, "--kraken")
	require.NoError(t, err)
	assert.Equal(t, "   1 - Rule \"A\" {}\n   1 + Rule \"B\" {}\n   2   \n1 added, 1 removed, 1 unchanged\n", out)

	out, err = execute(t, "diff", before, after, "-f", "json")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `"summary"`))
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "sourcemark version dev\n", out)
}

func TestBuildConfig_FlagOverrides(t *testing.T) {
	path := writeFile(t, "sourcemark.yaml", "server:\n  port: 9000\nlogging:\n  level: info\n")

	loader, cfg, err := buildConfig(&ServeOptions{Config: path, Port: 9100, LogLevel: "DEBUG"})
	require.NoError(t, err)
	require.NotNil(t, loader)
	first := loader
	t.Cleanup(func() { _ = first.Close() })
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Flag overrides apply to a copy; the loader keeps the file's snapshot as its baseline.
	baseline := loader.Current()
	require.NotNil(t, baseline)
	assert.Equal(t, 9000, baseline.Server.Port)
	assert.Equal(t, "info", baseline.Logging.Level)

	loader, cfg, err = buildConfig(&ServeOptions{})
	require.NoError(t, err)
	assert.Nil(t, loader)
	assert.Equal(t, config.Default().Server.Port, cfg.Server.Port)

	_, _, err = buildConfig(&ServeOptions{LogLevel: "chatty"})
	assert.ErrorIs(t, err, domain.ErrConfigInvalid)
}

func TestLoadEnvFile(t *testing.T) {
	const key = "SOURCEMARK_TEST_DOTENV_VALUE"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := writeFile(t, ".env", key+"=from-dotenv\n")
	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-dotenv", os.Getenv(key))

	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
	assert.NoError(t, loadEnvFile(""))
}
