package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(strings.NewReader(stdin))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chainz.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const testConfig = `
log:
  level: warn
  format: json
pipelines:
  slug: 'TrimSpace.ToLower.Fields.Join("-")'
  Initial: 'name.Slice(0, 1).ToUpper.fallback("?")'
`

func TestEval(t *testing.T) {
	t.Run("Input Flag", func(t *testing.T) {
		out, err := execute(t, "", "eval", "--input", `"  Hello World "`, `TrimSpace.ToLower.Fields.Join("-")`)
		require.NoError(t, err)
		assert.Equal(t, "\"hello-world\"\n", out)
	})

	t.Run("Stdin", func(t *testing.T) {
		out, err := execute(t, `{"items": ["a", "b", "c"]}`, "eval", "items.Reverse.Join(\",\")")
		require.NoError(t, err)
		assert.Equal(t, "\"c,b,a\"\n", out)
	})

	t.Run("Numbers", func(t *testing.T) {
		out, err := execute(t, "", "eval", "-i", "123", `Exponential.ToUpper.Replace("+", "")`)
		require.NoError(t, err)
		assert.Equal(t, "\"1.23E02\"\n", out)
	})

	t.Run("Nullish Result Prints Null", func(t *testing.T) {
		out, err := execute(t, "", "eval", "-i", `{"user": null}`, "user.name")
		require.NoError(t, err)
		assert.Equal(t, "null\n", out)
	})

	t.Run("Each Element", func(t *testing.T) {
		out, err := execute(t, "", "eval", "--each", "-w", "2", "-i", `["a b", null, "c"]`, `Fields.Join("_").fallback("")`)
		require.NoError(t, err)
		assert.Equal(t, "[\"a_b\",\"\",\"c\"]\n", out)
	})

	t.Run("Each Requires Array", func(t *testing.T) {
		_, err := execute(t, "", "eval", "--each", "-i", `"a"`, "ToUpper")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--each requires a JSON array input")
	})

	t.Run("Fallback", func(t *testing.T) {
		out, err := execute(t, "", "eval", "-i", `{"user": null}`, `user.name.fallback("anonymous")`)
		require.NoError(t, err)
		assert.Equal(t, "\"anonymous\"\n", out)
	})

	t.Run("Empty Input Is Nil", func(t *testing.T) {
		out, err := execute(t, "", "eval", `fallback(0)`)
		require.NoError(t, err)
		assert.Equal(t, "0\n", out)
	})

	t.Run("Verbose Still Prints Result", func(t *testing.T) {
		out, err := execute(t, "", "eval", "-v", "-i", `"x"`, `Repeat("n").fallback("y")`)
		require.NoError(t, err)
		assert.Equal(t, "\"y\"\n", out)
	})

	t.Run("Syntax Error", func(t *testing.T) {
		_, err := execute(t, "", "eval", "-i", `"x"`, `ToUpper(`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid pipeline expression")
	})

	t.Run("Protected Name", func(t *testing.T) {
		_, err := execute(t, "", "eval", "-i", `"x"`, `ToUpper.run`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reserved")
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		_, err := execute(t, "", "eval", "-i", `{`, `ToUpper`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JSON input")
	})
}

func TestRun(t *testing.T) {
	path := writeConfig(t, testConfig)

	t.Run("Named Pipeline", func(t *testing.T) {
		out, err := execute(t, "", "--config", path, "run", "slug", "-i", `" A  Big Deal "`)
		require.NoError(t, err)
		assert.Equal(t, "\"a-big-deal\"\n", out)
	})

	t.Run("Names Are Case Insensitive", func(t *testing.T) {
		out, err := execute(t, "", "--config", path, "run", "initial", "-i", `{"name": "ada"}`)
		require.NoError(t, err)
		assert.Equal(t, "\"A\"\n", out)

		out, err = execute(t, "", "--config", path, "run", "INITIAL", "-i", `{}`)
		require.NoError(t, err)
		assert.Equal(t, "\"?\"\n", out)
	})

	t.Run("Unknown Pipeline", func(t *testing.T) {
		_, err := execute(t, "", "--config", path, "run", "missing", "-i", `1`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown pipeline: missing")
	})

	t.Run("Invalid Pipeline In Config", func(t *testing.T) {
		bad := writeConfig(t, "pipelines:\n  broken: 'ToUpper('\n")
		_, err := execute(t, "", "--config", bad, "run", "broken", "-i", `1`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pipeline broken")
	})
}

func TestList(t *testing.T) {
	t.Run("Configured", func(t *testing.T) {
		out, err := execute(t, "", "--config", writeConfig(t, testConfig), "list")
		require.NoError(t, err)
		assert.Contains(t, out, "Configured pipelines:")
		assert.Contains(t, out, "slug")
		assert.Contains(t, out, `TrimSpace.ToLower.Fields.Join("-")`)
		assert.Less(t, strings.Index(out, "initial"), strings.Index(out, "slug"))
	})

	t.Run("Empty", func(t *testing.T) {
		out, err := execute(t, "", "list")
		require.NoError(t, err)
		assert.Equal(t, "No pipelines configured.\n", out)
	})
}

func TestSteps(t *testing.T) {
	out, err := execute(t, "", "steps", `TrimSpace.Split(" ")[0].fallback("none")`)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"0\tproperty\tTrimSpace",
		"1\tproperty\tSplit(\" \")",
		"2\tproperty\t[0]",
		"3\tfallback\tfallback(\"none\")",
	}, "\n")+"\n", out)
}

func TestNames(t *testing.T) {
	out, err := execute(t, "", "names")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, lines, "pipe")
	assert.Contains(t, lines, "fallback")
	assert.Contains(t, lines, "toFunction")
	assert.Len(t, lines, 9)
}

func TestBench(t *testing.T) {
	out, err := execute(t, "", "bench", "--time", "20x", "-i", `"a b"`, `Split(" ")`)
	require.NoError(t, err)
	assert.Contains(t, out, `Split(" ")`)
	assert.Contains(t, out, "ns/op")
}

func TestConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := loadConfig(viper.New(), "")
		require.NoError(t, err)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "console", cfg.Log.Format)
		assert.Empty(t, cfg.Pipelines)
	})

	t.Run("File", func(t *testing.T) {
		cfg, err := loadConfig(viper.New(), writeConfig(t, testConfig))
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.Log.Level)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Len(t, cfg.Pipelines, 2)
	})

	t.Run("Environment Overrides File", func(t *testing.T) {
		t.Setenv("CHAINZ_LOG_LEVEL", "debug")
		cfg, err := loadConfig(viper.New(), writeConfig(t, testConfig))
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("Invalid Level", func(t *testing.T) {
		t.Setenv("CHAINZ_LOG_LEVEL", "loud")
		_, err := loadConfig(viper.New(), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log.level")
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := loadConfig(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("Flag Overrides Environment", func(t *testing.T) {
		t.Setenv("CHAINZ_LOG_LEVEL", "loud")
		_, err := execute(t, "", "--log-level", "error", "names")
		require.NoError(t, err)
	})
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("step", "Split").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"step":"Split"`)
}
