package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/arpeggia/recordkeeper/internal/shared"
	tu "github.com/arpeggia/recordkeeper/internal/testing"
)

const sqliteTestConfig = `
[backend]
name = "sqlite"

[sqlite]
path = ":memory:"
max_open_conns = 1
`

// runApp executes the CLI against a buffer-backed runner and returns its
// output.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Logger: shared.NewLogger(output),
		Output: output,
	})

	app := &cli.Command{
		Name:     "recordkeeper",
		Commands: runner.register(),
	}

	err := app.Run(context.Background(), append([]string{"recordkeeper"}, args...))
	return output.String(), err
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limited := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limited})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})
}

func TestCommands(t *testing.T) {
	t.Run("ping reaches the sqlite backend", func(t *testing.T) {
		path := tu.WriteConfigFile(t, t.TempDir(), sqliteTestConfig)

		output, err := runApp(t, "ping", "-c", path)
		if err != nil {
			t.Fatalf("ping failed: %v", err)
		}
		if !strings.Contains(output, "reachable") {
			t.Errorf("expected reachability report, got %q", output)
		}
	})

	t.Run("info reports backend and capabilities", func(t *testing.T) {
		path := tu.WriteConfigFile(t, t.TempDir(), sqliteTestConfig)

		output, err := runApp(t, "info", "-c", path, "--json")
		if err != nil {
			t.Fatalf("info failed: %v", err)
		}
		if !strings.Contains(output, `"backend"`) || !strings.Contains(output, "sqlite") {
			t.Errorf("expected backend in JSON output, got %q", output)
		}
	})

	t.Run("migrate applies cleanly on sqlite", func(t *testing.T) {
		path := tu.WriteConfigFile(t, t.TempDir(), sqliteTestConfig)

		output, err := runApp(t, "migrate", "-c", path)
		if err != nil {
			t.Fatalf("migrate failed: %v", err)
		}
		if !strings.Contains(output, "Migrations applied") {
			t.Errorf("expected migration confirmation, got %q", output)
		}
	})

	t.Run("missing explicit config fails", func(t *testing.T) {
		_, err := runApp(t, "ping", "-c", "/no/such/config.toml")
		if !errors.Is(err, shared.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("unknown backend fails fast", func(t *testing.T) {
		path := tu.WriteConfigFile(t, t.TempDir(), "[backend]\nname = \"etcd\"\n")

		_, err := runApp(t, "ping", "-c", path)
		if !errors.Is(err, shared.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})
}
