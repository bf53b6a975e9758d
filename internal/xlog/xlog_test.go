package xlog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigureAndTee(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf})

	log := WithComponent("runner")
	log.Debug().Str("run", "r1").Msg("started")

	got := buf.String()
	for _, want := range []string{
		`"service":"clusterlab"`,
		`"component":"runner"`,
		`"run":"r1"`,
		`"message":"started"`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("log output missing %s:\n%s", want, got)
		}
	}

	// Second Configure must not replace the writer.
	Configure(Config{Output: os.Stdout})
	buf.Reset()
	b := Base()
	b.Info().Msg("still here")
	if !strings.Contains(buf.String(), `"message":"still here"`) {
		t.Fatalf("reconfigure replaced the writer:\n%s", buf.String())
	}

	dir := t.TempDir()
	log, closer, err := ToFile(dir)
	if err != nil {
		t.Fatalf("ToFile: %v", err)
	}
	buf.Reset()
	log.Info().Msg("tee")
	if err := closer.Close(); err != nil {
		t.Fatalf("close run log: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, RunLogName))
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if !strings.Contains(string(data), `"message":"tee"`) {
		t.Fatalf("run.log missing teed entry:\n%s", data)
	}
	if !strings.Contains(buf.String(), `"message":"tee"`) {
		t.Fatalf("tee dropped the primary writer:\n%s", buf.String())
	}
}
