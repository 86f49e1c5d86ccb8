package tagger

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// writeEngine writes a shell script standing in for a tagging engine.
func writeEngine(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script engine stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "engine.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTagDecodesResponse(t *testing.T) {
	engine := writeEngine(t, `cat >/dev/null
echo '{"status":"ok","tokens":[{"surface":"arma","lemma":"arma","pos":"NOUN","start":0,"end":4}],"categories":[{"start_token":0,"end_token":1,"label":"NP"}]}'
`)

	res, err := New(engine).Tag(context.Background(), "arma")
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if len(res.Tokens) != 1 {
		t.Fatalf("got %d tokens, want 1", len(res.Tokens))
	}
	tok := res.Tokens[0]
	if tok.Surface != "arma" || tok.Lemma != "arma" || tok.POS != "NOUN" || tok.End != 4 {
		t.Errorf("unexpected token %+v", tok)
	}
	if len(res.Categories) != 1 || res.Categories[0].Label != "NP" {
		t.Errorf("unexpected categories %+v", res.Categories)
	}
}

func TestTagSendsRequest(t *testing.T) {
	// The engine echoes the request text back as a single token surface.
	engine := writeEngine(t, `text=$(sed 's/.*"text":"\([^"]*\)".*/\1/')
printf '{"status":"ok","tokens":[{"surface":"%s","start":0,"end":4}]}' "$text"
`)

	res, err := New(engine).Tag(context.Background(), "cano")
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if len(res.Tokens) != 1 || res.Tokens[0].Surface != "cano" {
		t.Errorf("engine did not receive request text: %+v", res.Tokens)
	}
}

func TestTagEngineError(t *testing.T) {
	engine := writeEngine(t, `cat >/dev/null
echo '{"status":"error","error":"model not loaded"}'
`)

	if _, err := New(engine).Tag(context.Background(), "arma"); err == nil {
		t.Fatal("Tag with engine error succeeded, want error")
	}
}

func TestTagEngineCrash(t *testing.T) {
	engine := writeEngine(t, `echo "boom" >&2
exit 3
`)

	if _, err := New(engine).Tag(context.Background(), "arma"); err == nil {
		t.Fatal("Tag with crashing engine succeeded, want error")
	}
}

func TestTagGarbageOutput(t *testing.T) {
	engine := writeEngine(t, `cat >/dev/null
echo 'not json'
`)

	if _, err := New(engine).Tag(context.Background(), "arma"); err == nil {
		t.Fatal("Tag with garbage output succeeded, want error")
	}
}

func TestTagTimeout(t *testing.T) {
	engine := writeEngine(t, `sleep 5
`)

	c := New(engine)
	c.Timeout = 100 * time.Millisecond
	start := time.Now()
	if _, err := c.Tag(context.Background(), "arma"); err == nil {
		t.Fatal("Tag past timeout succeeded, want error")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout took %v, want well under the engine sleep", elapsed)
	}
}

func TestTagMissingBinary(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent")).Tag(context.Background(), "arma"); err == nil {
		t.Fatal("Tag with missing binary succeeded, want error")
	}
}
