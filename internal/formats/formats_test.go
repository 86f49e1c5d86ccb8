package formats

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const teiSample = `<?xml version="1.0" encoding="UTF-8"?>
<TEI>
  <teiHeader>
    <title>Aeneis</title>
  </teiHeader>
  <text>
    <body>
      <div n="1/1">
        <l n="1/1/1/1">Arma virumque cano,</l>
        <l n="1/1/1/2">Troiae qui primus ab oris</l>
        <note>editorial remark</note>
        <l n="1/1/1/3">Italiam fato profugus.</l>
      </div>
    </body>
  </text>
</TEI>
`

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Format
	}{
		{"plain text", "[1/1/1/1] arma virumque", FormatText},
		{"xml", teiSample, FormatXML},
		{"xml after whitespace", "\n\t <TEI/>", FormatXML},
		{"empty", "", FormatText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, r, err := Detect(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if format != tt.want {
				t.Errorf("format = %q, want %q", format, tt.want)
			}
			replay, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("reading replay: %v", err)
			}
			if string(replay) != tt.input {
				t.Errorf("replay = %q, want original input back", replay)
			}
		})
	}
}

func TestFlatten(t *testing.T) {
	text, err := Flatten(strings.NewReader(teiSample))
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}

	for _, want := range []string{
		"[1/1]",
		"[1/1/1/1]Arma virumque cano,",
		"[1/1/1/2]Troiae qui primus ab oris",
		"[1/1/1/3]Italiam fato profugus.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("flattened text missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Aeneis") {
		t.Error("header content leaked into flattened text")
	}
	if strings.Contains(text, "editorial remark") {
		t.Error("note content leaked into flattened text")
	}
}

func TestReferences(t *testing.T) {
	refs, err := References(strings.NewReader(teiSample))
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	want := []string{"1/1", "1/1/1/1", "1/1/1/2", "1/1/1/3"}
	if len(refs) != len(want) {
		t.Fatalf("got %d references %v, want %d", len(refs), refs, len(want))
	}
	for i, ref := range refs {
		if ref != want[i] {
			t.Errorf("reference %d = %q, want %q", i, ref, want[i])
		}
	}
}

func TestSourcePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.txt")
	const content = "[1/1/1/1] arma virumque cano.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Source(path)
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content {
		t.Errorf("Source = %q, want %q", data, content)
	}
}

func TestSourceXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.xml")
	if err := os.WriteFile(path, []byte(teiSample), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Source(path)
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[1/1/1/1]Arma virumque cano,") {
		t.Errorf("Source did not flatten XML: %q", data)
	}
}
