package patch

import (
	"errors"
	"strings"
	"testing"
)

func TestCommentOutScenario(t *testing.T) {
	tr := CommentOut("writeFile or writeFileSync", `(?:fs\.)?writeFile(?:Sync)?\(.*stringify\(`)
	input := "function save(path, config) {\n  fs.writeFileSync(path, JSON.stringify(config));\n}\n"
	want := "function save(path, config) {\n  // fs.writeFileSync(path, JSON.stringify(config));\n}\n"

	got, status, err := tr.Apply(input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if status != StatusPatched {
		t.Fatalf("status = %q, want %q", status, StatusPatched)
	}
	if got != want {
		t.Fatalf("Apply = %q, want %q", got, want)
	}

	again, status, err := tr.Apply(got)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if status != StatusAlreadyPatched {
		t.Fatalf("second status = %q, want %q", status, StatusAlreadyPatched)
	}
	if again != got {
		t.Fatalf("second Apply changed content: %q", again)
	}
}

func TestCommentOutPreservesIndentation(t *testing.T) {
	tr := CommentOut("writeFile", `writeFile\(.*stringify\(`)
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no indent", "writeFile(p, stringify(c));\n", "// writeFile(p, stringify(c));\n"},
		{"tabs", "\t\twriteFile(p, stringify(c));\n", "\t\t// writeFile(p, stringify(c));\n"},
		{"blank line before", "a();\n\n    writeFile(p, stringify(c));\n", "a();\n\n    // writeFile(p, stringify(c));\n"},
		{
			"every match",
			"  writeFile(a, stringify(x));\n  other();\n    writeFile(b, stringify(y));\n",
			"  // writeFile(a, stringify(x));\n  other();\n    // writeFile(b, stringify(y));\n",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _, err := tr.Apply(tc.input)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Apply = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCommentOutSearchNotFound(t *testing.T) {
	tr := CommentOut("writeFile or writeFileSync", `writeFile(?:Sync)?\(.*stringify\(`)
	input := "export function noop() {}\n"

	got, _, err := tr.Apply(input)
	if !errors.Is(err, ErrSearchNotFound) {
		t.Fatalf("err = %v, want ErrSearchNotFound", err)
	}
	if !strings.Contains(err.Error(), "writeFile or writeFileSync") {
		t.Fatalf("error %q does not name the search string", err.Error())
	}
	if got != input {
		t.Fatalf("content changed on failure")
	}
}

func TestCommentOutPartiallyPatched(t *testing.T) {
	// one call already commented, one not: the remaining call is patched
	tr := CommentOut("writeFile", `writeFile\(.*stringify\(`)
	input := "  // writeFile(a, stringify(x));\n  writeFile(b, stringify(y));\n"
	want := "  // writeFile(a, stringify(x));\n  // writeFile(b, stringify(y));\n"

	got, status, err := tr.Apply(input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if status != StatusPatched || got != want {
		t.Fatalf("Apply = %q (%s), want %q", got, status, want)
	}
}
