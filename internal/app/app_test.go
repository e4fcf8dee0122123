package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nextpatch/internal/config"
	"nextpatch/internal/journal"
	"nextpatch/internal/observ"
	"nextpatch/internal/patch"
	"nextpatch/internal/patchenv"
	"nextpatch/internal/shell"
)

const (
	esmPath = "dist/esm/lib/typescript/writeConfigurationDefaults.js"
	cjsPath = "dist/lib/typescript/writeConfigurationDefaults.js"

	esmSource = `export async function writeConfigurationDefaults(ts, tsConfigPath) {
    const userTsConfig = CommentJson.parse(await fs.readFile(tsConfigPath, { encoding: 'utf8' }));
    await fs.writeFile(tsConfigPath, CommentJson.stringify(userTsConfig, null, 2) + os.EOL);
}
`
	cjsSource = `async function writeConfigurationDefaults(ts, tsConfigPath) {
    const userTsConfig = _commentjson.parse(await _fs.promises.readFile(tsConfigPath, { encoding: 'utf8' }));
    await _fs.promises.writeFile(tsConfigPath, _commentjson.stringify(userTsConfig, null, 2) + _os.default.EOL);
}
`
	patchedLine = "    // await fs.writeFile(tsConfigPath, CommentJson.stringify("
)

type fakeRunner struct {
	calls   []string
	replies map[string]func(args []string) (shell.Result, error)
}

func (f *fakeRunner) Run(_ context.Context, _ string, name string, args ...string) (shell.Result, error) {
	f.calls = append(f.calls, shell.Line(name, args...))
	key := name
	if len(args) > 0 {
		key += " " + args[0]
	}
	if reply, ok := f.replies[key]; ok {
		return reply(args)
	}
	return shell.Result{}, nil
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(data)
}

func nextFiles(prefix string) map[string]string {
	return map[string]string{
		prefix + esmPath: esmSource,
		prefix + cjsPath: cjsSource,
	}
}

func testConfig(noJournal bool) *config.Config {
	return &config.Config{
		Patch: config.PatchConfig{
			Package:    "next",
			Strategies: []string{"install-metadata", "lockfile", "packageManager-field", "devEngines-field"},
		},
		Output:    config.OutputConfig{UI: "off"},
		NoJournal: noJournal,
	}
}

func openJournal(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.OpenDir(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	return store
}

func TestRunPnpm(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"pnpm-lock.yaml": "lockfileVersion: '9.0'\n"})
	staging := filepath.Join(dir, "node_modules", ".temp", "next")

	var committed string
	runner := &fakeRunner{replies: map[string]func([]string) (shell.Result, error){
		"pnpm patch": func(args []string) (shell.Result, error) {
			writeFiles(t, args[len(args)-1], nextFiles(""))
			return shell.Result{}, nil
		},
		"pnpm patch-commit": func(args []string) (shell.Result, error) {
			committed = readFile(t, filepath.Join(args[len(args)-1], filepath.FromSlash(esmPath)))
			return shell.Result{}, nil
		},
	}}
	store := openJournal(t)
	timer := observ.NewTimer()

	err := Run(context.Background(), Options{Dir: dir, StopDir: dir, Config: testConfig(false), Runner: runner, Journal: store, Timer: timer})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		"pnpm patch next --edit-dir " + staging,
		"pnpm patch-commit " + staging,
	}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(committed, patchedLine) {
		t.Fatalf("commit saw unpatched content:\n%s", committed)
	}
	if _, err := os.Stat(staging); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("staging directory left behind")
	}

	entry, ok, err := store.Get(dir)
	if err != nil || !ok {
		t.Fatalf("journal Get = %v, %v", ok, err)
	}
	wantFiles := []journal.FileOutcome{
		{Path: "next/" + esmPath, Status: "patched"},
		{Path: "next/" + cjsPath, Status: "patched"},
	}
	if diff := cmp.Diff(wantFiles, entry.Files); diff != "" {
		t.Fatalf("journal files mismatch (-want +got):\n%s", diff)
	}
	if entry.Agent != "pnpm" || entry.Env != "pnpm" || entry.Staging != staging || !entry.Succeeded() {
		t.Fatalf("unexpected journal entry: %+v", entry)
	}

	var phases []string
	for _, p := range timer.Report().Phases {
		phases = append(phases, p.Name)
	}
	if diff := cmp.Diff([]string{"detect", "prepare", "patch", "commit"}, phases); diff != "" {
		t.Fatalf("phases mismatch (-want +got):\n%s", diff)
	}
}

func TestRunInPlace(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"package-lock.json": "{}"})
	writeFiles(t, dir, nextFiles("node_modules/next/"))
	runner := &fakeRunner{}

	if err := Run(context.Background(), Options{Dir: dir, StopDir: dir, Config: testConfig(true), Runner: runner}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := readFile(t, filepath.Join(dir, "node_modules", "next", filepath.FromSlash(esmPath)))
	if !strings.Contains(got, patchedLine) {
		t.Fatalf("file not patched:\n%s", got)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("in-place run executed commands: %q", runner.calls)
	}

	// A second run finds both files already patched.
	if err := Run(context.Background(), Options{Dir: dir, StopDir: dir, Config: testConfig(true), Runner: runner}); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if again := readFile(t, filepath.Join(dir, "node_modules", "next", filepath.FromSlash(esmPath))); again != got {
		t.Fatalf("second run changed the file")
	}
}

func TestRunDryRun(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"pnpm-lock.yaml": ""})
	writeFiles(t, dir, nextFiles("node_modules/next/"))
	runner := &fakeRunner{}
	store := openJournal(t)

	if err := Run(context.Background(), Options{Dir: dir, StopDir: dir, Config: testConfig(false), DryRun: true, Runner: runner, Journal: store}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "node_modules", "next", filepath.FromSlash(esmPath))); got != esmSource {
		t.Fatalf("dry run modified the file:\n%s", got)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("dry run executed commands: %q", runner.calls)
	}
	entry, ok, err := store.Get(dir)
	if err != nil || !ok {
		t.Fatalf("journal Get = %v, %v", ok, err)
	}
	if !entry.DryRun || entry.Agent != "pnpm" || entry.Env != "node_modules" {
		t.Fatalf("unexpected journal entry: %+v", entry)
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		replies map[string]func([]string) (shell.Result, error)
		kind    Kind
		message string
	}{
		{
			name:    "no package manager",
			files:   map[string]string{"README.md": "hi"},
			kind:    KindDetection,
			message: "No package manager found",
		},
		{
			name:    "target missing",
			files:   map[string]string{"package-lock.json": "{}"},
			kind:    KindTargetMissing,
			message: "Failed to patch files",
		},
		{
			name: "pattern mismatch",
			files: map[string]string{
				"package-lock.json":            "{}",
				"node_modules/next/" + esmPath: "export const nothing = 1;\n",
				"node_modules/next/" + cjsPath: cjsSource,
			},
			kind:    KindPatternMismatch,
			message: "Failed to patch files",
		},
		{
			name: "yarn output unparseable",
			files: map[string]string{
				"yarn.lock":    "",
				"package.json": `{"packageManager":"yarn@4.1.0"}`,
			},
			replies: map[string]func([]string) (shell.Result, error){
				"yarn patch": func([]string) (shell.Result, error) {
					return shell.Result{Stdout: "➤ YN0000: done"}, nil
				},
			},
			kind:    KindStrategyOutput,
			message: "Failed to parse yarn patch output",
		},
		{
			name:  "pnpm command fails",
			files: map[string]string{"pnpm-lock.yaml": ""},
			replies: map[string]func([]string) (shell.Result, error){
				"pnpm patch": func([]string) (shell.Result, error) {
					return shell.Result{}, &shell.Error{Command: "pnpm patch next", Stderr: "ERR_PNPM", Err: errors.New("exit status 1")}
				},
			},
			kind:    KindProcess,
			message: "Package manager command failed",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tc.files)
			store := openJournal(t)
			runner := &fakeRunner{replies: tc.replies}

			err := Run(context.Background(), Options{Dir: dir, StopDir: dir, Config: testConfig(false), Runner: runner, Journal: store})
			var failure *Failure
			if !errors.As(err, &failure) {
				t.Fatalf("err = %v, want *Failure", err)
			}
			if failure.Kind != tc.kind || failure.Message != tc.message {
				t.Fatalf("failure = %q %q, want %q %q", failure.Kind, failure.Message, tc.kind, tc.message)
			}
			entry, ok, err := store.Get(dir)
			if err != nil || !ok {
				t.Fatalf("journal Get = %v, %v", ok, err)
			}
			if entry.FailureKind != string(tc.kind) {
				t.Fatalf("journal kind = %q, want %q", entry.FailureKind, tc.kind)
			}
		})
	}
}

func TestPatternMismatchLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	const unrelated = "export const nothing = 1;\n"
	writeFiles(t, dir, map[string]string{
		"package-lock.json":            "{}",
		"node_modules/next/" + esmPath: unrelated,
		"node_modules/next/" + cjsPath: cjsSource,
	})
	err := Run(context.Background(), Options{Dir: dir, StopDir: dir, Config: testConfig(true), Runner: &fakeRunner{}})
	if !errors.Is(err, patch.ErrSearchNotFound) {
		t.Fatalf("err = %v, want ErrSearchNotFound", err)
	}
	if !strings.Contains(err.Error(), "search string not found: `writeFile or writeFileSync`") {
		t.Fatalf("error does not name the search string: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "node_modules", "next", filepath.FromSlash(esmPath))); got != unrelated {
		t.Fatalf("file changed:\n%s", got)
	}
	if got := readFile(t, filepath.Join(dir, "node_modules", "next", filepath.FromSlash(cjsPath))); got != cjsSource {
		t.Fatalf("batch continued past the failing file")
	}
}

func TestClassify(t *testing.T) {
	shellErr := &shell.Error{Command: "yarn patch-commit", Err: errors.New("exit status 1")}
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"file missing", &patch.FileError{Path: "next/x.js", Err: patch.ErrFileMissing}, KindTargetMissing},
		{"search", fmt.Errorf("next/x.js: %w", &patch.SearchError{Search: "writeFile"}), KindPatternMismatch},
		{"output", fmt.Errorf("prepare next: %w", &patchenv.OutputError{Reason: "Failed to get yarn patch temp path"}), KindStrategyOutput},
		{"process", fmt.Errorf("commit next: %w", shellErr), KindProcess},
		{"other", errors.New("disk full"), KindPatch},
		{"failure", fmt.Errorf("wrapped: %w", &Failure{Kind: KindDetection, Message: "No package manager found"}), KindDetection},
	}
	for _, tc := range tests {
		if got := Classify(tc.err); got.Kind != tc.want {
			t.Fatalf("%s: Classify = %q, want %q", tc.name, got.Kind, tc.want)
		}
	}
	if Classify(nil) != nil {
		t.Fatalf("Classify(nil) != nil")
	}
	if got := Classify(&patchenv.OutputError{Reason: "Failed to get yarn patch temp path"}).Message; got != "Failed to get yarn patch temp path" {
		t.Fatalf("message = %q", got)
	}
}

func TestFailureError(t *testing.T) {
	f := &Failure{Kind: KindDetection, Message: "No package manager found"}
	if f.Error() != "No package manager found" {
		t.Fatalf("Error() = %q", f.Error())
	}
	inner := errors.New("exit status 1")
	f = &Failure{Kind: KindProcess, Message: "Package manager command failed", Err: inner}
	if !errors.Is(f, inner) || f.Error() != "Package manager command failed: exit status 1" {
		t.Fatalf("unexpected failure: %v", f)
	}
}

func TestFiles(t *testing.T) {
	if diff := cmp.Diff([]string{esmPath, cjsPath}, Files()); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
}
