// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"pkgkit/internal/config"
	"pkgkit/internal/issue"
	"pkgkit/internal/testutil"
	"pkgkit/pkg/resolve"
	"pkgkit/pkg/restrict"
)

const fixtureRepo = `
name = "test"

[[package]]
cpv = "app-misc/foo-1.0"
metadata_xml = '''
<pkgmetadata>
	<maintainer type="project"><email>misc@example.org</email></maintainer>
</pkgmetadata>
'''
[package.keys]
SLOT = "0"
KEYWORDS = "amd64"
IUSE = "ssl"
DEPEND = "dev-libs/baz"
RDEPEND = "ssl? ( dev-libs/bar )"
DESCRIPTION = "Foo tool"

[[package]]
cpv = "app-misc/foo-2.0"
[package.keys]
SLOT = "0"
KEYWORDS = "~amd64"

[[package]]
cpv = "dev-libs/bar-1"
[package.keys]
SLOT = "0"
KEYWORDS = "amd64"

[[package]]
cpv = "dev-libs/baz-1"
[package.keys]
SLOT = "0"
KEYWORDS = "amd64"
`

// writeFixture writes a fake repository and a configuration using it, and
// returns the configuration path.
func writeFixture(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	repoPath := filepath.Join(dir, "test.toml")
	cfgPath := filepath.Join(dir, "config.cue")
	testutil.MustWriteFile(t, repoPath, fixtureRepo)
	testutil.MustWriteFile(t, cfgPath, `repos: [{name: "test", location: "`+filepath.ToSlash(repoPath)+`", format: "fake"}]
accept_keywords: ["amd64"]
`+extra)
	return cfgPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := NewApp(Dependencies{Stdout: &stdout, Stderr: &stderr})
	root := NewRootCommand(app)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.
	orig := [3]string{Version, Commit, BuildDate}
	t.Cleanup(func() { Version, Commit, BuildDate = orig[0], orig[1], orig[2] })

	Version, Commit, BuildDate = "v1.2.3", "abc1234", "2026-06-15T10:00:00Z"
	if got, want := getVersionString(), "v1.2.3 (commit: abc1234, built: 2026-06-15T10:00:00Z)"; got != want {
		t.Errorf("getVersionString() = %q, want %q", got, want)
	}

	Version = "dev"
	if got, want := getVersionString(), "dev (built from source)"; got != want {
		t.Errorf("getVersionString() = %q, want %q", got, want)
	}
}

func TestVersionCommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"compare less", []string{"version", "compare", "1.0_rc1", "1.0"}, "1.0_rc1 < 1.0\n"},
		{"compare equal", []string{"version", "compare", "1.0", "1.0-r0"}, "1.0 = 1.0-r0\n"},
		{"compare greater", []string{"version", "compare", "1.0_p1", "1.0"}, "1.0_p1 > 1.0\n"},
		{"sort", []string{"version", "sort", "1.10", "1.2", "1.2_beta", "1.2a"}, "1.2_beta\n1.2\n1.2a\n1.10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := runCLI(t, tt.args...)
			if err != nil {
				t.Fatalf("%v: %v", tt.args, err)
			}
			if out != tt.want {
				t.Errorf("%v output = %q, want %q", tt.args, out, tt.want)
			}
		})
	}
}

func TestAtomCommands(t *testing.T) {
	t.Parallel()

	out, err := runCLI(t, "atom", "parse", ">=dev-libs/openssl-3.0:0/3=::gentoo[ssl,-bindist]")
	if err != nil {
		t.Fatalf("atom parse: %v", err)
	}
	for _, want := range []string{"operator: >=", "category: dev-libs", "package: openssl", "version: 3.0", "slot: 0", "subslot: 3", "repository: gentoo", "use: -bindist"} {
		if !strings.Contains(out, want) {
			t.Errorf("atom parse output missing %q:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "atom", "match", "~app-misc/foo-1.0", "app-misc/foo-1.0-r2", "app-misc/foo-1.1", "app-misc/bar-1.0")
	if err != nil {
		t.Fatalf("atom match: %v", err)
	}
	if out != "app-misc/foo-1.0-r2\n" {
		t.Errorf("atom match output = %q", out)
	}

	_, err = runCLI(t, "atom", "parse", "not an atom")
	if classifyError(err) != issue.InvalidAtomId {
		t.Errorf("atom parse error = %v, want invalid atom", err)
	}
}

func TestDepCommands(t *testing.T) {
	t.Parallel()

	const expr = "ssl? ( dev-libs/openssl ) !ssl? ( dev-libs/libressl ) || ( app-misc/a app-misc/b )"

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"eval enabled", []string{"dep", "eval", expr, "--use", "ssl"}, "dev-libs/openssl || ( app-misc/a app-misc/b )\n"},
		{"eval disabled", []string{"dep", "eval", expr}, "dev-libs/libressl || ( app-misc/a app-misc/b )\n"},
		{"flatten", []string{"dep", "flatten", expr, "--use", "ssl"}, "dev-libs/openssl\napp-misc/a\napp-misc/b\n"},
		{"choices", []string{"dep", "choices", expr, "--use", "ssl"}, "1: dev-libs/openssl app-misc/a\n2: dev-libs/openssl app-misc/b\n"},
		{"choices limit", []string{"dep", "choices", expr, "--limit", "1"}, "1: dev-libs/libressl app-misc/a\n"},
		{"required use", []string{"dep", "required-use", "^^ ( gtk qt )", "--use", "qt", "--known", "gtk"}, "satisfied\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := runCLI(t, tt.args...)
			if err != nil {
				t.Fatalf("%v: %v", tt.args, err)
			}
			if out != tt.want {
				t.Errorf("%v output = %q, want %q", tt.args, out, tt.want)
			}
		})
	}

	if _, err := runCLI(t, "dep", "required-use", "^^ ( gtk qt )", "--use", "gtk,qt"); err == nil {
		t.Error("required-use with both flags should fail")
	}
	if _, err := runCLI(t, "dep", "eval", expr, "--unknown", "ignore"); err == nil {
		t.Error("invalid --unknown policy should fail")
	}
}

func TestQueryCommand(t *testing.T) {
	t.Parallel()

	cfg := writeFixture(t, "")

	out, err := runCLI(t, "--config", cfg, "query", "app-misc/foo")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !strings.HasPrefix(out, "app-misc/foo-1.0::test") || strings.Count(out, "\n") != 1 {
		t.Errorf("query output = %q, want only the stable version", out)
	}

	_, err = runCLI(t, "--config", cfg, "query", "app-misc/missing")
	if !errors.Is(err, resolve.ErrUnresolvable) || classifyError(err) != issue.UnresolvableId {
		t.Errorf("query(missing) error = %v, want unresolvable", err)
	}
}

func TestQueryCommand_AllMatchesAndKeywords(t *testing.T) {
	t.Parallel()

	cfg := writeFixture(t, `accept_keywords: ["~amd64"]`+"\n")
	out, err := runCLI(t, "--config", cfg, "query", "--all", "app-misc/foo")
	if err != nil {
		t.Fatalf("query --all: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "app-misc/foo-2.0::test") || !strings.HasPrefix(lines[1], "app-misc/foo-1.0::test") {
		t.Errorf("query --all output = %q", out)
	}
}

func TestSearchCommand(t *testing.T) {
	t.Parallel()

	cfg := writeFixture(t, "")

	out, err := runCLI(t, "--config", cfg, "search", `keywords contains "amd64"`, "&&", `category == "dev-libs"`)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out != "dev-libs/bar-1::test\ndev-libs/baz-1::test\n" {
		t.Errorf("search output = %q", out)
	}

	out, err = runCLI(t, "--config", cfg, "search", `maintainers contains type == "project"`)
	if err != nil {
		t.Fatalf("search maintainers: %v", err)
	}
	if out != "app-misc/foo-1.0::test Foo tool\n" {
		t.Errorf("search maintainers output = %q", out)
	}

	out, err = runCLI(t, "--config", cfg, "search", "--match", ">=app-misc/foo-2", `slot == "0"`)
	if err != nil {
		t.Fatalf("search --match: %v", err)
	}
	if out != "app-misc/foo-2.0::test\n" {
		t.Errorf("search --match output = %q", out)
	}

	_, err = runCLI(t, "--config", cfg, "search", `slot == "9"`)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Errorf("search(no match) error = %v, want exit status 1", err)
	}

	_, err = runCLI(t, "--config", cfg, "search", `slot == "0" && eapi == "8" || eapi == "7"`)
	if !errors.Is(err, restrict.ErrInvalidQuery) || classifyError(err) != issue.InvalidQueryId {
		t.Errorf("search(invalid) error = %v, want invalid query", err)
	}
}

func TestResolveCommand(t *testing.T) {
	t.Parallel()

	cfg := writeFixture(t, `use: ["ssl"]`+"\n")

	out, err := runCLI(t, "--config", cfg, "resolve", "app-misc/foo")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.Contains(out, "1 package(s)") || !strings.Contains(out, "app-misc/foo-1.0::test") {
		t.Errorf("resolve output = %q", out)
	}

	out, err = runCLI(t, "--config", cfg, "resolve", "--deep", "app-misc/foo")
	if err != nil {
		t.Fatalf("resolve --deep: %v", err)
	}
	baz := strings.Index(out, "dev-libs/baz-1::test")
	foo := strings.Index(out, "app-misc/foo-1.0::test")
	if !strings.Contains(out, "3 package(s)") || baz < 0 || foo < 0 || baz > foo {
		t.Errorf("resolve --deep output = %q, want baz merged before foo", out)
	}

	out, err = runCLI(t, "--config", cfg, "resolve", "--deep", "--class", "rdepend", "app-misc/foo")
	if err != nil {
		t.Fatalf("resolve --class: %v", err)
	}
	if strings.Contains(out, "dev-libs/baz") || !strings.Contains(out, "dev-libs/bar-1::test") {
		t.Errorf("resolve --class rdepend output = %q", out)
	}

	out, err = runCLI(t, "--config", cfg, "resolve", "--expr", "|| ( app-misc/missing dev-libs/bar )")
	if err != nil {
		t.Fatalf("resolve --expr: %v", err)
	}
	if !strings.Contains(out, "dev-libs/bar-1::test") {
		t.Errorf("resolve --expr output = %q", out)
	}

	if _, err := runCLI(t, "--config", cfg, "resolve", "--deep", "--class", "nope", "app-misc/foo"); err == nil {
		t.Error("unknown --class should fail")
	}
}

func TestRepoCommands(t *testing.T) {
	t.Parallel()

	cfg := writeFixture(t, "")

	out, err := runCLI(t, "--config", cfg, "repo", "list")
	if err != nil {
		t.Fatalf("repo list: %v", err)
	}
	if !strings.Contains(out, "test (priority 0)") || !strings.Contains(out, "packages: 4") {
		t.Errorf("repo list output = %q", out)
	}

	out, err = runCLI(t, "--config", cfg, "repo", "packages", "test", "dev-libs")
	if err != nil {
		t.Fatalf("repo packages: %v", err)
	}
	if out != "dev-libs/bar-1\ndev-libs/baz-1\n" {
		t.Errorf("repo packages output = %q", out)
	}

	out, err = runCLI(t, "--config", cfg, "repo", "show", "app-misc/foo-1.0")
	if err != nil {
		t.Fatalf("repo show: %v", err)
	}
	for _, want := range []string{"app-misc/foo-1.0::test", "SLOT: 0", "KEYWORDS: amd64", "DEPEND: dev-libs/baz", "RDEPEND: ssl? ( dev-libs/bar )", "MAINTAINER: misc@example.org (project)"} {
		if !strings.Contains(out, want) {
			t.Errorf("repo show output missing %q:\n%s", want, out)
		}
	}

	_, err = runCLI(t, "--config", cfg, "repo", "show", "app-misc/foo-9")
	if classifyError(err) != issue.PackageNotFoundId {
		t.Errorf("repo show(missing) error = %v, want package not found", err)
	}

	_, err = runCLI(t, "--config", cfg, "repo", "packages", "nope")
	if classifyError(err) != issue.RepositoryNotFoundId {
		t.Errorf("repo packages(nope) error = %v, want repository not found", err)
	}

	out, err = runCLI(t, "--config", cfg, "repo", "sync")
	if err != nil {
		t.Fatalf("repo sync: %v", err)
	}
	if !strings.Contains(out, "test unchanged") {
		t.Errorf("repo sync output = %q", out)
	}
}

func TestWorkspaceErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.cue")
	testutil.MustWriteFile(t, empty, `log_level: "warn"`)

	_, err := runCLI(t, "--config", empty, "repo", "list")
	if classifyError(err) != issue.RepositoryNotFoundId {
		t.Errorf("no repos error = %v, want repository not found", err)
	}

	misnamed := filepath.Join(dir, "misnamed.cue")
	repoPath := filepath.Join(dir, "test.toml")
	testutil.MustWriteFile(t, repoPath, fixtureRepo)
	testutil.MustWriteFile(t, misnamed, `repos: [{name: "other", location: "`+filepath.ToSlash(repoPath)+`", format: "fake"}]`)
	_, err = runCLI(t, "--config", misnamed, "repo", "list")
	if err == nil || !strings.Contains(err.Error(), `calls itself "test"`) {
		t.Errorf("misnamed repo error = %v", err)
	}

	_, err = runCLI(t, "--config", filepath.Join(dir, "missing.cue"), "repo", "list")
	if classifyError(err) != issue.ConfigLoadFailedId {
		t.Errorf("missing config error = %v, want config issue", err)
	}
}

func TestConfigCommands(t *testing.T) {
	t.Parallel()

	cfg := writeFixture(t, `log_level: "warn"`+"\n")

	out, err := runCLI(t, "--config", cfg, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"Config file: " + cfg, "test", "log_level: warn", "accept_keywords: amd64"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show output missing %q:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "--config", cfg, "config", "dump")
	if err != nil {
		t.Fatalf("config dump: %v", err)
	}
	if !strings.Contains(out, `log_level: "warn"`) {
		t.Errorf("config dump output = %q", out)
	}
}

func TestSetConfigValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{"log_level", "debug", false},
		{"log_level", "loud", true},
		{"unknown_flags", "drop", false},
		{"ui.color_scheme", "light", false},
		{"watch.debounce", "2s", false},
		{"watch.debounce", "soon", true},
		{"nope", "x", true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Parallel()
			cfg := config.DefaultConfig()
			err := setConfigValue(cfg, tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("setConfigValue(%s, %s) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestIssueCommand(t *testing.T) {
	t.Parallel()

	out, err := runCLI(t, "issue")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.Contains(out, "unresolvable") || !strings.Contains(out, "dependency-cycle") {
		t.Errorf("issue list output = %q", out)
	}

	out, err = runCLI(t, "issue", "unresolvable")
	if err != nil {
		t.Fatalf("issue unresolvable: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Error("issue unresolvable rendered nothing")
	}

	if _, err := runCLI(t, "issue", "nope"); err == nil {
		t.Error("unknown issue should fail")
	}
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	err := resolveFailure(&resolve.UnresolvableError{Reason: "no candidates", Group: "|| ( a/b c/d )"}, "|| ( a/b c/d )")
	got := formatErrorForDisplay(err, false)
	if !strings.Contains(got, "resolve dependencies") || !strings.Contains(got, "pkgkit issue unresolvable") {
		t.Errorf("formatErrorForDisplay() = %q", got)
	}

	var buf bytes.Buffer
	renderError(&buf, &ExitError{Code: 2}, false)
	if buf.Len() != 0 {
		t.Errorf("renderError(ExitError without cause) wrote %q", buf.String())
	}
}
