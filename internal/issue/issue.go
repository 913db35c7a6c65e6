// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	InvalidAtomId Id = iota + 1
	InvalidVersionId
	PackageNotFoundId
	RepositoryNotFoundId
	RepositorySyncFailedId
	MetadataInvalidId
	UnresolvableId
	DependencyCycleId
	ConfigLoadFailedId
	InvalidUseFlagId
	InvalidQueryId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal markdown using the glamour style at
// stylePath ("dark", "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	invalidAtomIssue = &Issue{
		id: InvalidAtomId,
		mdMsg: `
# Invalid package atom!

The atom could not be parsed.

## Atom syntax
~~~
[!|!!][op]category/package[-version][*][:slot[/subslot][=]][::repo][[use,deps]]
~~~

- A version requires an operator: ` + "`>=dev-libs/openssl-3.0`" + `, not ` + "`dev-libs/openssl-3.0`" + `
- ` + "`~`" + ` matches every revision of a version and must not carry one
- ` + "`=...*`" + ` is the only operator that accepts a trailing glob

## Things you can try:
~~~
$ pkgkit atom parse '>=dev-libs/openssl-3.0:0/3[ssl]'
~~~`,
		extLinks: []HttpLink{"https://wiki.gentoo.org/wiki/Version_specifier"},
	}

	invalidVersionIssue = &Issue{
		id: InvalidVersionId,
		mdMsg: `
# Invalid version string!

Versions are dot separated numbers, an optional letter, suffixes and a revision:

~~~
1.2.3b_alpha4_p20240101-r2
~~~

## Things you can try:
- Compare two versions to check how they order:
~~~
$ pkgkit version compare 1.0_rc1 1.0
~~~`,
		extLinks: []HttpLink{"https://projects.gentoo.org/pms/8/pms.html#x1-250003.2"},
	}

	packageNotFoundIssue = &Issue{
		id: PackageNotFoundId,
		mdMsg: `
# Package not found!

No configured repository has a package matching the request.

## Things you can try:
- List what a repository contains:
~~~
$ pkgkit repo list <name>
~~~

- Check the category and package name for typos
- Sync the repositories if the tree changed on disk:
~~~
$ pkgkit repo sync
~~~`,
	}

	repositoryNotFoundIssue = &Issue{
		id: RepositoryNotFoundId,
		mdMsg: `
# Repository not found!

The named repository is not configured, or its location does not exist.

## Things you can try:
- Show the configured repositories:
~~~
$ pkgkit config show
~~~

- Add the repository to your configuration:
~~~cue
repos: [
  {name: "gentoo", location: "/var/db/repos/gentoo", priority: -1000},
]
~~~`,
	}

	repositorySyncFailedIssue = &Issue{
		id: RepositorySyncFailedId,
		mdMsg: `
# Repository sync failed!

The repository could not be re-indexed. Queries keep using the last good
snapshot until a sync succeeds.

## Things you can try:
- Check that the repository location is readable
- Verify ` + "`profiles/repo_name`" + ` and ` + "`profiles/categories`" + ` are well formed
- Retry with debug logging:
~~~
$ pkgkit --log-level debug repo sync
~~~`,
	}

	metadataInvalidIssue = &Issue{
		id: MetadataInvalidId,
		mdMsg: `
# Invalid package metadata!

A cache entry or build script contains metadata that does not parse.

## Common causes:
- A stale ` + "`metadata/md5-cache`" + ` entry
- Dependency syntax errors such as unbalanced parentheses
- An IUSE or KEYWORDS token with invalid characters

## Things you can try:
- Inspect the entry:
~~~
$ pkgkit repo show <category/package-version>
~~~`,
	}

	unresolvableIssue = &Issue{
		id: UnresolvableId,
		mdMsg: `
# Dependency could not be resolved!

No combination of candidate packages satisfies the request. The resolver
tries every alternative of each any-of group and every matching version
before giving up.

## Common causes:
- No version is accepted by your keywords
- A slot conflict between two required versions
- A blocker matching a package already chosen

## Things you can try:
- Accept testing keywords:
~~~cue
accept_keywords: ["amd64", "~amd64"]
~~~

- Show every candidate the resolver saw:
~~~
$ pkgkit resolve --all <atom>
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Build-time dependencies form a cycle, so no merge order exists.

## Things you can try:
- Disable the USE flag that introduces the cycle for one package:
~~~cue
package_use: ["dev-lang/python -ssl"]
~~~

- Resolve runtime dependencies only, which are allowed to cycle:
~~~
$ pkgkit resolve --deep --class RDEPEND <atom>
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the pkgkit configuration file.

## Configuration file locations:
- Linux: ~/.config/pkgkit/config.cue
- macOS: ~/Library/Application Support/pkgkit/config.cue
- Windows: %APPDATA%\pkgkit\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ pkgkit config init
~~~

- Check the configuration syntax
- Override single settings with ` + "`PKGKIT_`" + ` environment variables`,
	}

	invalidUseFlagIssue = &Issue{
		id: InvalidUseFlagId,
		mdMsg: `
# Invalid USE flag!

USE flags start with a letter or digit and continue with letters, digits,
` + "`+`, `_`, `@` and `-`" + `.

## Things you can try:
- Prefix a flag with ` + "`-`" + ` to disable it, and use ` + "`-*`" + ` to reset all flags:
~~~cue
use: ["-*", "ssl", "-doc"]
~~~`,
	}

	invalidQueryIssue = &Issue{
		id: InvalidQueryId,
		mdMsg: `
# Invalid search query!

A query compares package attributes with quoted strings:

~~~
slot == "0" && keywords contains "amd64"
(description =~ "(?i)crypto" || maintainers contains email == "crypto@example.org")
!homepage is None
~~~

- ` + "`==`, `!=`, `=~` and `!~`" + ` compare; ` + "`=~`" + ` takes an RE2 regular expression
- Mixing ` + "`&&`, `||` and `^^`" + ` on one level needs parentheses
- Strings are quoted with ` + "`\"`" + ` or ` + "`'`" + ` and have no escapes

## Things you can try:
~~~
$ pkgkit search 'package == "openssl"'
~~~`,
	}

	issues = map[Id]*Issue{
		invalidAtomIssue.Id():          invalidAtomIssue,
		invalidVersionIssue.Id():       invalidVersionIssue,
		packageNotFoundIssue.Id():      packageNotFoundIssue,
		repositoryNotFoundIssue.Id():   repositoryNotFoundIssue,
		repositorySyncFailedIssue.Id(): repositorySyncFailedIssue,
		metadataInvalidIssue.Id():      metadataInvalidIssue,
		unresolvableIssue.Id():         unresolvableIssue,
		dependencyCycleIssue.Id():      dependencyCycleIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		invalidUseFlagIssue.Id():       invalidUseFlagIssue,
		invalidQueryIssue.Id():         invalidQueryIssue,
	}

	names = map[string]Id{
		"invalid-atom":      InvalidAtomId,
		"invalid-version":   InvalidVersionId,
		"package-not-found": PackageNotFoundId,
		"repo-not-found":    RepositoryNotFoundId,
		"sync-failed":       RepositorySyncFailedId,
		"invalid-metadata":  MetadataInvalidId,
		"unresolvable":      UnresolvableId,
		"dependency-cycle":  DependencyCycleId,
		"config":            ConfigLoadFailedId,
		"invalid-use":       InvalidUseFlagId,
		"invalid-query":     InvalidQueryId,
	}
)

// Values returns every issue ordered by ID.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, id := range slices.Sorted(maps.Keys(issues)) {
		out = append(out, issues[id])
	}
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}

// Lookup returns the issue registered under a short name such as
// "unresolvable".
func Lookup(name string) (*Issue, bool) {
	id, ok := names[name]
	if !ok {
		return nil, false
	}
	return issues[id], true
}

// Names returns the short names accepted by Lookup, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(names))
}
