// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	UnsupportedHostId Id = iota + 1
	HostNotDetectedId
	ManifestParseId
	DependencyFetchId
	DependencyTimeoutId
	DependencyIntegrityId
	ConfigLoadFailedId
)

type (
	// Id identifies a catalog issue.
	Id int

	// MarkdownMsg is the Markdown body of an issue.
	MarkdownMsg string

	// HttpLink is a documentation link appended to a rendered issue.
	HttpLink string

	// Issue is a Markdown explanation of one failure class.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the issue for the terminal using the glamour style at stylePath
// (a path or a built-in style name such as "dark" or "notty").
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 {
		var sb strings.Builder
		sb.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			sb.WriteString("- " + string(link) + "\n")
		}
		md += sb.String()
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	unsupportedHostIssue = &Issue{
		id: UnsupportedHostId,
		mdMsg: `
# This server version is not supported!

No adapter was built for the platform and version the server is running, so
the plugin refused to start instead of guessing.

## Things you can try:
- List the supported versions:
~~~
$ bendboot adapters list
~~~
- Update (or downgrade) the server to one of the listed versions
- Check the detected version; pin it if detection is wrong:
~~~toml
# host.toml
platform = "paper"
version  = "1.19.2"
~~~`,
	}

	hostNotDetectedIssue = &Issue{
		id: HostNotDetectedId,
		mdMsg: `
# Could not detect the server!

None of the host probes recognized the running server.

## Things you can try:
- Set the host explicitly:
~~~
$ BENDBOOT_HOST_PLATFORM=paper BENDBOOT_HOST_VERSION=1.19.2 bendboot start
~~~
- Or configure it in your config file:
~~~cue
host: {
	platform: "paper"
	version_file: "/srv/minecraft/version.json"
}
~~~`,
	}

	manifestParseIssue = &Issue{
		id: ManifestParseId,
		mdMsg: `
# The dependency manifest is broken!

The manifest embedded in this build could not be parsed. This is a packaging
defect, not something wrong with your server.

## Things you can try:
- Re-download the plugin from the official release page
- Inspect the manifest shipped with this build:
~~~
$ bendboot manifest show
~~~
- Report the problem together with the output of ` + "`bendboot --version`",
	}

	dependencyFetchIssue = &Issue{
		id: DependencyFetchId,
		mdMsg: `
# A required library could not be downloaded!

The plugin needs a runtime library that is neither loaded by the server nor
present in the local cache, and no configured source could provide it.

## Things you can try:
- Check that the server can reach the configured repositories
- Add a mirror or a local directory source to your config:
~~~cue
sources: [
	{name: "central", url: "https://repo.maven.apache.org/maven2"},
	{name: "local", url: "file:///srv/minecraft/libs"},
]
~~~
- Pre-populate the cache on a machine with network access:
~~~
$ bendboot deps provision
~~~`,
	}

	dependencyTimeoutIssue = &Issue{
		id: DependencyTimeoutId,
		mdMsg: `
# Downloading a library timed out!

A repository did not answer within the configured fetch timeout.

## Things you can try:
- Retry; the failure may be transient
- Raise the timeout in your config:
~~~cue
fetch_timeout: "2m"
~~~
- Use a closer mirror`,
	}

	dependencyIntegrityIssue = &Issue{
		id: DependencyIntegrityId,
		mdMsg: `
# A downloaded library failed verification!

The bytes received for a library do not match the checksum recorded at build
time. They were discarded and never loaded.

## Things you can try:
- Check whether a proxy or mirror is rewriting downloads
- Remove the offending source from your config and retry
- Show where cached artifacts live:
~~~
$ bendboot cache path
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Validate it against the schema by printing the effective config:
~~~
$ bendboot config show
~~~
- Regenerate a default config:
~~~
$ bendboot config init
~~~`,
	}

	issues = map[Id]*Issue{
		unsupportedHostIssue.Id():     unsupportedHostIssue,
		hostNotDetectedIssue.Id():     hostNotDetectedIssue,
		manifestParseIssue.Id():       manifestParseIssue,
		dependencyFetchIssue.Id():     dependencyFetchIssue,
		dependencyTimeoutIssue.Id():   dependencyTimeoutIssue,
		dependencyIntegrityIssue.Id(): dependencyIntegrityIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, len(ids))
	for i, id := range ids {
		out[i] = issues[id]
	}
	return out
}

// Get returns the issue for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
