// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	DestinationExistsId Id = iota + 1
	DownloadFailedId
	ArchiveCorruptedId
	ArchiveEmptyId
	ExtractPermissionId
	ExtractFailedId
	DependencyInstallFailedId
	DependencyInstallTimeoutId
	ConfigLoadFailedId
	SkeletonUnknownId
	ProjectMarkerMissingId
)

// Code returns the stable user-visible form of the id, e.g. "KEEL-E003".
// These codes appear in error output and never get renumbered.
func (id Id) Code() string {
	return fmt.Sprintf("KEEL-E%03d", int(id))
}

// ParseCode resolves a user-entered code back to an Id. It accepts the full
// "KEEL-E003" form as well as the "E003" and "3" shorthands, matching what
// people actually type at 'keel explain'.
func ParseCode(s string) (Id, bool) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	trimmed = strings.TrimPrefix(trimmed, "KEEL-")
	trimmed = strings.TrimPrefix(trimmed, "E")

	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, false
	}

	id := Id(n)
	if _, ok := issues[id]; !ok {
		return 0, false
	}
	return id, true
}

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to look up the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation links shown under "See also"
	extLinks []HttpLink  // external links that might be useful for the user
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

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- " + string(link) + "\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- " + string(link) + "\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	destinationExistsIssue = &Issue{
		id: DestinationExistsId,
		mdMsg: `
# Destination already exists!

keel refuses to install into a directory that already exists, so it can
never clobber work you already have. Nothing was downloaded and nothing
was written.

## Things you can try:
- Pick a directory that does not exist yet:
~~~
$ keel new myproject2
~~~

- Or move the existing directory out of the way first:
~~~
$ mv myproject myproject.bak
$ keel new myproject
~~~`,
	}

	downloadFailedIssue = &Issue{
		id: DownloadFailedId,
		mdMsg: `
# Package can not be downloaded!

The starter-kit archive could not be fetched from the registry. This covers
network trouble (DNS, timeouts), HTTP errors (404, 5xx), and downloads that
arrive empty or truncated.

## Things you can try:
- Check your network connection and any proxy settings
- Verify the release exists:
~~~
$ keel new myproject --release v2.1.0
~~~
- Check the registry URL template in your config:
~~~
$ cat ~/.config/keel/config.cue
~~~
- Retry in a minute; registries have bad moments too`,
	}

	archiveCorruptedIssue = &Issue{
		id: ArchiveCorruptedId,
		mdMsg: `
# Downloaded archive is corrupted!

The archive downloaded fully but cannot be parsed as a valid archive of its
format. The partially extracted destination and the temporary download were
both removed.

## Things you can try:
- Run the install again; a fresh download usually fixes a bad transfer
- Check whether a proxy or captive portal is rewriting responses
- Try a different release version to rule out a broken upload`,
	}

	archiveEmptyIssue = &Issue{
		id: ArchiveEmptyId,
		mdMsg: `
# Downloaded archive is empty!

The archive is structurally valid but contains no files at all. This is a
registry-side problem, not something on your machine. The destination and
the temporary download were removed.

## Things you can try:
- Try a different release version
- Report the broken archive to whoever operates your kit registry`,
	}

	extractPermissionIssue = &Issue{
		id: ExtractPermissionId,
		mdMsg: `
# Permission denied while extracting!

The archive is fine, but writing into the destination was refused by the
filesystem. The partially extracted destination was removed.

## Things you can try:
- Check who owns the parent directory:
~~~
$ ls -ld .
~~~
- Install into a directory you own, e.g. somewhere in your home directory
- Check mount flags if the target is on removable or network storage`,
	}

	extractFailedIssue = &Issue{
		id: ExtractFailedId,
		mdMsg: `
# Extraction failed!

The archive could not be unpacked for a reason other than corruption,
emptiness, or a permission error. A full disk and unsupported archive
entries are the usual suspects. The destination was removed.

## Things you can try:
- Check free disk space:
~~~
$ df -h .
~~~
- Check filesystem permissions on the destination's parent
- Re-run the install; if it keeps failing, inspect the archive by hand`,
	}

	dependencyInstallFailedIssue = &Issue{
		id: DependencyInstallFailedId,
		mdMsg: `
# Dependency installation failed!

The external dependency manager exited with a non-zero status. **Your
project directory was NOT deleted**; the extracted sources are intact, only
the dependency step is incomplete.

## Things you can try:
- Re-run the manager yourself inside the project to see the full error:
~~~
$ cd myproject && composer install --optimize
~~~
- Check that the dependency manager is installed and on your PATH
- Fix whatever it complains about (auth tokens, platform requirements,
  disk space) and re-run it; there is no need to re-download the kit`,
	}

	dependencyInstallTimeoutIssue = &Issue{
		id: DependencyInstallTimeoutId,
		mdMsg: `
# Dependency installation timed out!

The dependency manager ran longer than the configured deadline and was
terminated. **Your project directory was NOT deleted**; re-running the
manager by hand will resume from its own caches.

## Things you can try:
- Re-run without a deadline:
~~~
$ cd myproject && composer install --optimize
~~~
- Raise the limit:
~~~
$ keel new myproject --timeout 30m
~~~
- Slow mirrors are the usual cause; check the manager's mirror settings`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Your keel config file exists but could not be loaded or failed schema
validation.

## Configuration file locations:
- Linux: ~/.config/keel/config.cue
- macOS: ~/Library/Application Support/keel/config.cue
- Windows: %APPDATA%\keel\config.cue

## Things you can try:
- Check the reported line and field; the message carries the CUE path
- Regenerate a commented default config:
~~~
$ keel init --force
~~~
- Remove the file entirely to fall back to built-in defaults`,
	}

	skeletonUnknownIssue = &Issue{
		id: SkeletonUnknownId,
		mdMsg: `
# Unknown skeleton!

No skeleton with that name exists in the registry manifest.

## Things you can try:
- List what the registry actually offers:
~~~
$ keel skeleton list
~~~
- Check the spelling; names are matched exactly`,
	}

	projectMarkerMissingIssue = &Issue{
		id: ProjectMarkerMissingId,
		mdMsg: `
# Not a keel project!

The directory has no .keel.toml marker, so keel cannot tell which kit
version it holds or which skeletons are already installed.

## Things you can try:
- Run the command from the project root created by 'keel new'
- Pass the project directory explicitly:
~~~
$ keel skeleton add auth ./myproject
~~~`,
	}

	issues = map[Id]*Issue{
		destinationExistsIssue.Id():        destinationExistsIssue,
		downloadFailedIssue.Id():           downloadFailedIssue,
		archiveCorruptedIssue.Id():         archiveCorruptedIssue,
		archiveEmptyIssue.Id():             archiveEmptyIssue,
		extractPermissionIssue.Id():        extractPermissionIssue,
		extractFailedIssue.Id():            extractFailedIssue,
		dependencyInstallFailedIssue.Id():  dependencyInstallFailedIssue,
		dependencyInstallTimeoutIssue.Id(): dependencyInstallTimeoutIssue,
		configLoadFailedIssue.Id():         configLoadFailedIssue,
		skeletonUnknownIssue.Id():          skeletonUnknownIssue,
		projectMarkerMissingIssue.Id():     projectMarkerMissingIssue,
	}
)

func Values() []*Issue {
	vals := maps.Values(issues)
	slices.SortFunc(vals, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return vals
}

func Get(id Id) *Issue {
	return issues[id]
}
