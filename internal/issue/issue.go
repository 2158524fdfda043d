// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"io/fs"
	"maps"
	"slices"
	"strings"

	"github.com/scarabmm/scarab/internal/archive"
	"github.com/scarabmm/scarab/internal/checksum"
	"github.com/scarabmm/scarab/internal/dag"
	"github.com/scarabmm/scarab/internal/fetch"
	"github.com/scarabmm/scarab/internal/installer"
	"github.com/scarabmm/scarab/pkg/catalog"
	"github.com/scarabmm/scarab/pkg/modstate"
	"github.com/scarabmm/scarab/pkg/resolver"

	"github.com/charmbracelet/glamour"
)

// Id identifies an issue page.
type Id int

const (
	CatalogLoadFailedId Id = iota + 1
	ConfigLoadFailedId
	HashMismatchId
	NetworkFailureId
	FileInUseId
	PermissionDeniedId
	OverwriteDeclinedId
	PinConflictId
	DependencyCycleId
	MissingDependencyId
	RegistryNotSavedId
	UnsafeArchiveId
	NoAPIId
	IllegalTransitionId
)

type (
	MarkdownMsg string

	HttpLink string

	// Issue is a Markdown help page for one class of failure.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

func (i *Issue) Id() Id { return i.id }

func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

func (i *Issue) DocLinks() []HttpLink { return slices.Clone(i.docLinks) }

// Render renders the page for a terminal. stylePath is a glamour style
// name such as "dark", "light" or "notty".
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 {
		var sb strings.Builder
		sb.WriteString(md)
		sb.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			sb.WriteString("- <" + string(link) + ">\n")
		}
		md = sb.String()
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	issues = map[Id]*Issue{
		CatalogLoadFailedId: {id: CatalogLoadFailedId, mdMsg: `
# The catalog could not be loaded

The catalog document is missing or does not match the expected schema.

## Things you can try
- Check ` + "`catalog_path`" + ` in your config, or pass ` + "`--catalog`" + `
- Every mod needs ` + "`name`, `version` and `link`" + `; ` + "`sha256`" + ` must be 64 hex characters
- Mod names must be unique and must not contain path separators`},

		ConfigLoadFailedId: {id: ConfigLoadFailedId, mdMsg: `
# Configuration error

scarab could not read its configuration file.

## Things you can try
- Print the effective configuration:
~~~
$ scarab config show
~~~
- Check the CUE syntax of config.cue
- Durations such as ` + "`download_timeout`" + ` are written like ` + "`\"30s\"`" + ` or ` + "`\"5m\"`"},

		HashMismatchId: {id: HashMismatchId, mdMsg: `
# Download does not match the catalog

The SHA-256 of the downloaded file differs from the one the catalog declares.
Nothing was installed and the cached copy, if any, was discarded.

## Things you can try
- Retry; the download may have been truncated
- The mod author may have replaced the file without updating the catalog
- Refresh your catalog copy`},

		NetworkFailureId: {id: NetworkFailureId, mdMsg: `
# Download failed

The mod payload could not be fetched.

## Things you can try
- Check your connection and any proxy settings
- Raise ` + "`download_timeout`" + ` for slow links
- Make sure the link in the catalog is still reachable`},

		FileInUseId: {id: FileInUseId, mdMsg: `
# A file could not be moved, written or deleted

Another program may be holding one of the mod files open.

## Things you can try
- Close the game and retry
- Check that the managed folder is writable
- Nothing is half-done: the mod keeps its previous state`},

		PermissionDeniedId: {id: PermissionDeniedId, mdMsg: `
# Permission denied

scarab has no permission to change the managed folder.

## Things you can try
- Check the ownership of the game installation
- Avoid running the game and scarab as different users`},

		OverwriteDeclinedId: {id: OverwriteDeclinedId, mdMsg: `
# Destination folder already exists

A folder with the same mod name already exists where the mod would move.
Nothing was changed.

## Things you can try
- Rerun with ` + "`--yes`" + ` to replace the other copy
- Remove or rename the stray folder by hand`},

		PinConflictId: {id: PinConflictId, mdMsg: `
# Pinned mods would be affected

The operation would disable or remove mods you pinned.

## Things you can try
- Unpin them first:
~~~
$ scarab unpin <name>
~~~
- Or rerun with ` + "`--skip-pinned`" + ` to leave them alone`},

		DependencyCycleId: {id: DependencyCycleId, mdMsg: `
# Dependency cycle

Some mods in the catalog depend on each other in a loop, so no install order exists.

## Things you can try
- Install the mods of the cycle one at a time
- Report the cycle to the catalog maintainers`},

		MissingDependencyId: {id: MissingDependencyId, mdMsg: `
# Missing dependency

A mod depends on a name the catalog does not list.

## Things you can try
- The dependency may have been renamed; check the catalog
- Place a build by hand:
~~~
$ scarab place <name> ./path/to/build.zip
~~~`},

		RegistryNotSavedId: {id: RegistryNotSavedId, mdMsg: `
# Registry could not be saved

The mod folders were changed, but the installed-mods record was not written.
The next start rebuilds it from disk.

## Things you can try
- Check that the registry directory is writable and not full`},

		UnsafeArchiveId: {id: UnsafeArchiveId, mdMsg: `
# Unsafe archive rejected

The archive contains entries that would be written outside the mod folder.
Nothing was extracted.`},

		NoAPIId: {id: NoAPIId, mdMsg: `
# No API in the catalog

The catalog does not declare a modding API build, so it cannot be installed or toggled.`},

		IllegalTransitionId: {id: IllegalTransitionId, mdMsg: `
# Operation not possible in the current state

For example, a mod must be installed before it can be enabled, and enabled
before it can be pinned.

## Things you can try
- Check the mod state:
~~~
$ scarab info <name>
~~~`},
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

// Get returns the issue with id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}

// Classify maps an engine error to the issue page that explains it. A page
// pinned on an ActionableError wins. It returns nil for errors without a page.
func Classify(err error) *Issue {
	var (
		ae      *ActionableError
		pathErr *fs.PathError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae) && ae.Page != 0:
		return issues[ae.Page]
	case errors.Is(err, checksum.ErrHashMismatch):
		return issues[HashMismatchId]
	case errors.Is(err, fetch.ErrNetwork):
		return issues[NetworkFailureId]
	case errors.Is(err, archive.ErrTraversal):
		return issues[UnsafeArchiveId]
	case errors.Is(err, installer.ErrOverwriteDeclined):
		return issues[OverwriteDeclinedId]
	case errors.Is(err, installer.ErrPinConflict):
		return issues[PinConflictId]
	case errors.Is(err, installer.ErrPersist):
		return issues[RegistryNotSavedId]
	case errors.Is(err, installer.ErrNoAPI):
		return issues[NoAPIId]
	case errors.Is(err, dag.ErrCycle):
		return issues[DependencyCycleId]
	case errors.Is(err, resolver.ErrMissingDependency):
		return issues[MissingDependencyId]
	case errors.Is(err, modstate.ErrIllegalTransition):
		return issues[IllegalTransitionId]
	case errors.Is(err, fs.ErrPermission):
		return issues[PermissionDeniedId]
	case errors.Is(err, installer.ErrIO):
		return issues[FileInUseId]
	case errors.Is(err, catalog.ErrInvalidModName), errors.Is(err, catalog.ErrDuplicateMod):
		return issues[CatalogLoadFailedId]
	case errors.As(err, &pathErr):
		return issues[FileInUseId]
	}
	return nil
}
