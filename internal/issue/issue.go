// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	ConfigLoadFailedId Id = iota + 1
	NoModulesFoundId
	ModuleLoadFailedId
	ExtendsCycleId
	InvalidRegistryId
	ServerStartFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
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

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as styled terminal Markdown. stylePath is a glamour
// style name ("dark", "light", "notty") or a path to a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, links := range [][]HttpLink{i.docLinks, i.extLinks} {
			for _, link := range links {
				md.WriteString("- <" + string(link) + ">\n")
			}
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded

palette reads ` + "`config.cue`" + ` from its configuration directory, the current
directory, or the file passed with ` + "`--config`" + `.

## Things you can try:
- Print the built-in defaults and compare:
~~~
$ palette config dump
~~~
- Check where palette looks for the file:
~~~
$ palette config path
~~~
- Make sure every key is one of: search_paths, includes, default_mode, component,
  log_level, server, watch, roles, identities.`,
		extLinks: []HttpLink{"https://cuelang.org/docs/tour/"},
	}

	noModulesFoundIssue = &Issue{
		id: NoModulesFoundId,
		mdMsg: `
# No palette modules found

No directory named ` + "`<module-id>.palettemod`" + ` was found under the configured
search paths or includes, so the registry is empty.

## Example module layout:
~~~
modules/
  com.example.blog.palettemod/
    palettemod.cue
    commands.cue
~~~

~~~cue
// palettemod.cue
module:  "com.example.blog"
version: "1.0.0"
~~~`,
	}

	moduleLoadFailedIssue = &Issue{
		id: ModuleLoadFailedId,
		mdMsg: `
# A module could not contribute its commands

A module failed to load, or one of the declarations in its override chain
failed to produce a fragment. The whole composition cycle was aborted and the
published registry was reset to empty.

## Things you can try:
- Validate the module directory:
~~~
$ palette module validate ./modules/com.example.blog.palettemod
~~~
- Check that ` + "`commands.cue`" + ` only uses ` + "`owner.id`" + ` and ` + "`owner.version`" + ` from its scope.`,
	}

	extendsCycleIssue = &Issue{
		id: ExtendsCycleId,
		mdMsg: `
# Modules extend each other in a cycle

Each module may extend at most one base, and following ` + "`extends`" + ` must
eventually reach a module that extends nothing.

## Things you can try:
- Remove the ` + "`extends`" + ` field from one of the modules listed in the error.`,
	}

	invalidRegistryIssue = &Issue{
		id: InvalidRegistryId,
		mdMsg: `
# The merged registry is not structurally valid

After merging every module, a command or group broke a structural rule. The
error names the entry and the rule. Because the registry is validated as a
whole, the offending declaration may come from any module.

## Command rules:
- ` + "`type`" + ` must be ` + "`\"item\"`" + `
- ` + "`label`" + ` and ` + "`shortcut`" + ` must be strings
- ` + "`action`" + ` must be an object with a string ` + "`type`" + ` and an object ` + "`payload`" + `
- ` + "`permission`" + `, when present, needs string ` + "`action`" + ` and ` + "`type`" + `
- ` + "`modal`" + `, when present, must be a string

## Group rules:
- ` + "`label`" + ` must be a string and ` + "`fields`" + ` a list of command names`,
	}

	serverStartFailedIssue = &Issue{
		id: ServerStartFailedId,
		mdMsg: `
# The palette server could not start

## Things you can try:
- Pick another port:
~~~
$ palette serve --port 23235
~~~
- Check that ` + "`server.host_key_path`" + ` points to a writable location.`,
	}

	catalog = []*Issue{
		configLoadFailedIssue,
		noModulesFoundIssue,
		moduleLoadFailedIssue,
		extendsCycleIssue,
		invalidRegistryIssue,
		serverStartFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	return slices.Clone(catalog)
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	idx := slices.IndexFunc(catalog, func(i *Issue) bool { return i.id == id })
	if idx < 0 {
		return nil
	}
	return catalog[idx]
}
