/*
Package templating provides a small filesystem-based html/template host whose
function map is backed by a filters.Registry.

Every registered filter is callable by name from template text, and so is any
name nobody registered: when a template uses an undefined function, the
manager binds that name to the registry's fallback and parses again. The
generic "filter" function reaches any name explicitly, e.g.
{{filter "mango" .Title}}.

Filter output is inserted as template.HTML, so it is not escaped.
*/
package templating
