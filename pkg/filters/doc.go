/*
Package filters provides the host-owned filter registry: a table mapping
filter names to text transforms, with an optional catch-all fallback that
answers for any name nobody registered.

Providers expose their transforms through the Provider interface and are
registered once at start-up, either into a Registry created with NewRegistry
or into the process-wide registry returned by Default. Callers then invoke
transforms by name through Apply, which routes unknown names to the
fallback instead of failing.
*/
package filters
