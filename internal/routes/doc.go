// Package routes loads the connector's routing configuration.
//
// A RouteConfig names the databases a submission can be written to, the
// ordered rules that pick one of them from payload fields, and the alias used
// when no rule matches. Configuration comes from the first Source that yields
// a parseable document: a per-tenant document in Redis, an explicit path, or
// one of the conventional db-routes.json locations. With no source the
// connector runs in single-database mode.
//
// Connection values may be literals or "env:NAME" tokens. Tokens are resolved
// by ResolveValue each time a target is computed, never at load time, so a
// rotated secret takes effect without editing or reloading the file.
package routes
