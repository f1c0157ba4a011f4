// Package routing decides which database a submission or query is served from.
//
// # Precedence
//
// Engine.Resolve walks five tiers and stops at the first that yields a target:
//
//  1. Injected config: the caller names an environment variable holding the
//     connection string. An unset variable fails the request outright.
//  2. Dynamic convention: a requested alias maps to MONGODB_URI_<ALIAS>, with
//     database name postpipe_<alias>.
//  3. Rules: the first configured rule whose field matches its pattern picks
//     an alias.
//  4. Config default: the requested alias if it is configured, else the rule
//     target, else defaultTarget. Its env: tokens are resolved at call time.
//  5. Process default: MONGODB_URI and MONGODB_DB_NAME.
//
// An empty resolved URI is a routing error; nothing is ever written to an
// unresolved target.
//
// # Rule fields
//
// Rule fields are gjson paths into the payload's JSON form, so "formName"
// reads the top-level key and "data.plan" reads into the submitted data.
// A field that is absent or not a string never matches.
//
// # Usage
//
//	engine := routing.NewEngine(cfg, routing.Defaults{URI: uri, DBName: "postpipe"}, logger)
//	input, err := routing.InputFromPayload(payload)
//	target, err := engine.Resolve(input)
package routing
