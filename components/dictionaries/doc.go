// Package dictionaries serves option lists over HTTP in the payload shape the
// httpclient data-access client reads: {"data": [{"value": ..., "label": ...}]}.
//
// Routes are registered on a gorilla/mux router:
//
//	GET {base}/api/dictionaries            list of known sources
//	GET {base}/api/dictionaries/{source}   options of one source
//
// The options route accepts a search query (q) and a limit; matches whose
// label or value starts with the query sort ahead of inner matches.
package dictionaries
