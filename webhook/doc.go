// Package webhook receives vote deliveries over HTTP.
//
// A Router authenticates the shared secret carried in the Authorization
// header, decodes the JSON body into a core.Vote and awaits the configured
// core.VoteHandler before answering 200. Authentication and decode failures
// both answer 401 with an empty body so callers cannot tell them apart.
package webhook
