// Package oauth coordinates the authorization-code flow on behalf of agents.
//
// An agent cannot follow a browser redirect, so the flow is split in two.
// The agent asks for an authorization URL and receives a link token, which
// travels to the provider as the OAuth state parameter. When the user
// finishes signing in, the provider redirects the browser to the callback
// handler, which exchanges the code for tokens and stores them under the
// link token. From then on the agent presents the link token and the
// Service hands back a valid access token, refreshing it when needed.
//
// Per link token the lifecycle is:
//
//	uninitiated -> pending authorization -> authorized <-> expired -> revoked
//
// Nothing is stored while authorization is pending. A refresh the provider
// rejects deletes the record, so the user has to authorize again. A refresh
// that cannot reach the provider leaves the record for the next attempt.
package oauth
