// Package notify delivers submission notifications over the Discord API:
// webhook posts, direct messages, and guild role assignment. Every delivery
// is a single attempt; retry policy beyond 429 handling lives in the
// transport client, not here.
package notify
