// Package alerts fires an alert when a bench of an appended entry regresses
// beyond the configured ratio against its baseline, and resolves it once a
// later entry is back under the threshold. Notifications are delivered to
// Slack, Teams, or generic HTTP webhooks.
package alerts
