// Package alerts implements the rule evaluation engine and webhook delivery
// for FleetPulse alerting. Rules are evaluated against incoming cycle reports;
// webhooks are delivered to Slack, Teams, or generic HTTP targets.
package alerts
