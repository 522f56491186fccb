// Package integration contains the Integration bounded context.
// It tracks connections to external systems and outbound webhooks.
//
// Key concepts:
//   - Integration: a configured connection (API, file drop, database, EDI) with sync bookkeeping
//   - Webhook: an outbound subscription to domain events with delivery failure tracking
//
// Delivery itself is done by adapters outside the domain layer. They report
// back through Webhook.MarkDelivered and Webhook.MarkFailed.
package integration
