// Package models contains GORM persistence models that map to database tables.
// They are kept apart from the domain so that aggregates stay free of ORM tags.
//
// Every aggregate type shares one table, aggregate_records, holding the
// envelope columns plus the business payload as JSON. Domain events wait in
// outbox_events until the relay has published them.
package models
