// Package services contains the business logic layer between the transport
// handlers and the ingestion cache. Services own response shaping; handlers
// own HTTP concerns only.
package services
