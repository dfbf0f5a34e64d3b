// Package http contains the HTTP handlers for the JSON API. Handlers stay
// thin: request binding, validation and response rendering; all business
// logic lives in the services layer.
package http
