// Package model defines the data structures used throughout the application.
package model

// User is the authenticated principal of a request.
//
// Users are created and destroyed by the managed auth service; this server
// only ever reads them, once per request, and never persists them.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}
