package graph

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrNotConfigured = errors.New("microsoft graph is not configured")

const setupSteps = "register an application in Microsoft Entra ID, create a client secret, " +
	"grant the application permissions Mail.Send and Calendars.ReadWrite with admin consent, " +
	"then set the variables in the server environment"

// ConfigError lists the environment variables that are missing.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: missing %s; %s", ErrNotConfigured, strings.Join(e.Missing, ", "), setupSteps)
}

func (e *ConfigError) Unwrap() error { return ErrNotConfigured }

// TokenError is a failure at the OAuth token endpoint, almost always bad client credentials.
type TokenError struct {
	Status      int
	Code        string
	Description string
	Err         error
}

func (e *TokenError) Error() string {
	msg := "graph token request failed"
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Description != "" {
		msg += ": " + e.Description
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TokenError) Unwrap() error { return e.Err }

// APIError is a non-2xx answer from a Graph endpoint.
type APIError struct {
	Status  int
	Code    string
	Message string
	Hint    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("graph api %d", e.Status)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func hintFor(status int) string {
	switch status {
	case http.StatusForbidden:
		return "the app registration lacks the Mail.Send or Calendars.ReadWrite application permission, or admin consent was not granted"
	case http.StatusUnauthorized:
		return "the client id or secret is invalid or the secret has expired"
	case http.StatusNotFound:
		return "the sender mailbox does not exist or has no Exchange Online license"
	}
	return ""
}
