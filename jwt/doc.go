// Package jwt issues and verifies the signed bearer tokens handed to clients: short-lived
// auth tokens for API calls and longer-lived verification tokens for email confirmation.
// Tokens are never stored server side; validity is signature plus expiry.
package jwt
