// Package verification implements the single-use email token lifecycle.
//
// Tokens carry an explicit Purpose. Verify-email tokens accumulate; issuing a
// login token replaces every earlier login token for the same identifier.
// Consumption is an atomic delete-and-return in the store, so a token can be
// redeemed at most once even under concurrent requests. An expired token is
// deleted on the same read that detects the expiry.
package verification
