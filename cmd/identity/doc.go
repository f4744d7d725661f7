// Package identity holds scribe's user model and its persistence.
//
// A user is created on sign-up (unverified) or on first OAuth login
// (verified by the provider). The only lifecycle transition is setting
// EmailVerified. Users are never deleted here.
package identity
