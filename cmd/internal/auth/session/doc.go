// Package session implements scribe's cookie sessions.
//
// A session token is an opaque random string handed to the browser once and
// stored only as a hash. Lifetime is fixed at creation (30 days by default);
// there is no sliding renewal. Lookups treat absent and expired sessions the
// same way: no session.
package session
