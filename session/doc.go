// Package session owns the operator's authenticated session.
//
// # Components
//
//   - Store: the credential store. Holds the bearer token, the anti-forgery
//     (CSRF) token, the verified identity and its permission set, and is the
//     only code that touches the durable token slot.
//   - HasPermission: pure capability check over a Snapshot.
//   - Controller: the session state machine (login, verify, anti-forgery
//     refresh, logout, expiry). It is the only writer of the Store; the
//     Store's mutators are unexported so nothing outside this package can
//     change session state.
//
// # Generations
//
// Every successful login and every full reset advances the session
// generation. Operations capture the generation when they start and apply
// their result only if it is still current, so a response that was in flight
// across a logout or a second login is discarded (ErrStaleSession) instead of
// resurrecting or clobbering the newer session. Concurrent logins therefore
// resolve first-completed-wins.
//
// # States
//
//	Anonymous --Login--> Authenticating --ok--> Authenticated
//	    ^                     |  fail                 |
//	    +---------------------+                       |
//	    +------------- Logout / Verify failure -------+
//	Expired <------------ Expire (HTTP 401) ----------+
//
// A process that restores a persisted token starts Authenticated
// optimistically; callers must still Verify.
package session
