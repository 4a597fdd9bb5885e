// Package authflow is an embeddable authentication module covering the full
// local-credential lifecycle: signup with email OTP verification, cookie-based
// login/logout backed by signed JWT session tokens, and a forgot/reset
// password flow built on hashed single-use tokens.
//
// Lifecycle:
//   - Manager owns every credential transition. Secrets (the signup OTP and
//     the reset token) are generated by SecretCodec, delivered through a
//     Mailer, and persisted only as SHA-256 digests. Claiming a secret is a
//     single conditional update, so a token or OTP can be consumed at most
//     once even under concurrent requests.
//   - TokenService mints and validates the HS256 session tokens the HTTP
//     layer stores in a cookie. Validation failures collapse into a single
//     ErrNotAuthenticated so callers cannot probe why a token was rejected.
//
// Delivery:
//   - Mailer is best-effort. A failed send is logged and never rolls back the
//     state transition that triggered it. When no SMTP settings are
//     configured the module falls back to a logging mailer that prints the
//     secret instead of delivering it, which keeps the state machine usable
//     in development and tests.
//
// Wire everything with New(cfg), register the routes on a fiber app with
// Module.RegisterRoutes, and call Module.CreateSchema once for storage
// bootstrap.
package authflow
