// Package authgate is an embeddable authentication and authorization
// engine: account signup with email verification, password + OTP
// two-factor sign-in, password reset, email change, opaque session
// tokens with single/bulk/global revocation, a roles-to-permissions
// access model with an unconditional SUPER_ADMIN bypass, and an
// append-only audit trail covering every privileged mutation.
//
// The engine is assembled through a Builder:
//
//	st := memstore.New()
//	engine, err := authgate.New().
//		WithStore(st).
//		WithRedis(redisClient).
//		WithMailers(smtpMailer, apiMailer).
//		Build()
//
// All persistence goes through the store.Store capability; memstore
// serves development and tests, gormstore serves Postgres. Rate
// limiting counts in Redis with an in-process fallback. Delivery walks
// an ordered mailer chain and only an exhausted chain counts as a
// failure. Audit records are written synchronously through the store
// and mirrored asynchronously to an optional sink.
package authgate
