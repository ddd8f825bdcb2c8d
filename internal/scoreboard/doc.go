// Package scoreboard is the HTTP client for the remote scoreboard service.
//
// # Endpoints
//
//	GET  /api/v1/best?mode=&track=&weather=&ticket=   best known result
//	POST /api/v1/ghosts                               upload a ghost
//	POST /api/v1/ghosts/{id}/apply                    adopt an upload as best
//	GET  /api/v1/ghosts/best?mode=&track=&weather=&ticket=
//	                                                  download the best ghost
//
// Authenticated calls carry the profile token as a bearer token.
//
// # Errors
//
// HTTP 401 and 403 map to errs.ErrInvalidToken, 409 and 410 to
// errs.ErrConditionClosed, and every other failure (status, transport or
// decoding) to errs.ErrService. Callers branch with errors.Is.
//
// Requests are rate limited per client with golang.org/x/time/rate so a
// burst of changed conditions does not flood the service.
package scoreboard
