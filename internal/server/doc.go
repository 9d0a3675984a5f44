// Package server provides HTTP routing, middleware, and the graph API surface.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Graph API
//
// [API] implements the [Handler] interface and serves the ingestion and
// retrieval routes: playlist import, stored artist and track listings,
// similarity recommendations, and playlist creation on the video provider.
// Errors carry a sentinel from the shared package and map onto HTTP status
// codes in one place.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow used
// by the CLI to obtain a user token for playlist creation. The handler
// validates the state parameter, exchanges the authorization code for tokens,
// and sends the result through a channel. It only processes one callback.
package server
