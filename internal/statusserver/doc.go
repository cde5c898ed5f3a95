// Package statusserver publishes the device lists over HTTP.
//
// Endpoints:
//
//	GET /devices   current status as JSON
//	GET /ws        WebSocket; receives the current status on connect and
//	               again after every refresh
//
// The server reloads the lists on a fixed interval through the same
// per-call service the dashboard uses, so each refresh opens and closes its
// own bus session. A failed load is published too, with the error set and
// the previous lists left in place.
//
// Example:
//
//	srv := statusserver.New(statusserver.Config{Listen: "127.0.0.1:7321"}, svc)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package statusserver
