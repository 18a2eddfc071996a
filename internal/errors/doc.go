// Package errors provides structured, coded errors for livehooks.
//
// Every failure that crosses a package boundary carries a short code
// (e.g. "E061") that maps to a registered template with a message, a
// longer explanation and a documentation link. Codes are grouped by
// category:
//   - runtime: hook registration and lifecycle problems
//   - protocol: connection, CSRF and message format problems
//   - security: remote-exec requests rejected by the allow-list
//   - config: configuration file problems
//   - storage: persistence problems
//
// # Usage
//
//	token, err := live.CSRFToken(doc)
//	if err != nil {
//	    // err is *errors.LiveError with Code "E061"
//	}
//
//	return errors.New("E120").Wrap(err).WithSuggestion("Check livehooks.yaml syntax")
package errors
