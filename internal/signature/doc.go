// Package signature verifies that ingest requests come from the PostPipe
// dashboard holding the shared connector secret.
//
// A request is signed with HMAC-SHA256 over its raw body, hex encoded, in the
// X-PostPipe-Signature header:
//
//	X-PostPipe-Signature: sha256=5d41402abc4b2a76b9719d911017c592...
//
// The "sha256=" prefix is optional. Requests without the header may carry the
// signature in the payload's "signature" field instead; it then covers the
// raw JSON of the "data" object exactly as sent.
//
// Signed payloads must also carry a timestamp within five minutes of the
// connector's clock, and identifiers that are safe to use as collection
// names:
//
//	verifier := signature.NewVerifier(signature.Config{Secret: secret}, logger)
//	body, _ := signature.PreserveRequestBody(r)
//	if err := verifier.Verify(r, body); err != nil {
//	    http.Error(w, "Invalid signature", http.StatusUnauthorized)
//	    return
//	}
//
// Reads use the same secret as a bearer token; see CheckBearer.
package signature
