/*
Package analysis is the client side of the remote SQL analysis service.

The service owns SQL normalization, fingerprinting, table extraction and
invalidation target computation. This package only maps requests and
responses:

	POST   /analyze              {sql, params}              -> QueryAnalysis
	POST   /register             {sql, params, result, ttl} -> ack
	GET    /cache/{fingerprint}                             -> {result}
	POST   /invalidate           {sql, params}              -> ack
	DELETE /table/{name}                                    -> ack
	GET    /stats                                           -> stats object

Every call is bounded by Config.Timeout in addition to the caller's context.
*/
package analysis
