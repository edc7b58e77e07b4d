// Package rewrite expands a user question into several search queries.
//
// Alternative phrasings retrieve fragments that the literal question would
// miss. The Rewriter asks the generation model for numbered alternatives,
// drops headers, short lines and near-duplicates, and always keeps the
// original question as the first query. Model failures are logged and the
// question alone is returned, so rewriting can never fail a request.
package rewrite
