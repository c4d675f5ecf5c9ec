// Callisto is a policy evaluation engine built on three-valued
// unification: evaluating a policy against a partial document yields
// satisfied, a conflict with witnesses, or a residual naming the data
// still missing.
//
// Usage:
//
//	# Evaluate a policy against a JSON document
//	callisto eval --policy access/is-admin --doc request.json --file policies.yaml
//
//	# Run a compiled checker over a document
//	callisto check --policy access/is-admin --doc request.json --file policies.yaml
//
//	# Validate module files
//	callisto lint --file policies.yaml
//
//	# Print the logical complement of an expression
//	callisto negate '[":=", ":doc/role", "admin"]'
//
//	# Reload modules on change until interrupted
//	callisto watch --file policies/
//
//	# Query the decision log
//	callisto decisions query --outcome conflict --limit 20
//
// For complete documentation, see: https://github.com/mercator-hq/callisto
package main

func main() {
	Execute()
}
