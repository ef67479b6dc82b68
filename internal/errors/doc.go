// Package errors provides coded, actionable error messages for Lime.
//
// Every user-visible failure of the runtime carries a code (e.g., "L001")
// that maps to:
//   - a short message describing the error
//   - a detailed explanation
//   - a category (startup, script, network, config, cli)
//
// Script errors raised by the Lua engine carry a "file:line:" prefix. The
// package extracts it into a Location and reads the surrounding source
// lines so terminal output can point at the failing statement.
//
// # Usage
//
//	err := errors.New("L010").
//	    WithLocationFromError(luaErr).
//	    WithSuggestion("Check the arguments passed to Network.send")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR L010: Script runtime error
//	//
//	//   scripts/main.lua:12
//	//
//	//     10 │ function Lime.OnUpdate(dt)
//	//     11 │     local p = nil
//	//   → 12 │     p.x = 1
//	//     13 │ end
//	//
//	//   A top-level script handler raised an error. The application ends.
package errors
