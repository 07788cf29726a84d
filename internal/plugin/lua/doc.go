// Package lua runs scripted actions written in Lua.
//
// A script registers one or more actions by calling the global action
// function with a table:
//
//	action {
//	    name       = "script.centre_nose",
//	    display    = "Centre on nose",
//	    refresh_on = { "load", "select", "landmarks" },
//	    undo       = { "affine" },
//	    allowed    = function(doc) return doc ~= nil and doc:landmark("nose") ~= nil end,
//	    run        = function(doc)
//	        local x, y, z = doc:landmark("nose")
//	        doc:translate(-x, -y, -z)
//	    end,
//	}
//
// Event names are those of the event package. When undo is set an automatic
// undo state for those events is stored before run; result defaults to the
// undo events. run and allowed receive a doc object:
//
//	doc:name()                     display name
//	doc:vertex_count()             number of vertices
//	doc:vertex(i)                  x, y, z of vertex i (1-based)
//	doc:set_vertex(i, x, y, z)
//	doc:bounds()                   minx, miny, minz, maxx, maxy, maxz
//	doc:translate(x, y, z)
//	doc:scale(s)
//	doc:landmarks()                sorted landmark names
//	doc:landmark(name)             x, y, z or nil
//	doc:set_landmark(name, x, y, z)
//	doc:remove_landmark(name)      true if it existed
//	doc:meta(key)                  value or nil
//	doc:set_meta(key, value)
//
// The global status(msg) posts a status message.
//
// # Sandbox
//
// Only the base, table, string and math libraries are opened. dofile,
// loadfile, load and loadstring are removed and require only resolves the
// opened libraries. Every call runs under a context so that a timeout or
// EndNow stops the script.
package lua
