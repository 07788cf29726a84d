// Package actions provides the built-in facekit actions.
//
// Actions are grouped by namespace: model (load, select, close, undo, redo),
// edit (transform, metadata, landmark rename), view (camera reset and
// overlay toggles) and analysis (landmark detection, remeshing, curvature).
// Heavy geometry work is delegated to collaborators such as Detector and
// Remesher; user input is requested through a Prompter.
//
// Builtin returns every action in registration order:
//
//	set := actions.Builtin(actions.Collaborators{
//		Loader:   objLoader,
//		Prompter: dialogs,
//	})
//	eng.Register(set.Actions...)
//	eng.Finalise()
package actions
