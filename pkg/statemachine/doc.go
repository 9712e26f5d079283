// Package statemachine provides a small finite state machine with guards
// and actions.
//
// A Definition holds the transition table and is built once. Machines are
// cheap views over a definition: New starts at the initial state and
// Restore resumes from a state loaded from storage, which is how
// multi-request flows keep their position between calls.
//
//	def := statemachine.MustDefine("intro",
//	    statemachine.WithTransition("intro", "scan", "secret_generated"),
//	    statemachine.WithTransition("scan", "verify", "code_entry_opened",
//	        statemachine.WithAction(logTransition),
//	    ),
//	)
//
//	m, err := def.Restore(session.State)
//	if err != nil {
//	    return err
//	}
//	if err := m.Fire(ctx, "code_entry_opened", nil); err != nil {
//	    return err
//	}
//	session.State = m.Current()
//
// Actions run before the state changes; an action error leaves the machine
// where it was.
package statemachine
