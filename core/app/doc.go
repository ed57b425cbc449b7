// Package app ties the lifetime of an actor system to host start and stop
// events.
//
// An [App] is created with the manager's handler registrations and owns the
// resulting [System]:
//
//	a := app.New(app.Config{Name: "bookstock", DrainTimeout: 10 * time.Second},
//	    manager.Handlers(),
//	)
//	sys, err := a.Start() // once, on "application started"
//	if err != nil {
//	    return err
//	}
//	client := inventory.NewClient(sys.Manager(), inventory.ClientOptions{})
//
//	// on "application stopping"; the host waits for Stop to return
//	if err := a.Stop(ctx); errors.Is(err, app.ErrDrainTimeout) {
//	    // queued messages were dropped; their callers saw actor.ErrDropped
//	}
//
// Start and Stop are the only operations that change the system's state;
// everything else reads it through the *System passed to it.
package app
