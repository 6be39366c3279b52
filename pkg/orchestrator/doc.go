// Package orchestrator binds an ordered descriptor set to a data-access
// client. An Orchestrator seeds or fetches the entity being edited, resolves
// remote dictionaries, gates submissions through validation, and serialises
// save and delete calls behind a single in-flight flag.
//
// Lifecycle:
//
//	o := orchestrator.New("users", fields, client,
//		orchestrator.WithBaseParams(dataaccess.Params{"tenant": "acme"}),
//	)
//	defer o.Close()
//
//	if err := o.Initialize(ctx, orchestrator.Target{Mode: orchestrator.ModeAuto, ID: "42"}); err != nil {
//		return err
//	}
//	_ = o.Wait(ctx) // entity and dictionaries settled
//
//	_ = o.SetValue("name", "Ada")
//	if o.Validate(nil) {
//		_, err = o.Save(ctx, nil)
//	}
//
// Status moves Loading -> Ready, then Saving -> Ready|Error or
// Deleting -> Done|Error. Fetches run on their own goroutines; results that
// belong to a previous target, or arrive after Close, are discarded.
package orchestrator
