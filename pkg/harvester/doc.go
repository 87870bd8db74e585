// Package harvester runs the keyword pipeline.
//
// For each keyword in order a Run queries the provider, skips URLs already
// seen in the run, fetches the rest one at a time with a pause between
// downloads, optionally records metadata for each success, and reports
// progress. The Summary holds per-keyword counts and the total.
//
//	run, err := harvester.New(cfg, ui.NewReporter(os.Stdout, false), log)
//	if err != nil {
//	    return err
//	}
//	summary := run.Harvest(ctx, cfg.Search.Keywords)
//	fmt.Println(summary.Total)
package harvester
