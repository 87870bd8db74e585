// Package ratelimit paces requests to search providers and image origins.
//
// A Pacer is a token bucket of size one refilled every interval, built on
// golang.org/x/time/rate. It is advisory politeness, not a quota: the
// harvester uses one pacer for result pages and another between downloads.
//
//	pacer := ratelimit.NewPacer(300 * time.Millisecond)
//	for page := range pages {
//	    if err := pacer.Wait(ctx); err != nil {
//	        return err
//	    }
//	    fetch(page)
//	}
package ratelimit
