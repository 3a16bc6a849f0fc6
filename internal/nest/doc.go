// Package nest is a client for the Nest thermostat mobile API.
//
// A Client logs in, fetches the account's full status into an in-memory
// Cache, sends conditional updates (temperature, away, fan mode, target
// temperature type) and long-polls for changes.
//
// # Status and Versions
//
// The status is a Snapshot: category (shared, device, structure, ...) → entity
// id → Record. Every Record carries the "$version" and "$timestamp" the
// service last reported for it. Updates are sent with X-nl-base-version set to
// the cached version, so the service can reject a write based on stale state.
// Updates do not touch the cache; the next FetchStatus or Subscribe does.
//
// # Subscriptions
//
// Subscribe sends one long-poll listing a SubscriptionKey for every entity of
// the requested categories, then applies the single changed record the
// service answers with:
//
//	client := nest.NewClient()
//	if _, err := client.Login(ctx, user, pass); err != nil {
//	    return err
//	}
//	if _, err := client.FetchStatus(ctx); err != nil {
//	    return err
//	}
//	for {
//	    update, err := client.Subscribe(ctx, nest.CategoryShared, nest.CategoryEnergyLatest)
//	    if err != nil {
//	        return err
//	    }
//	    if update != nil {
//	        fmt.Println(update.Category, update.EntityID)
//	    }
//	    time.Sleep(2 * time.Second)
//	}
//
// Watch wraps that loop. Nothing in the package retries on its own.
//
// # Error Handling
//
// Every failure is a *Error with a Kind. Calling an operation before Login or
// before FetchStatus is KindPrecondition; bad categories, fan modes,
// temperature types and ids are KindInvalidArgument. Both are returned before
// any request is made.
package nest
