// Package shutdown runs cleanup hooks when the process receives SIGINT or
// SIGTERM.
//
// Usage:
//
//	ctx, stop := shutdown.WithSignals(context.Background())
//	defer stop()
//	h := shutdown.NewHandler(10*time.Second, logger)
//	h.OnShutdown("catalog", func(context.Context) error { return catalog.Close() })
//	return h.Wait(ctx)
package shutdown
