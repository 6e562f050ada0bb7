// Package profile captures runtime profiles of the current process on
// demand.
//
// A [Host] implements [session.Worker]: each session started on it begins
// CPU profiling into memory (if enabled) and, when stopped, collects the CPU
// profile plus any configured snapshot profiles (heap, allocs, goroutine,
// threadcreate, block, mutex) into a [session.Artifact].
//
// Typical usage creates a [Config], registers flags, then creates a [Host]
// and hands it to a session controller:
//
//	cfg := profile.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//	cfg.RegisterCompletions(rootCmd)
//
//	host := cfg.NewHost(logger)
//	ctrl := session.NewController(host, l)
//
// Users can then choose what a session captures via flags like
// --snapshot=heap,goroutine or --cpu=false.
package profile
