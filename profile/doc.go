// Package profile records runtime profiles around a vgutils command.
//
// CPU profiles and execution traces cover the whole run. Heap and allocs
// profiles are snapshots taken when the run ends. Every output is optional
// and enabled by giving it a path:
//
//	cfg := profile.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//
//	err := cfg.NewProfiler().Run(func() error {
//	    return rootCmd.Execute()
//	})
package profile
