// Command nyx infers, marks, makes, and publishes releases from a Git
// repository's commit history and configuration.
package main

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		exitWithError(err)
	}
}
