// Package constants provides application-wide constant values for autosave.
//
// It holds the banner shown by --logo and the default names shared by the
// config, lock and watcher packages, so each default is spelled once.
//
// # Usage
//
//	import "github.com/bashhack/autosave/internal/constants"
//
//	func displayLogo() {
//	    fmt.Println(constants.Logo)
//	    fmt.Println(constants.Tagline)
//	}
package constants
