// Command hotspot groups geolocated incident reports into weighted hotspot
// clusters, either once from the command line or as an HTTP service.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
