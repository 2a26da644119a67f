// Package version reports the gokiota library version used in User-Agent
// product tokens and by kiotactl.
//
// Release builds of kiotactl set the values through -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/gokiota/version.Version=1.0.0" ./cmd/kiotactl
//
// When the library is linked into another binary the version recorded in
// the module build info is used instead.
package version
