//go:build !linux

package hidsrc

// Open always fails on platforms other than Linux; the bridge run and
// stats commands then exit with an error that points to "bridge demo".
func Open() (Source, error) {
	return nil, ErrUnsupported
}
