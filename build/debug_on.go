// +build debug

package build

// DEBUG indicates wether it is a debug build,
// and if so panics will be thrown, where not strictly necessary for
// operational purposes.
const DEBUG = true
