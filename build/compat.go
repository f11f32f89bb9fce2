package build

import "github.com/Masterminds/semver"

// minPeerVersionString is the oldest protocol version this node will
// still exchange packets with. Bumped whenever a wire-format change
// breaks older nodes outright, as opposed to Version itself which
// moves on every release.
const minPeerVersionString = "1.0.0"

var minPeerVersion *semver.Version

func init() {
	v, err := semver.NewVersion(minPeerVersionString)
	if err != nil {
		panic(err)
	}
	minPeerVersion = v
}

// IsCompatiblePeerVersion reports whether a peer advertising raw as its
// protocol version may be allowed into a round. An unparsable version
// string is treated as incompatible rather than erroring, since a
// malformed handshake field is itself grounds for rejection.
func IsCompatiblePeerVersion(raw string) bool {
	peerVersion, err := semver.NewVersion(raw)
	if err != nil {
		return false
	}
	return !peerVersion.LessThan(minPeerVersion)
}
