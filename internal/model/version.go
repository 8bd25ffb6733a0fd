package model

// VersionSpec describes one runtime version known to the manifest.
// Exactly one of URL or File points at a retrievable artifact; SHA is the
// hex sha256 the artifact bytes must match before it is trusted.
type VersionSpec struct {
	Version string `toml:"-"`
	URL     string `toml:"url,omitempty"`
	File    string `toml:"file,omitempty"`
	SHA     string `toml:"sha"`
}
