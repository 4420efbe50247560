package version

// Tag is set at build time via -ldflags "-X ...version.Tag=v1.2.3"
var Tag = "dev"
