package version

// Version is set at build time through -ldflags "-X".
var Version = "dev"
