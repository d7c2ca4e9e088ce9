package utils

// Version is overridden by the linker at release build time.
var Version = "dev"
