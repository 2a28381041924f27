package formfill

// Version is the version of the form fill server and CLI. It is set at
// build time using ldflags.
var Version = "dev"
