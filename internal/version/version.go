package version

// Version is the current version of qdt.
// Can be overridden at build time with -ldflags "-X ...version.Version=..."
var Version = "0.4.0"

// Name is the application name.
const Name = "qdt"

// Description is a short description of the application.
const Description = "Quant research data toolkit"
