package compliancehub

// BuildVersion carries the JSON build information of the binary. It is
// replaced at link time with -ldflags "-X github.com/openkcm/compliance-hub.BuildVersion=...".
var BuildVersion = "{}"
