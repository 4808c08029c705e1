package botengine

// Version is the release version, set at build time with
// -ldflags "-X github.com/malcolmmathew-zz/bot-engine.Version=...".
var Version = "dev"
