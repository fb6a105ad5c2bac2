package chat

// adapter converts one platform's raw export bytes into the canonical model.
// Adapters are pure: no side effects, and malformed input yields an empty
// conversation rather than an error.
type adapter interface {
	parse(raw []byte) ParsedConversation
}

var adapters = map[string]adapter{
	PlatformWhatsApp:  whatsappAdapter{},
	PlatformTelegram:  telegramAdapter{},
	PlatformInstagram: instagramAdapter{},
	PlatformDiscord:   discordAdapter{},
}

// SupportedPlatform reports whether a platform hint has a registered adapter.
func SupportedPlatform(platform string) bool {
	_, ok := adapters[platform]
	return ok
}

// Parse converts a raw export into a ParsedConversation using the adapter
// for the given platform hint. Unknown platforms and malformed input both
// yield an empty conversation so downstream stages can apply one uniform
// insufficient-data policy.
func Parse(raw []byte, platform string) ParsedConversation {
	a, ok := adapters[platform]
	if !ok {
		return emptyConversation(platform)
	}
	if len(raw) == 0 {
		return emptyConversation(platform)
	}
	return a.parse(raw)
}
