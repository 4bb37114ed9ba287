package config

import (
	"net/url"
	"slices"
	"strings"
)

const redacted = "***"

// RedactedConfig returns a copy of cfg that is safe to log. Secrets become
// "***"; connection URLs keep their host and lose only the password.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redactURL(&out.Supabase.DSN)
	redact(&out.Supabase.Password)
	redactURL(&out.Redis.Addr)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Server.APIKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	out.Notify.Events = slices.Clone(cfg.Notify.Events)
	out.Server.CORSOrigins = slices.Clone(cfg.Server.CORSOrigins)
	out.Normalize.Variants = slices.Clone(cfg.Normalize.Variants)
	out.Output.Sinks = slices.Clone(cfg.Output.Sinks)
	return out
}

func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

// redactURL masks the password of a URL with credentials, keeping the host.
// A key/value DSN carrying a password is masked whole; a bare host:port is
// left alone.
func redactURL(s *string) {
	switch {
	case *s == "":
	case strings.Contains(*s, "://"):
		if u, err := url.Parse(*s); err == nil {
			*s = u.Redacted()
		} else {
			*s = redacted
		}
	case strings.Contains(*s, "password="):
		*s = redacted
	}
}
