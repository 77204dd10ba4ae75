package middleware

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gofiber/fiber/v3"
)

// Field length limits.
const (
	MaxVideoIDLen   = 16
	MaxChannelIDLen = 32
	MaxQueryLen     = 100
	DefaultJobLimit = 20
	MaxJobLimit     = 100
)

var (
	// videoIDRe matches YouTube video IDs: alphanumeric, dash, underscore.
	videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	// channelIDRe matches YouTube channel IDs.
	channelIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateVideoID checks that a video ID is well-formed and within DB limits.
func ValidateVideoID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "videoId is required"
	}
	if len(id) > MaxVideoIDLen {
		return "", "videoId must be at most 16 characters"
	}
	if !videoIDRe.MatchString(id) {
		return "", "videoId contains invalid characters"
	}
	return id, ""
}

// ValidateChannelID checks that a channel ID is well-formed.
func ValidateChannelID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "channelId is required"
	}
	if len(id) > MaxChannelIDLen {
		return "", "channelId must be at most 32 characters"
	}
	if !channelIDRe.MatchString(id) {
		return "", "channelId contains invalid characters"
	}
	return id, ""
}

// ValidateQuery trims a search query, collapses inner whitespace and rejects
// empty, overlong or control-character input. Length is counted in runes.
func ValidateQuery(q string) (string, string) {
	if !utf8.ValidString(q) {
		return "", "q must be valid UTF-8"
	}
	for _, r := range q {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return "", "q contains invalid characters"
		}
	}
	q = strings.Join(strings.Fields(q), " ")
	if q == "" {
		return "", "q is required"
	}
	if utf8.RuneCountInString(q) > MaxQueryLen {
		return "", "q must be at most 100 characters"
	}
	return q, ""
}

// ValidateMode accepts "momentum" or "proven", case-insensitively. Empty
// defaults to momentum.
func ValidateMode(mode string) (string, string) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "":
		return "momentum", ""
	case "momentum", "proven":
		return mode, ""
	default:
		return "", "mode must be one of: momentum, proven"
	}
}

// ValidateLimit parses an optional positive limit, clamped to max.
func ValidateLimit(raw string, def, max int) (int, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, ""
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, "limit must be a positive integer"
	}
	if n > max {
		n = max
	}
	return n, ""
}
