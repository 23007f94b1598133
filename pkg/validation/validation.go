package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// EmailRegex validates email format
	EmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// UsernameRegex validates channel handle format
	UsernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// YouTubeURLRegex accepts both watch and embed forms of a YouTube URL
	YouTubeURLRegex = regexp.MustCompile(`^(https://www\.youtube\.com/(watch\?v=|embed/))[a-zA-Z0-9_-]+$`)

	// ImageURLRegex validates direct links to common image formats
	ImageURLRegex = regexp.MustCompile(`(?i)^https?://.*\.(?:png|jpg|jpeg|gif|bmp|webp)$`)
)

// ValidateEmail validates email address
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 254 {
		return fmt.Errorf("email is too long (max 254 characters)")
	}
	if !EmailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateUsername validates username
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}
	if len(username) > 50 {
		return fmt.Errorf("username is too long (max 50 characters)")
	}
	if !UsernameRegex.MatchString(username) {
		return fmt.Errorf("username contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidatePassword validates password
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	if len(password) > 128 {
		return fmt.Errorf("password is too long (max 128 characters)")
	}
	return nil
}

// ValidateYouTubeURL validates a stream URL. Both watch and embed forms are
// accepted; NormalizeYouTubeEmbed converts to the embed form for storage.
func ValidateYouTubeURL(urlStr string) error {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return fmt.Errorf("stream URL is required")
	}
	if !YouTubeURLRegex.MatchString(urlStr) {
		return fmt.Errorf(`stream URL must be in the format "https://www.youtube.com/watch?v=[ID]"`)
	}
	return nil
}

// NormalizeYouTubeEmbed rewrites a watch URL to its embeddable form.
func NormalizeYouTubeEmbed(urlStr string) string {
	return strings.Replace(strings.TrimSpace(urlStr), "watch?v=", "embed/", 1)
}

// ValidateImageURL validates a direct image link
func ValidateImageURL(urlStr string) error {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return fmt.Errorf("image URL is required")
	}
	if len(urlStr) > 2048 {
		return fmt.Errorf("image URL is too long (max 2048 characters)")
	}
	if !ImageURLRegex.MatchString(urlStr) {
		return fmt.Errorf("image URL must point to a png, jpg, jpeg, gif, bmp or webp file")
	}
	return nil
}

// ValidateEmote validates a custom emote entry
func ValidateEmote(name, urlStr string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("emote name is required")
	}
	if utf8.RuneCountInString(name) > 32 {
		return fmt.Errorf("emote name is too long (max 32 characters)")
	}
	if err := ValidateImageURL(urlStr); err != nil {
		return fmt.Errorf("emote %q: %w", name, err)
	}
	return nil
}

// ValidateURL validates URL format
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid URL scheme (must be http, https, ws, or wss)")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
