package insights

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const keyringService = "snipscrub"

// LookupAPIKey returns OPENAI_API_KEY when set, otherwise the key stored in
// the OS keyring for user. A missing key is not an error.
func LookupAPIKey(user string) (string, error) {
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		return k, nil
	}
	k, err := keyring.Get(keyringService, user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return k, nil
}

func StoreAPIKey(user, key string) error {
	if err := keyring.Set(keyringService, user, key); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	return nil
}

// PromptAPIKey reads a key from the terminal on fd without echoing it and
// stores it in the keyring.
func PromptAPIKey(fd int, out io.Writer, user string) (string, error) {
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("OPENAI_API_KEY not found and stdin is not a terminal")
	}
	fmt.Fprint(out, "OPENAI_API_KEY not found, enter one: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return "", fmt.Errorf("an API key is required")
	}
	if err := StoreAPIKey(user, key); err != nil {
		return "", err
	}
	return key, nil
}

// SystemUser names the keyring account.
func SystemUser() string {
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME") // Windows fallback
	}
	if username == "" {
		username = "anon"
	}
	return username
}
