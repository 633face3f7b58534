package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/terabiome/stackbuilder/pkg/constants"
)

// ErrMissingSecret means no client secret is held by the session and the
// caller supplied none.
var ErrMissingSecret = errors.New("clientSecret not available; run deploy first")

// AuthError is returned when a token endpoint was unreachable or refused the
// grant.
type AuthError struct {
	Realm       string
	StatusCode  int
	Description string
	Body        string
	Err         error
}

func (e *AuthError) Error() string {
	body := strings.TrimSpace(e.Body)
	if e.Realm == constants.RealmAdmin {
		// The admin realm reports the raw response body.
		switch {
		case body != "":
			return "Admin token error: " + body
		case e.Err != nil:
			return fmt.Sprintf("Admin token error: %v", e.Err)
		case e.StatusCode != 0:
			return fmt.Sprintf("Admin token error: status %d", e.StatusCode)
		default:
			return "Admin token error"
		}
	}

	prefix := "API token error"
	switch {
	case e.Description != "":
		return fmt.Sprintf("%s: %s", prefix, e.Description)
	case body != "":
		return fmt.Sprintf("%s: %s", prefix, body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", prefix, e.StatusCode)
	default:
		return prefix
	}
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
